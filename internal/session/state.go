package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// StateKind identifies the lifecycle phase of a session.
type StateKind int

const (
	// StateIdle is the initial state; nothing has been submitted, or the session was reset.
	StateIdle StateKind = iota

	// StateInFlight means a scan request is outstanding.
	StateInFlight

	// StateSettled means the latest submission has an outcome.
	StateSettled
)

var stateKindNames = map[StateKind]string{
	StateIdle:     "idle",
	StateInFlight: "in_flight",
	StateSettled:  "settled",
}

// String returns the wire name of the state kind.
func (k StateKind) String() string {
	if name, ok := stateKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StateKind) UnmarshalText(text []byte) error {
	for kind, name := range stateKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// State is an immutable snapshot of a session.
type State struct {
	// Kind is the lifecycle phase.
	Kind StateKind

	// Target is the raw input of the current submission.
	Target string

	// Identifier is the normalized target of the current submission.
	Identifier model.ScanIdentifier

	// Sequence is the token of the current submission; zero while Idle.
	Sequence uint64

	// StartedAt is when the current submission was issued.
	StartedAt time.Time

	// SettledAt is when the outcome was applied.
	SettledAt time.Time

	// Outcome is set only when Kind is StateSettled.
	Outcome model.Outcome
}

// Report returns the settled outcome as a ScanReport, or nil unless settled.
func (s State) Report() *model.ScanReport {
	if s.Kind != StateSettled || s.Outcome == nil {
		return nil
	}
	return model.NewScanReport(s.Target, s.Identifier, s.StartedAt, s.SettledAt.Sub(s.StartedAt), s.Outcome)
}

type stateJSON struct {
	State      StateKind       `json:"state"`
	Target     string          `json:"target,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Sequence   uint64          `json:"sequence"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	SettledAt  *time.Time      `json:"settled_at,omitempty"`
	Outcome    json.RawMessage `json:"outcome,omitempty"`
	Summary    *model.Summary  `json:"summary,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		State:      s.Kind,
		Target:     s.Target,
		Identifier: s.Identifier.String(),
		Sequence:   s.Sequence,
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		out.StartedAt = &started
	}
	if report := s.Report(); report != nil {
		settled := s.SettledAt
		out.SettledAt = &settled

		outcome, err := model.EncodeOutcome(s.Outcome)
		if err != nil {
			return nil, err
		}
		out.Outcome = outcome

		summary := model.NewSummary(report)
		out.Summary = &summary
	}
	return json.Marshal(out)
}
