package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OutcomeKind identifies which variant an Outcome is.
type OutcomeKind int

const (
	// OutcomeSuccess is a completed scan with findings.
	OutcomeSuccess OutcomeKind = iota + 1

	// OutcomeNoTarget means the service could not reach or validate the target.
	OutcomeNoTarget

	// OutcomeTransportFailure means no response was received from the service.
	OutcomeTransportFailure

	// OutcomeServerError is a non-2xx response or a malformed success body.
	OutcomeServerError
)

var outcomeKindNames = map[OutcomeKind]string{
	OutcomeSuccess:          "success",
	OutcomeNoTarget:         "no_target",
	OutcomeTransportFailure: "transport_failure",
	OutcomeServerError:      "server_error",
}

// String returns the wire name of the kind.
func (k OutcomeKind) String() string {
	if name, ok := outcomeKindNames[k]; ok {
		return name
	}
	return unknownStr
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	for kind, name := range outcomeKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", string(text))
}

// TransportKind classifies why no response was received.
type TransportKind int

const (
	// TransportUnexpected covers every failure that is neither a timeout nor a refusal.
	TransportUnexpected TransportKind = iota

	// TransportTimeout means the request deadline passed before a response.
	TransportTimeout

	// TransportConnectionRefused means the service actively refused the connection.
	TransportConnectionRefused
)

var transportKindNames = map[TransportKind]string{
	TransportUnexpected:        "unexpected",
	TransportTimeout:           "timeout",
	TransportConnectionRefused: "connection refused",
}

// String returns a human-readable description of the kind.
func (k TransportKind) String() string {
	if name, ok := transportKindNames[k]; ok {
		return name
	}
	return unknownStr
}

// MarshalText implements encoding.TextMarshaler.
func (k TransportKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransportKind) UnmarshalText(text []byte) error {
	for kind, name := range transportKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown transport kind %q", string(text))
}

// Outcome is the canonical result of one scan submission.
// The set of implementations is closed: Success, NoTarget, TransportFailure
// and ServerError.
type Outcome interface {
	// Kind returns the variant tag.
	Kind() OutcomeKind

	outcome()
}

// Success is a completed scan. PartialErrors is nil when the service
// reported no per-check failures.
type Success struct {
	Findings      FindingSet
	PartialErrors map[string]string
}

// NoTarget means the service judged the target invalid or unreachable.
type NoTarget struct {
	Reason string
}

// TransportFailure means the service could not be reached.
type TransportFailure struct {
	TransportKind TransportKind
	Detail        string
}

// ServerError is a failed or unintelligible service response.
type ServerError struct {
	StatusCode int
	Detail     string
}

// Kind implements Outcome.
func (Success) Kind() OutcomeKind { return OutcomeSuccess }

// Kind implements Outcome.
func (NoTarget) Kind() OutcomeKind { return OutcomeNoTarget }

// Kind implements Outcome.
func (TransportFailure) Kind() OutcomeKind { return OutcomeTransportFailure }

// Kind implements Outcome.
func (ServerError) Kind() OutcomeKind { return OutcomeServerError }

func (Success) outcome()          {}
func (NoTarget) outcome()         {}
func (TransportFailure) outcome() {}
func (ServerError) outcome()      {}

// HasPartialErrors reports whether some checks failed while others succeeded.
func (s Success) HasPartialErrors() bool {
	return len(s.PartialErrors) > 0
}

// ErrNilOutcome is returned when encoding a nil Outcome.
var ErrNilOutcome = errors.New("outcome is nil")

// outcomeEnvelope is the flat JSON form of every Outcome variant.
type outcomeEnvelope struct {
	Kind          OutcomeKind       `json:"kind"`
	Findings      *FindingSet       `json:"findings,omitempty"`
	PartialErrors map[string]string `json:"partial_errors,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	TransportKind *TransportKind    `json:"transport_kind,omitempty"`
	StatusCode    int               `json:"status_code,omitempty"`
	Detail        string            `json:"detail,omitempty"`
}

// EncodeOutcome serializes an Outcome with a "kind" discriminator.
func EncodeOutcome(o Outcome) ([]byte, error) {
	if o == nil {
		return nil, ErrNilOutcome
	}

	env := outcomeEnvelope{Kind: o.Kind()}
	switch v := o.(type) {
	case Success:
		findings := v.Findings
		env.Findings = &findings
		env.PartialErrors = v.PartialErrors
	case NoTarget:
		env.Reason = v.Reason
	case TransportFailure:
		kind := v.TransportKind
		env.TransportKind = &kind
		env.Detail = v.Detail
	case ServerError:
		env.StatusCode = v.StatusCode
		env.Detail = v.Detail
	}
	return json.Marshal(env)
}

// DecodeOutcome parses the output of EncodeOutcome.
func DecodeOutcome(data []byte) (Outcome, error) {
	var env outcomeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse outcome: %w", err)
	}

	switch env.Kind {
	case OutcomeSuccess:
		var findings FindingSet
		if env.Findings != nil {
			findings = *env.Findings
		}
		return Success{Findings: findings, PartialErrors: env.PartialErrors}, nil
	case OutcomeNoTarget:
		return NoTarget{Reason: env.Reason}, nil
	case OutcomeTransportFailure:
		kind := TransportUnexpected
		if env.TransportKind != nil {
			kind = *env.TransportKind
		}
		return TransportFailure{TransportKind: kind, Detail: env.Detail}, nil
	case OutcomeServerError:
		return ServerError{StatusCode: env.StatusCode, Detail: env.Detail}, nil
	default:
		return nil, fmt.Errorf("unknown outcome kind %d", env.Kind)
	}
}
