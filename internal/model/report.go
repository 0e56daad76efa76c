package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScanReport is a settled scan outcome together with the scan metadata.
// It is what report writers render and what the history database stores.
type ScanReport struct {
	// Target is the raw input as submitted by the operator.
	Target string

	// Identifier is the normalized target sent to the scan service.
	Identifier ScanIdentifier

	// DateScanned is when the submission was issued.
	DateScanned time.Time

	// Elapsed is how long the scan service took to settle the submission.
	Elapsed time.Duration

	// Outcome is the canonical result.
	Outcome Outcome
}

// NewScanReport creates a ScanReport for a settled outcome.
func NewScanReport(target string, id ScanIdentifier, startedAt time.Time, elapsed time.Duration, outcome Outcome) *ScanReport {
	return &ScanReport{
		Target:      target,
		Identifier:  id,
		DateScanned: startedAt,
		Elapsed:     elapsed,
		Outcome:     outcome,
	}
}

// Success returns the outcome as a Success when it is one.
func (r *ScanReport) Success() (Success, bool) {
	s, ok := r.Outcome.(Success)
	return s, ok
}

// scanReportJSON is the serialized form of ScanReport.
type scanReportJSON struct {
	Target      string          `json:"target"`
	Identifier  ScanIdentifier  `json:"identifier"`
	DateScanned time.Time       `json:"date_scanned"`
	ElapsedMS   int64           `json:"elapsed_ms"`
	Outcome     json.RawMessage `json:"outcome"`
	Summary     *Summary        `json:"summary,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r ScanReport) MarshalJSON() ([]byte, error) {
	outcome, err := EncodeOutcome(r.Outcome)
	if err != nil {
		return nil, err
	}
	summary := NewSummary(&r)
	return json.Marshal(scanReportJSON{
		Target:      r.Target,
		Identifier:  r.Identifier,
		DateScanned: r.DateScanned,
		ElapsedMS:   r.Elapsed.Milliseconds(),
		Outcome:     outcome,
		Summary:     &summary,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The summary is derived data
// and is recomputed on demand rather than restored.
func (r *ScanReport) UnmarshalJSON(data []byte) error {
	var raw scanReportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	outcome, err := DecodeOutcome(raw.Outcome)
	if err != nil {
		return fmt.Errorf("failed to parse scan report: %w", err)
	}
	r.Target = raw.Target
	r.Identifier = raw.Identifier
	r.DateScanned = raw.DateScanned
	r.Elapsed = time.Duration(raw.ElapsedMS) * time.Millisecond
	r.Outcome = outcome
	return nil
}
