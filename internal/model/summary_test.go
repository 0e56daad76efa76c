package model

import (
	"strings"
	"testing"
)

// TestNewSummary tests summary derivation for each outcome variant.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	t.Run("success counts findings by kind", func(t *testing.T) {
		t.Parallel()

		report := &ScanReport{Outcome: Success{
			Findings: FindingSet{Findings: []Finding{
				NewFinding(CheckSQLInjection, BoolResult(true)),
				NewFinding(CheckHeaderHSTS, BoolResult(false)),
				NewFinding(CheckXSS, EvaluationFailedResult()),
				NewFinding(CheckScanPorts, SequenceResult([]string{"80"})),
			}},
			PartialErrors: map[string]string{"SQLiError": "parse error"},
		}}

		s := NewSummary(report)
		if s.Detected != 1 || s.NotDetected != 1 || s.EvaluationFailed != 1 || s.Other != 1 {
			t.Errorf("unexpected counts: %+v", s)
		}
		if s.TotalFindings() != 4 {
			t.Errorf("TotalFindings() = %d, expected 4", s.TotalFindings())
		}
		if s.PartialErrors != 1 {
			t.Errorf("PartialErrors = %d, expected 1", s.PartialErrors)
		}
		if !strings.Contains(s.Status, "1 error") {
			t.Errorf("Status = %q", s.Status)
		}
	})

	t.Run("no target", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(&ScanReport{Outcome: NoTarget{Reason: "bad host"}})
		if s.Kind != OutcomeNoTarget {
			t.Errorf("Kind = %v", s.Kind)
		}
		if !strings.Contains(s.Status, "bad host") {
			t.Errorf("Status = %q", s.Status)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(&ScanReport{Outcome: ServerError{StatusCode: 502, Detail: "bad gateway"}})
		if !strings.Contains(s.Status, "502") {
			t.Errorf("Status = %q", s.Status)
		}
	})

	t.Run("nil report", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(nil)
		if s.TotalFindings() != 0 {
			t.Errorf("expected no findings, got %d", s.TotalFindings())
		}
	})
}
