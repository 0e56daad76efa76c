package model

import "fmt"

// Summary counts the findings of a report for quick review and history listings.
type Summary struct {
	// Kind is the outcome variant.
	Kind OutcomeKind `json:"kind"`

	// Status is a one-line human-readable status.
	Status string `json:"status"`

	// Detected counts boolean findings reported as detected / present.
	Detected int `json:"detected"`

	// NotDetected counts boolean findings reported as not detected / missing.
	NotDetected int `json:"not_detected"`

	// EvaluationFailed counts checks the service could not evaluate.
	EvaluationFailed int `json:"evaluation_failed"`

	// Other counts sequences, texts and unavailable or raw values.
	Other int `json:"other"`

	// PartialErrors counts per-check errors reported next to the findings.
	PartialErrors int `json:"partial_errors"`
}

// NewSummary derives a Summary from a report.
func NewSummary(r *ScanReport) Summary {
	s := Summary{}
	if r == nil || r.Outcome == nil {
		s.Status = "No outcome"
		return s
	}

	s.Kind = r.Outcome.Kind()
	switch o := r.Outcome.(type) {
	case Success:
		for _, f := range o.Findings.Findings {
			switch f.Result.Kind {
			case ResultBool:
				if f.Result.Detected {
					s.Detected++
				} else {
					s.NotDetected++
				}
			case ResultEvaluationFailed:
				s.EvaluationFailed++
			default:
				s.Other++
			}
		}
		s.PartialErrors = len(o.PartialErrors)
		if s.PartialErrors > 0 {
			s.Status = fmt.Sprintf("Completed with %d error(s)", s.PartialErrors)
		} else {
			s.Status = "Complete"
		}
	case NoTarget:
		s.Status = "Nothing to view - " + o.Reason
	case TransportFailure:
		s.Status = "Could not connect - " + o.TransportKind.String()
	case ServerError:
		s.Status = fmt.Sprintf("Server error %d - %s", o.StatusCode, o.Detail)
	}
	return s
}

// TotalFindings returns the number of findings counted.
func (s Summary) TotalFindings() int {
	return s.Detected + s.NotDetected + s.EvaluationFailed + s.Other
}
