package report

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitescan/internal/model"
)

// Display vocabulary shared by every writer.
const (
	LabelDetected         = "Detected / Present"
	LabelNotDetected      = "Not Detected / Missing"
	LabelEvaluationFailed = "Error Checking"
	LabelUnavailable      = "N/A"
	LabelNoneFound        = "None found"

	// NothingToViewTitle frames a target the service judged invalid or unreachable.
	NothingToViewTitle = "Nothing to view"

	// CouldNotConnectTitle frames a transport failure.
	CouldNotConnectTitle = "Could not connect to the scanner service"

	// ServerErrorTitle frames a failed or unintelligible service response.
	ServerErrorTitle = "The scanner service returned an error"

	// PartialErrorsNote introduces per-check failures of a successful scan.
	PartialErrorsNote = "Some errors occurred during the scan"

	// NoNextStepsText is shown when no finding calls for remediation.
	NoNextStepsText = "No issues requiring attention were detected."
)

// dateLayout is the timestamp format used in rendered reports.
const dateLayout = "2006-01-02 15:04:05 MST"

// ResultText renders a finding's result. The open-ports check carries the
// resolved IP address when the service reported one.
func ResultText(f model.Finding) string {
	text := resultValueText(f.Result)
	if f.Name == model.CheckScanPorts && f.IPAddress != "" {
		text += " (IP: " + f.IPAddress + ")"
	}
	return text
}

func resultValueText(r model.CheckResult) string {
	switch r.Kind {
	case model.ResultBool:
		if r.Detected {
			return LabelDetected
		}
		return LabelNotDetected
	case model.ResultEvaluationFailed:
		return LabelEvaluationFailed
	case model.ResultUnavailable:
		return LabelUnavailable
	case model.ResultSequence:
		if r.IsNoneFound() {
			return LabelNoneFound
		}
		return strings.Join(r.Items, ", ")
	case model.ResultText:
		return r.Text
	case model.ResultRaw:
		return string(r.Raw)
	default:
		return LabelUnavailable
	}
}

// OutcomeTitle returns the display title of an outcome kind, e.g. "No Target".
func OutcomeTitle(kind model.OutcomeKind) string {
	return titleCase(kind.String())
}

// TransportTitle returns the display title of a transport failure kind.
func TransportTitle(kind model.TransportKind) string {
	return titleCase(kind.String())
}

// titleCase converts a wire name such as "transport_failure" to "Transport Failure".
// A Caser holds state, so one is created per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// NextStep is remediation guidance for a finding that needs attention.
type NextStep struct {
	Label          string
	Result         string
	Recommendation string
}

// NextSteps returns guidance for every finding that needs attention, in
// display order. Findings without guidance are skipped.
func NextSteps(fs model.FindingSet) []NextStep {
	var steps []NextStep
	for _, f := range fs.Findings {
		if !f.NeedsAttention() {
			continue
		}
		info, ok := model.LookupCheck(f.Name)
		if !ok || info.Recommendation == "" {
			continue
		}
		steps = append(steps, NextStep{
			Label:          f.Label,
			Result:         ResultText(f),
			Recommendation: info.Recommendation,
		})
	}
	return steps
}

// attentionCount counts findings that call for remediation.
func attentionCount(fs model.FindingSet) int {
	n := 0
	for _, f := range fs.Findings {
		if f.NeedsAttention() {
			n++
		}
	}
	return n
}

// namedDetail is a detail payload together with the title it is shown under.
type namedDetail struct {
	Title  string
	Detail model.CheckDetail
}

// orderedDetails returns the non-empty detail payloads of a finding set:
// first those attached to findings in display order, then orphaned payloads
// sorted by name.
func orderedDetails(fs model.FindingSet) []namedDetail {
	var out []namedDetail
	seen := make(map[model.CheckName]bool, len(fs.Details))
	for _, f := range fs.Findings {
		if f.Detail == nil {
			continue
		}
		seen[f.Name] = true
		if f.Detail.IsEmpty() {
			continue
		}
		out = append(out, namedDetail{Title: detailTitle(f.Detail.Key, f.Label), Detail: *f.Detail})
	}

	orphans := make([]model.CheckName, 0, len(fs.Details))
	for name := range fs.Details {
		if !seen[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, name := range orphans {
		d := fs.Details[name]
		if d.IsEmpty() {
			continue
		}
		out = append(out, namedDetail{Title: detailTitle(d.Key, name.Label()), Detail: d})
	}
	return out
}

func detailTitle(key, label string) string {
	switch key {
	case model.SQLInjectionDetailKey:
		return "SQL Injection Potential Forms Found"
	case model.XSSDetailKey:
		return "XSS Details"
	default:
		return label + " details"
	}
}

// sortedErrors returns partial errors as check/message pairs sorted by check.
func sortedErrors(errs map[string]string) [][2]string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, errs[k]})
	}
	return out
}

// formatElapsed rounds an elapsed duration for display.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// formatDate renders a timestamp, or "-" when unset.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
