package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ResultKind identifies which variant a CheckResult holds.
type ResultKind int

const (
	// ResultUnavailable is an explicit null from the service ("N/A").
	ResultUnavailable ResultKind = iota

	// ResultBool is a detected / not-detected result.
	ResultBool

	// ResultSequence is an ordered list of values, such as open ports.
	// An empty sequence means "none found".
	ResultSequence

	// ResultEvaluationFailed is the per-check "could not evaluate" sentinel.
	ResultEvaluationFailed

	// ResultText is any other string value.
	ResultText

	// ResultRaw is a value of an unexpected JSON type, kept verbatim.
	ResultRaw
)

// resultKindNames holds the wire names used in reports and history.
var resultKindNames = map[ResultKind]string{
	ResultUnavailable:      "unavailable",
	ResultBool:             "bool",
	ResultSequence:         "sequence",
	ResultEvaluationFailed: "evaluation_failed",
	ResultText:             "text",
	ResultRaw:              "raw",
}

// String returns the wire name of the kind.
func (k ResultKind) String() string {
	if name, ok := resultKindNames[k]; ok {
		return name
	}
	return unknownStr
}

// MarshalText implements encoding.TextMarshaler.
func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ResultKind) UnmarshalText(text []byte) error {
	for kind, name := range resultKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", string(text))
}

// CheckResult is the outcome of one check. Only the fields matching Kind are set.
type CheckResult struct {
	// Kind selects the variant.
	Kind ResultKind `json:"kind"`

	// Detected is the value of a ResultBool; true means present or detected.
	Detected bool `json:"detected,omitempty"`

	// Items is the value of a ResultSequence.
	Items []string `json:"items,omitempty"`

	// Text is the value of a ResultText.
	Text string `json:"text,omitempty"`

	// Raw is the value of a ResultRaw.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// BoolResult creates a detected / not-detected result.
func BoolResult(detected bool) CheckResult {
	return CheckResult{Kind: ResultBool, Detected: detected}
}

// SequenceResult creates an ordered sequence result. A nil slice is stored
// as empty so that "none found" survives serialization.
func SequenceResult(items []string) CheckResult {
	if items == nil {
		items = []string{}
	}
	return CheckResult{Kind: ResultSequence, Items: items}
}

// EvaluationFailedResult creates the "could not evaluate" result.
func EvaluationFailedResult() CheckResult {
	return CheckResult{Kind: ResultEvaluationFailed}
}

// UnavailableResult creates the explicit-null result.
func UnavailableResult() CheckResult {
	return CheckResult{Kind: ResultUnavailable}
}

// TextResult creates a free-form string result.
func TextResult(text string) CheckResult {
	return CheckResult{Kind: ResultText, Text: text}
}

// RawResult keeps an unexpected JSON value verbatim.
func RawResult(raw json.RawMessage) CheckResult {
	return CheckResult{Kind: ResultRaw, Raw: raw}
}

// IsNoneFound reports whether the result is an empty sequence.
func (r CheckResult) IsNoneFound() bool {
	return r.Kind == ResultSequence && len(r.Items) == 0
}

// FormInput is one input field of a form that may be an SQL injection entry point.
type FormInput struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// FormDetail describes one HTML form found by the SQL injection check.
type FormDetail struct {
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Inputs []FormInput `json:"inputs,omitempty"`
}

// Display defaults for form data the service left out.
const (
	DefaultFormAction = "(None Specified)"
	DefaultFormMethod = "GET"
	DefaultInputName  = "(No Name)"
	DefaultInputType  = "text"
)

// DisplayName returns the input name, or DefaultInputName when missing.
func (in FormInput) DisplayName() string {
	if in.Name == "" {
		return DefaultInputName
	}
	return in.Name
}

// DisplayType returns the input type, or DefaultInputType when missing.
func (in FormInput) DisplayType() string {
	if in.Type == "" {
		return DefaultInputType
	}
	return in.Type
}

// DisplayAction returns the form action, or DefaultFormAction when missing.
func (f FormDetail) DisplayAction() string {
	if f.Action == "" {
		return DefaultFormAction
	}
	return f.Action
}

// DisplayMethod returns the upper-cased form method, or DefaultFormMethod when missing.
func (f FormDetail) DisplayMethod() string {
	if f.Method == "" {
		return DefaultFormMethod
	}
	return strings.ToUpper(f.Method)
}

// CheckDetail is the structured detail payload attached to a check.
type CheckDetail struct {
	// Key is the result key the payload came from (e.g. "sqli_details").
	Key string `json:"key"`

	// Forms holds decoded SQL injection form data.
	Forms []FormDetail `json:"forms,omitempty"`

	// Narrative holds a textual explanation, such as the XSS details.
	Narrative string `json:"narrative,omitempty"`

	// Raw holds the payload verbatim when it has no known shape.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// IsEmpty reports whether the detail carries nothing worth displaying.
func (d CheckDetail) IsEmpty() bool {
	return len(d.Forms) == 0 && d.Narrative == "" && len(d.Raw) == 0
}

// Finding is the result of one individual security check against a target.
type Finding struct {
	// Name is the check's wire name.
	Name CheckName `json:"name"`

	// Label is the human-readable name (the raw name for unknown checks).
	Label string `json:"label"`

	// Known reports whether Name belongs to the fixed check set.
	Known bool `json:"known"`

	// Result is the check's value.
	Result CheckResult `json:"result"`

	// IPAddress decorates the open-ports check; empty elsewhere.
	IPAddress string `json:"ip_address,omitempty"`

	// Detail is the structured payload associated with this check, if any.
	Detail *CheckDetail `json:"detail,omitempty"`
}

// NewFinding creates a Finding with its label resolved from the check dictionary.
func NewFinding(name CheckName, result CheckResult) Finding {
	return Finding{
		Name:   name,
		Label:  name.Label(),
		Known:  name.IsKnown(),
		Result: result,
	}
}

// NeedsAttention reports whether the finding calls for remediation: a
// detected issue, a missing security header, or open ports. Unknown checks
// never do, since the meaning of their values is not known.
func (f Finding) NeedsAttention() bool {
	info, ok := LookupCheck(f.Name)
	if !ok {
		return false
	}
	switch f.Result.Kind {
	case ResultBool:
		return f.Result.Detected != info.PresenceIsGood
	case ResultSequence:
		return f.Name == CheckScanPorts && len(f.Result.Items) > 0
	default:
		return false
	}
}

// FindingSet holds every finding of one successful scan.
type FindingSet struct {
	// Findings are ordered by the fixed check order, then unknown names alphabetically.
	Findings []Finding `json:"findings"`

	// IPAddress is the resolved target address reported next to the open ports.
	IPAddress string `json:"ip_address,omitempty"`

	// Details holds detail payloads keyed by their parent check. A payload whose
	// parent has no finding is still kept here.
	Details map[CheckName]CheckDetail `json:"details,omitempty"`
}

// Get returns the finding for a check name.
func (fs FindingSet) Get(name CheckName) (Finding, bool) {
	for _, f := range fs.Findings {
		if f.Name == name {
			return f, true
		}
	}
	return Finding{}, false
}

// Detail returns the detail payload for a check name.
func (fs FindingSet) Detail(name CheckName) (CheckDetail, bool) {
	d, ok := fs.Details[name]
	return d, ok
}

// HasDetails reports whether any non-empty detail payload is present.
func (fs FindingSet) HasDetails() bool {
	for _, d := range fs.Details {
		if !d.IsEmpty() {
			return true
		}
	}
	return false
}

// SortFindings orders findings by the fixed check order, then by raw name.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		oi, oj := findings[i].Name.order(), findings[j].Name.order()
		if oi != oj {
			return oi < oj
		}
		return findings[i].Name < findings[j].Name
	})
}
