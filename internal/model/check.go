package model

import "strings"

// CheckName is the wire name of a security check reported by the scan service.
// Names outside the fixed set below are preserved and rendered by their raw name.
type CheckName string

// The fixed set of checks the scan service reports.
const (
	CheckLinkValid       CheckName = "Check if the link is valid or not"
	CheckVulnerabilities CheckName = "Vulnerabilities Test"
	CheckSQLInjection    CheckName = "SQL Injection Test"
	CheckXSS             CheckName = "XSS Test"
	CheckScanPorts       CheckName = "Scan Ports"
	CheckHeaderXFrame    CheckName = "Header of x-frame"
	CheckHeaderHSTS      CheckName = "Header of hsts"
	CheckHeaderPolicy    CheckName = "Header of policy"
	CheckHeaderXXSS      CheckName = "Header of xxss"
	CheckHeaderNoSniff   CheckName = "Header of nonsnif"
)

// Reserved result keys that are not check results themselves.
const (
	// IPAddressKey decorates the open-ports check with the resolved address.
	IPAddressKey = "ip_address"

	// DetailSuffix marks keys carrying detail payloads for a parent check.
	DetailSuffix = "_details"

	// SQLInjectionDetailKey carries per-form data for the SQL injection check.
	SQLInjectionDetailKey = "sqli_details"

	// XSSDetailKey carries the narrative for the reflected XSS check.
	XSSDetailKey = "xss_details"

	// EvaluationFailedSentinel is the value the service reports for a check it
	// could not evaluate.
	EvaluationFailedSentinel = "Error requesting URL"
)

// CheckInfo is the display metadata of a known check.
type CheckInfo struct {
	// Name is the wire name.
	Name CheckName

	// Label is the human-readable name shown in reports.
	Label string

	// Recommendation is remediation guidance shown alongside the result.
	Recommendation string

	// PresenceIsGood is true for checks where a true result is the safe
	// outcome, such as a security header being present.
	PresenceIsGood bool
}

// checkTable is the process-wide label dictionary, in display order.
// It is only ever read; callers receive copies.
var checkTable = [...]CheckInfo{
	{
		Name:           CheckLinkValid,
		Label:          "Link Validity Check",
		PresenceIsGood: true,
	},
	{
		Name:  CheckVulnerabilities,
		Label: "Vulnerability Scan Status",
	},
	{
		Name:  CheckSQLInjection,
		Label: "SQL Injection Potential",
		Recommendation: "Use parameterized queries or prepared statements. Validate and sanitize all user input. " +
			"Implement least privilege database access.",
	},
	{
		Name:  CheckXSS,
		Label: "XSS Potential (Reflected)",
		Recommendation: "Implement a strict Content Security Policy. Contextually encode output data (HTML, JS, CSS). " +
			"Validate and sanitize user input.",
	},
	{
		Name:           CheckScanPorts,
		Label:          "Open Ports Found",
		Recommendation: "Ensure only necessary ports are open to the public internet. Use firewalls to restrict access.",
	},
	{
		Name:           CheckHeaderXFrame,
		Label:          "X-Frame-Options Header",
		Recommendation: "Send X-Frame-Options: DENY or SAMEORIGIN to mitigate clickjacking.",
		PresenceIsGood: true,
	},
	{
		Name:           CheckHeaderHSTS,
		Label:          "Strict-Transport-Security (HSTS) Header",
		Recommendation: "Send Strict-Transport-Security to force HTTPS on returning visitors.",
		PresenceIsGood: true,
	},
	{
		Name:           CheckHeaderPolicy,
		Label:          "Content-Security-Policy Header",
		Recommendation: "Send a Content-Security-Policy restricting script and frame sources.",
		PresenceIsGood: true,
	},
	{
		Name:           CheckHeaderXXSS,
		Label:          "X-XSS-Protection Header",
		Recommendation: "Prefer a Content-Security-Policy; X-XSS-Protection only helps legacy browsers.",
		PresenceIsGood: true,
	},
	{
		Name:           CheckHeaderNoSniff,
		Label:          "X-Content-Type-Options (nosniff) Header",
		Recommendation: "Send X-Content-Type-Options: nosniff to prevent MIME type sniffing.",
		PresenceIsGood: true,
	},
}

// detailParents maps reserved detail keys to the check they describe.
var detailParents = map[string]CheckName{
	SQLInjectionDetailKey: CheckSQLInjection,
	XSSDetailKey:          CheckXSS,
}

// LookupCheck returns the display metadata for a known check.
func LookupCheck(name CheckName) (CheckInfo, bool) {
	for _, info := range checkTable {
		if info.Name == name {
			return info, true
		}
	}
	return CheckInfo{}, false
}

// KnownChecks returns the fixed check set in display order.
func KnownChecks() []CheckInfo {
	out := make([]CheckInfo, len(checkTable))
	copy(out, checkTable[:])
	return out
}

// IsKnown reports whether the name belongs to the fixed check set.
func (n CheckName) IsKnown() bool {
	_, ok := LookupCheck(n)
	return ok
}

// Label returns the human-readable label, or the raw name for unknown checks.
func (n CheckName) Label() string {
	if info, ok := LookupCheck(n); ok {
		return info.Label
	}
	return string(n)
}

// order returns the display position of a check; unknown checks sort last.
func (n CheckName) order() int {
	for i, info := range checkTable {
		if info.Name == n {
			return i
		}
	}
	return len(checkTable)
}

// IsDetailKey reports whether a result key carries a detail payload
// rather than a check result.
func IsDetailKey(key string) bool {
	return strings.HasSuffix(key, DetailSuffix)
}

// DetailParent returns the check a detail key belongs to. Unknown detail keys
// are their own parent so that their payload is never dropped.
func DetailParent(key string) CheckName {
	if parent, ok := detailParents[key]; ok {
		return parent
	}
	return CheckName(key)
}
