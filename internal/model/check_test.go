package model

import "testing"

// TestLookupCheck tests the check label dictionary.
func TestLookupCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  CheckName
		label string
	}{
		{CheckLinkValid, "Link Validity Check"},
		{CheckVulnerabilities, "Vulnerability Scan Status"},
		{CheckSQLInjection, "SQL Injection Potential"},
		{CheckXSS, "XSS Potential (Reflected)"},
		{CheckScanPorts, "Open Ports Found"},
		{CheckHeaderXFrame, "X-Frame-Options Header"},
		{CheckHeaderHSTS, "Strict-Transport-Security (HSTS) Header"},
		{CheckHeaderPolicy, "Content-Security-Policy Header"},
		{CheckHeaderXXSS, "X-XSS-Protection Header"},
		{CheckHeaderNoSniff, "X-Content-Type-Options (nosniff) Header"},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			t.Parallel()

			info, ok := LookupCheck(tt.name)
			if !ok {
				t.Fatalf("expected %q to be known", tt.name)
			}
			if info.Label != tt.label {
				t.Errorf("Label = %q, expected %q", info.Label, tt.label)
			}
			if tt.name.Label() != tt.label {
				t.Errorf("CheckName.Label() = %q, expected %q", tt.name.Label(), tt.label)
			}
		})
	}

	t.Run("unknown check renders raw name", func(t *testing.T) {
		t.Parallel()

		name := CheckName("Cookie Flags")
		if _, ok := LookupCheck(name); ok {
			t.Fatal("expected unknown check")
		}
		if name.Label() != "Cookie Flags" {
			t.Errorf("Label() = %q, expected raw name", name.Label())
		}
		if name.IsKnown() {
			t.Error("expected IsKnown() to be false")
		}
	})
}

// TestKnownChecks verifies the table is returned as a copy in display order.
func TestKnownChecks(t *testing.T) {
	t.Parallel()

	checks := KnownChecks()
	if len(checks) != 10 {
		t.Fatalf("expected 10 known checks, got %d", len(checks))
	}
	if checks[0].Name != CheckLinkValid {
		t.Errorf("first check = %q, expected %q", checks[0].Name, CheckLinkValid)
	}

	checks[0].Label = "mutated"
	if CheckLinkValid.Label() == "mutated" {
		t.Error("KnownChecks must not expose the dictionary")
	}
}

// TestDetailKeys tests detail key recognition and parent lookup.
func TestDetailKeys(t *testing.T) {
	t.Parallel()

	if !IsDetailKey(SQLInjectionDetailKey) || !IsDetailKey(XSSDetailKey) {
		t.Error("expected reserved detail keys to be recognized")
	}
	if IsDetailKey(string(CheckXSS)) {
		t.Error("a check name is not a detail key")
	}
	if DetailParent(SQLInjectionDetailKey) != CheckSQLInjection {
		t.Errorf("sqli_details parent = %q", DetailParent(SQLInjectionDetailKey))
	}
	if DetailParent(XSSDetailKey) != CheckXSS {
		t.Errorf("xss_details parent = %q", DetailParent(XSSDetailKey))
	}
	if DetailParent("cookie_details") != CheckName("cookie_details") {
		t.Errorf("unknown detail key should be its own parent, got %q", DetailParent("cookie_details"))
	}
}

// TestSortFindings verifies the fixed order followed by unknown names.
func TestSortFindings(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		NewFinding("Zeta Check", BoolResult(true)),
		NewFinding(CheckScanPorts, SequenceResult(nil)),
		NewFinding("Alpha Check", BoolResult(false)),
		NewFinding(CheckLinkValid, BoolResult(true)),
	}
	SortFindings(findings)

	want := []CheckName{CheckLinkValid, CheckScanPorts, "Alpha Check", "Zeta Check"}
	for i, name := range want {
		if findings[i].Name != name {
			t.Errorf("findings[%d] = %q, expected %q", i, findings[i].Name, name)
		}
	}
}

// TestFinding_NeedsAttention tests which results call for remediation.
func TestFinding_NeedsAttention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		finding Finding
		want    bool
	}{
		{"detected injection", NewFinding(CheckSQLInjection, BoolResult(true)), true},
		{"no injection", NewFinding(CheckSQLInjection, BoolResult(false)), false},
		{"missing header", NewFinding(CheckHeaderHSTS, BoolResult(false)), true},
		{"present header", NewFinding(CheckHeaderHSTS, BoolResult(true)), false},
		{"open ports", NewFinding(CheckScanPorts, SequenceResult([]string{"22"})), true},
		{"no open ports", NewFinding(CheckScanPorts, SequenceResult(nil)), false},
		{"evaluation failed", NewFinding(CheckXSS, EvaluationFailedResult()), false},
		{"unknown check", NewFinding("Cookie Flags", BoolResult(true)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.finding.NeedsAttention(); got != tt.want {
				t.Errorf("NeedsAttention() = %v, expected %v", got, tt.want)
			}
		})
	}
}
