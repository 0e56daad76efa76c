package projection

import (
	"encoding/json"
	"testing"

	"github.com/nao1215/sitescan/internal/model"
)

func decodeResults(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("failed to decode %s: %v", body, err)
	}
	return raw
}

// TestProject_OpenPorts verifies that an empty port list is "none found",
// not a failure, and carries the resolved address.
func TestProject_OpenPorts(t *testing.T) {
	t.Parallel()

	fs := Project(decodeResults(t, `{"Scan Ports":[],"ip_address":"1.2.3.4"}`))

	if len(fs.Findings) != 1 {
		t.Fatalf("expected 1 finding (ip_address is not a check), got %d", len(fs.Findings))
	}
	ports, ok := fs.Get(model.CheckScanPorts)
	if !ok {
		t.Fatal("expected ports finding")
	}
	if ports.Result.Kind != model.ResultSequence {
		t.Errorf("Kind = %v, expected sequence", ports.Result.Kind)
	}
	if !ports.Result.IsNoneFound() {
		t.Error("expected empty sequence")
	}
	if ports.IPAddress != "1.2.3.4" {
		t.Errorf("IPAddress = %q, expected 1.2.3.4", ports.IPAddress)
	}
	if fs.IPAddress != "1.2.3.4" {
		t.Errorf("FindingSet.IPAddress = %q", fs.IPAddress)
	}
}

// TestProject_EvaluationFailed verifies the sentinel is not read as false.
func TestProject_EvaluationFailed(t *testing.T) {
	t.Parallel()

	fs := Project(decodeResults(t, `{"XSS Test":"Error requesting URL","SQL Injection Test":false}`))

	xss, ok := fs.Get(model.CheckXSS)
	if !ok {
		t.Fatal("expected XSS finding")
	}
	if xss.Result.Kind != model.ResultEvaluationFailed {
		t.Errorf("XSS Kind = %v, expected evaluation_failed", xss.Result.Kind)
	}

	sqli, _ := fs.Get(model.CheckSQLInjection)
	if sqli.Result.Kind != model.ResultBool || sqli.Result.Detected {
		t.Errorf("SQLi result = %+v, expected bool false", sqli.Result)
	}
}

// TestProjectValue tests value classification.
func TestProjectValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		kind  model.ResultKind
		check func(t *testing.T, r model.CheckResult)
	}{
		{name: "true", value: `true`, kind: model.ResultBool, check: func(t *testing.T, r model.CheckResult) {
			t.Helper()
			if !r.Detected {
				t.Error("expected detected")
			}
		}},
		{name: "null", value: `null`, kind: model.ResultUnavailable},
		{name: "sentinel", value: `"Error requesting URL"`, kind: model.ResultEvaluationFailed},
		{name: "other string", value: `"Valid"`, kind: model.ResultText, check: func(t *testing.T, r model.CheckResult) {
			t.Helper()
			if r.Text != "Valid" {
				t.Errorf("Text = %q", r.Text)
			}
		}},
		{name: "numeric ports", value: `[80, 443]`, kind: model.ResultSequence, check: func(t *testing.T, r model.CheckResult) {
			t.Helper()
			if len(r.Items) != 2 || r.Items[0] != "80" || r.Items[1] != "443" {
				t.Errorf("Items = %v", r.Items)
			}
		}},
		{name: "string sequence keeps order", value: `["b","a"]`, kind: model.ResultSequence, check: func(t *testing.T, r model.CheckResult) {
			t.Helper()
			if r.Items[0] != "b" || r.Items[1] != "a" {
				t.Errorf("Items = %v", r.Items)
			}
		}},
		{name: "number", value: `42`, kind: model.ResultRaw, check: func(t *testing.T, r model.CheckResult) {
			t.Helper()
			if string(r.Raw) != "42" {
				t.Errorf("Raw = %s", r.Raw)
			}
		}},
		{name: "object", value: `{"a":1}`, kind: model.ResultRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := ProjectValue(json.RawMessage(tt.value))
			if r.Kind != tt.kind {
				t.Fatalf("Kind = %v, expected %v", r.Kind, tt.kind)
			}
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

// TestProject_Details verifies detail keys are attached to their parent check.
func TestProject_Details(t *testing.T) {
	t.Parallel()

	body := `{
		"SQL Injection Test": true,
		"XSS Test": true,
		"sqli_details": [
			{"action": "/login", "method": "post", "inputs": [{"name": "user", "type": "text"}, {"type": "password"}]},
			{"inputs": []}
		],
		"xss_details": "Payload reflected in q parameter",
		"cookie_details": {"secure": false}
	}`
	fs := Project(decodeResults(t, body))

	if len(fs.Findings) != 2 {
		t.Fatalf("expected detail keys to be excluded from findings, got %d findings", len(fs.Findings))
	}

	sqli, _ := fs.Get(model.CheckSQLInjection)
	if sqli.Detail == nil {
		t.Fatal("expected SQLi detail to be attached")
	}
	forms := sqli.Detail.Forms
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	if forms[0].DisplayMethod() != "POST" || forms[0].DisplayAction() != "/login" {
		t.Errorf("unexpected first form: %+v", forms[0])
	}
	if forms[0].Inputs[1].DisplayName() != model.DefaultInputName {
		t.Errorf("missing input name rendered as %q", forms[0].Inputs[1].DisplayName())
	}
	if forms[1].DisplayAction() != model.DefaultFormAction || forms[1].DisplayMethod() != model.DefaultFormMethod {
		t.Errorf("expected defaults for second form, got %q %q", forms[1].DisplayAction(), forms[1].DisplayMethod())
	}

	xss, _ := fs.Get(model.CheckXSS)
	if xss.Detail == nil || xss.Detail.Narrative != "Payload reflected in q parameter" {
		t.Errorf("unexpected XSS detail: %+v", xss.Detail)
	}

	cookie, ok := fs.Detail("cookie_details")
	if !ok {
		t.Fatal("expected unknown detail payload to be kept")
	}
	if len(cookie.Raw) == 0 {
		t.Error("expected raw payload for unknown detail shape")
	}
}

// TestProject_DetailWithoutParent verifies a detail payload survives
// even when its check is missing.
func TestProject_DetailWithoutParent(t *testing.T) {
	t.Parallel()

	fs := Project(decodeResults(t, `{"xss_details":"reflected"}`))
	if len(fs.Findings) != 0 {
		t.Errorf("expected no findings, got %d", len(fs.Findings))
	}
	if d, ok := fs.Detail(model.CheckXSS); !ok || d.Narrative != "reflected" {
		t.Errorf("expected XSS detail to be kept, got %+v", d)
	}
	if !fs.HasDetails() {
		t.Error("expected HasDetails() to be true")
	}
}

// TestProject_UnknownKeys verifies that no key is ever dropped and that
// unknown checks sort after the fixed set.
func TestProject_UnknownKeys(t *testing.T) {
	t.Parallel()

	fs := Project(decodeResults(t, `{
		"Zebra Check": 3,
		"Header of hsts": false,
		"Check if the link is valid or not": true,
		"Apple Check": "weird"
	}`))

	want := []model.CheckName{
		model.CheckLinkValid,
		model.CheckHeaderHSTS,
		"Apple Check",
		"Zebra Check",
	}
	if len(fs.Findings) != len(want) {
		t.Fatalf("expected %d findings, got %d", len(want), len(fs.Findings))
	}
	for i, name := range want {
		if fs.Findings[i].Name != name {
			t.Errorf("Findings[%d] = %q, expected %q", i, fs.Findings[i].Name, name)
		}
	}

	zebra, _ := fs.Get("Zebra Check")
	if zebra.Known || zebra.Label != "Zebra Check" {
		t.Errorf("unknown check should render by raw name, got %+v", zebra)
	}
}

// TestProject_Empty verifies the function is total over empty input.
func TestProject_Empty(t *testing.T) {
	t.Parallel()

	for _, raw := range []map[string]json.RawMessage{nil, {}} {
		fs := Project(raw)
		if fs.Findings == nil {
			t.Error("expected non-nil findings slice")
		}
		if len(fs.Findings) != 0 {
			t.Errorf("expected no findings, got %d", len(fs.Findings))
		}
	}
}
