package projection

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/nao1215/sitescan/internal/model"
)

// Project converts the raw results mapping into a FindingSet.
func Project(raw map[string]json.RawMessage) model.FindingSet {
	fs := model.FindingSet{
		Findings: make([]model.Finding, 0, len(raw)),
	}

	// Iterate in key order so that the output does not depend on map order.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch {
		case key == model.IPAddressKey:
			fs.IPAddress = projectIPAddress(value)
		case model.IsDetailKey(key):
			if fs.Details == nil {
				fs.Details = make(map[model.CheckName]model.CheckDetail)
			}
			fs.Details[model.DetailParent(key)] = projectDetail(key, value)
		default:
			fs.Findings = append(fs.Findings, model.NewFinding(model.CheckName(key), ProjectValue(value)))
		}
	}

	for i := range fs.Findings {
		f := &fs.Findings[i]
		if f.Name == model.CheckScanPorts {
			f.IPAddress = fs.IPAddress
		}
		if detail, ok := fs.Details[f.Name]; ok {
			d := detail
			f.Detail = &d
		}
	}

	model.SortFindings(fs.Findings)
	return fs
}

// ProjectValue converts one check value into a CheckResult.
func ProjectValue(value json.RawMessage) model.CheckResult {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.UnavailableResult()
	}

	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err == nil {
			return model.BoolResult(b)
		}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			if s == model.EvaluationFailedSentinel {
				return model.EvaluationFailedResult()
			}
			return model.TextResult(s)
		}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err == nil {
			items := make([]string, 0, len(elems))
			for _, e := range elems {
				items = append(items, elementString(e))
			}
			return model.SequenceResult(items)
		}
	}
	return model.RawResult(copyRaw(trimmed))
}

// elementString renders one sequence element. Strings are unquoted; numbers
// and anything else keep their compact JSON text.
func elementString(e json.RawMessage) string {
	var s string
	if err := json.Unmarshal(e, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, e); err == nil {
		return buf.String()
	}
	return string(e)
}

// projectIPAddress returns the address string; a non-string value keeps
// its JSON text so it is still displayed.
func projectIPAddress(value json.RawMessage) string {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// wireForm is the service's form entry in sqli_details.
type wireForm struct {
	Action *string `json:"action"`
	Method *string `json:"method"`
	Inputs []struct {
		Name *string `json:"name"`
		Type *string `json:"type"`
	} `json:"inputs"`
}

// projectDetail converts a detail payload. Payloads of unknown shape are kept raw.
func projectDetail(key string, value json.RawMessage) model.CheckDetail {
	detail := model.CheckDetail{Key: key}

	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return detail
	}

	if key == model.SQLInjectionDetailKey {
		var forms []wireForm
		if err := json.Unmarshal(trimmed, &forms); err == nil {
			detail.Forms = convertForms(forms)
			return detail
		}
	}

	var narrative string
	if err := json.Unmarshal(trimmed, &narrative); err == nil {
		detail.Narrative = narrative
		return detail
	}

	detail.Raw = copyRaw(trimmed)
	return detail
}

func convertForms(forms []wireForm) []model.FormDetail {
	out := make([]model.FormDetail, 0, len(forms))
	for _, f := range forms {
		form := model.FormDetail{
			Action: deref(f.Action),
			Method: deref(f.Method),
		}
		for _, in := range f.Inputs {
			form.Inputs = append(form.Inputs, model.FormInput{
				Name: deref(in.Name),
				Type: deref(in.Type),
			})
		}
		out = append(out, form)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// copyRaw detaches a value from the decoder's buffer.
func copyRaw(b []byte) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
