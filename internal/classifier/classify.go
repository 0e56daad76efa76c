package classifier

import (
	"bytes"
	"encoding/json"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/projection"
	"github.com/nao1215/sitescan/internal/transport"
)

const (
	// NothingToViewMessage is the service's invalid-target sentinel.
	NothingToViewMessage = "nothing to view"

	// DefaultNoTargetReason is used when an invalid-target body has no error text.
	DefaultNoTargetReason = "target not valid or reachable"

	// GenericServerErrorDetail is used when an error body has no error text.
	GenericServerErrorDetail = "server error"

	// UnexpectedShapeDetail is used for 2xx bodies with neither recognized field.
	UnexpectedShapeDetail = "unexpected response shape"
)

// Body field names.
const (
	fieldMessage = "message"
	fieldError   = "error"
	fieldResults = "results"
	fieldErrors  = "errors"
)

// Classify converts a raw transport result into a canonical Outcome.
func Classify(raw transport.RawOutcome) model.Outcome {
	switch r := raw.(type) {
	case transport.NetworkError:
		return model.TransportFailure{TransportKind: r.Kind, Detail: r.Detail()}
	case transport.HTTPError:
		return classifyHTTPError(r)
	case transport.HTTPOk:
		return classifyHTTPOk(r)
	default:
		kind := model.TransportUnexpected
		return model.TransportFailure{TransportKind: kind, Detail: kind.String()}
	}
}

func classifyHTTPError(r transport.HTTPError) model.Outcome {
	// A body that is not a JSON object is treated as absent.
	var body map[string]json.RawMessage
	if r.HasBody() {
		body, _ = decodeObject(r.Body)
	}

	if isNothingToView(body) {
		return noTarget(body)
	}
	detail, ok := stringField(body, fieldError)
	if !ok {
		detail = GenericServerErrorDetail
	}
	return model.ServerError{StatusCode: r.StatusCode, Detail: detail}
}

func classifyHTTPOk(r transport.HTTPOk) model.Outcome {
	body, ok := decodeObject(r.Body)
	if !ok {
		return model.ServerError{StatusCode: r.StatusCode, Detail: UnexpectedShapeDetail}
	}

	if isNothingToView(body) {
		return noTarget(body)
	}

	results, ok := objectField(body, fieldResults)
	if !ok {
		return model.ServerError{StatusCode: r.StatusCode, Detail: UnexpectedShapeDetail}
	}

	return model.Success{
		Findings:      projection.Project(results),
		PartialErrors: partialErrors(body[fieldErrors]),
	}
}

func isNothingToView(body map[string]json.RawMessage) bool {
	msg, ok := stringField(body, fieldMessage)
	return ok && msg == NothingToViewMessage
}

func noTarget(body map[string]json.RawMessage) model.NoTarget {
	reason, ok := stringField(body, fieldError)
	if !ok {
		reason = DefaultNoTargetReason
	}
	return model.NoTarget{Reason: reason}
}

// decodeObject decodes a body that must be a JSON object.
func decodeObject(data []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stringField returns a field only when it is a non-empty string.
func stringField(body map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := body[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// objectField returns a field only when it is a JSON object; null is absent.
func objectField(body map[string]json.RawMessage, name string) (map[string]json.RawMessage, bool) {
	raw, ok := body[name]
	if !ok {
		return nil, false
	}
	return decodeObject(raw)
}

// partialErrors converts the "errors" field. Null entries are skipped and
// non-string values keep their JSON text. A non-object value is reported
// under the "errors" key so it is never lost.
func partialErrors(raw json.RawMessage) map[string]string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	obj, ok := decodeObject(trimmed)
	if !ok {
		return map[string]string{fieldErrors: jsonText(trimmed)}
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		out[k] = jsonText(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// jsonText unquotes strings and compacts everything else.
func jsonText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err == nil {
		return buf.String()
	}
	return string(v)
}
