package classifier

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/transport"
)

// TestClassify_NothingToView verifies the sentinel wins regardless of status.
func TestClassify_NothingToView(t *testing.T) {
	t.Parallel()

	body := []byte(`{"message":"nothing to view","error":"bad host"}`)
	tests := []struct {
		name string
		raw  transport.RawOutcome
	}{
		{name: "HTTP 200", raw: transport.HTTPOk{StatusCode: http.StatusOK, Body: body}},
		{name: "HTTP 400", raw: transport.HTTPError{StatusCode: http.StatusBadRequest, Body: body}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.raw)
			nt, ok := got.(model.NoTarget)
			if !ok {
				t.Fatalf("expected NoTarget, got %T", got)
			}
			if nt.Reason != "bad host" {
				t.Errorf("Reason = %q, expected %q", nt.Reason, "bad host")
			}
		})
	}

	t.Run("missing error uses default reason", func(t *testing.T) {
		t.Parallel()

		got := Classify(transport.HTTPOk{StatusCode: http.StatusOK, Body: []byte(`{"message":"nothing to view"}`)})
		if nt, ok := got.(model.NoTarget); !ok || nt.Reason != DefaultNoTargetReason {
			t.Errorf("got %#v, expected NoTarget with default reason", got)
		}
	})

	t.Run("sentinel wins over results", func(t *testing.T) {
		t.Parallel()

		got := Classify(transport.HTTPOk{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"message":"nothing to view","results":{"XSS Test":true}}`),
		})
		if _, ok := got.(model.NoTarget); !ok {
			t.Errorf("expected NoTarget, got %T", got)
		}
	})
}

// TestClassify_NetworkError verifies transport failures need no body.
func TestClassify_NetworkError(t *testing.T) {
	t.Parallel()

	kinds := []model.TransportKind{
		model.TransportTimeout,
		model.TransportConnectionRefused,
		model.TransportUnexpected,
	}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			got := Classify(transport.NetworkError{Kind: kind, Err: errors.New("dial tcp: i/o timeout")})
			tf, ok := got.(model.TransportFailure)
			if !ok {
				t.Fatalf("expected TransportFailure, got %T", got)
			}
			if tf.TransportKind != kind {
				t.Errorf("TransportKind = %v, expected %v", tf.TransportKind, kind)
			}
			if tf.Detail != kind.String() {
				t.Errorf("Detail = %q, expected %q", tf.Detail, kind.String())
			}
		})
	}

	t.Run("nil raw outcome", func(t *testing.T) {
		t.Parallel()
		if _, ok := Classify(nil).(model.TransportFailure); !ok {
			t.Error("expected TransportFailure for nil raw outcome")
		}
	})
}

// TestClassify_ServerError tests error responses and malformed success bodies.
func TestClassify_ServerError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        transport.RawOutcome
		wantStatus int
		wantDetail string
	}{
		{
			name:       "error status with error field",
			raw:        transport.HTTPError{StatusCode: 500, Body: []byte(`{"error":"scanner crashed"}`)},
			wantStatus: 500,
			wantDetail: "scanner crashed",
		},
		{
			name:       "error status without body",
			raw:        transport.HTTPError{StatusCode: 502},
			wantStatus: 502,
			wantDetail: GenericServerErrorDetail,
		},
		{
			name:       "error status with html body",
			raw:        transport.HTTPError{StatusCode: 503, Body: []byte(`<html>unavailable</html>`)},
			wantStatus: 503,
			wantDetail: GenericServerErrorDetail,
		},
		{
			name:       "error status with non-string error",
			raw:        transport.HTTPError{StatusCode: 500, Body: []byte(`{"error":{"code":1}}`)},
			wantStatus: 500,
			wantDetail: GenericServerErrorDetail,
		},
		{
			name:       "ok status with neither field",
			raw:        transport.HTTPOk{StatusCode: 200, Body: []byte(`{"status":"done"}`)},
			wantStatus: 200,
			wantDetail: UnexpectedShapeDetail,
		},
		{
			name:       "ok status with null results",
			raw:        transport.HTTPOk{StatusCode: 200, Body: []byte(`{"message":"Scan completed","results":null}`)},
			wantStatus: 200,
			wantDetail: UnexpectedShapeDetail,
		},
		{
			name:       "ok status with array results",
			raw:        transport.HTTPOk{StatusCode: 200, Body: []byte(`{"results":[1,2]}`)},
			wantStatus: 200,
			wantDetail: UnexpectedShapeDetail,
		},
		{
			name:       "ok status with non-json body",
			raw:        transport.HTTPOk{StatusCode: 200, Body: []byte(`OK`)},
			wantStatus: 200,
			wantDetail: UnexpectedShapeDetail,
		},
		{
			name:       "ok status with empty body",
			raw:        transport.HTTPOk{StatusCode: 204},
			wantStatus: 204,
			wantDetail: UnexpectedShapeDetail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.raw)
			se, ok := got.(model.ServerError)
			if !ok {
				t.Fatalf("expected ServerError, got %T", got)
			}
			if se.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, expected %d", se.StatusCode, tt.wantStatus)
			}
			if se.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, expected %q", se.Detail, tt.wantDetail)
			}
		})
	}
}

// TestClassify_Success tests successful bodies with and without partial errors.
func TestClassify_Success(t *testing.T) {
	t.Parallel()

	t.Run("results with partial errors", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"message": "Scan completed",
			"results": {"Scan Ports": [80], "ip_address": "1.2.3.4", "XSS Test": "Error requesting URL"},
			"errors": {"XSSError": "timed out", "PortError": null, "Other": 3}
		}`)
		got := Classify(transport.HTTPOk{StatusCode: 200, Body: body})
		s, ok := got.(model.Success)
		if !ok {
			t.Fatalf("expected Success, got %T", got)
		}

		ports, ok := s.Findings.Get(model.CheckScanPorts)
		if !ok || ports.IPAddress != "1.2.3.4" {
			t.Errorf("unexpected ports finding: %+v", ports)
		}
		xss, _ := s.Findings.Get(model.CheckXSS)
		if xss.Result.Kind != model.ResultEvaluationFailed {
			t.Errorf("XSS Kind = %v", xss.Result.Kind)
		}

		if len(s.PartialErrors) != 2 {
			t.Fatalf("expected 2 partial errors, got %v", s.PartialErrors)
		}
		if s.PartialErrors["XSSError"] != "timed out" {
			t.Errorf("XSSError = %q", s.PartialErrors["XSSError"])
		}
		if s.PartialErrors["Other"] != "3" {
			t.Errorf("Other = %q", s.PartialErrors["Other"])
		}
	})

	t.Run("null errors are absent", func(t *testing.T) {
		t.Parallel()

		got := Classify(transport.HTTPOk{StatusCode: 200, Body: []byte(`{"results":{},"errors":null}`)})
		s, ok := got.(model.Success)
		if !ok {
			t.Fatalf("expected Success, got %T", got)
		}
		if s.HasPartialErrors() {
			t.Errorf("expected no partial errors, got %v", s.PartialErrors)
		}
		if len(s.Findings.Findings) != 0 {
			t.Errorf("expected empty findings, got %d", len(s.Findings.Findings))
		}
	})

	t.Run("results on an error status are a server error", func(t *testing.T) {
		t.Parallel()

		got := Classify(transport.HTTPError{StatusCode: 500, Body: []byte(`{"results":{"XSS Test":true}}`)})
		if _, ok := got.(model.ServerError); !ok {
			t.Errorf("expected ServerError, got %T", got)
		}
	})
}
