package transport

import "github.com/nao1215/sitescan/internal/model"

// RawOutcome is what one Send call observed, before any interpretation of
// the body. The implementations are HTTPOk, HTTPError and NetworkError.
type RawOutcome interface {
	rawOutcome()
}

// HTTPOk is a response with a 2xx status code.
type HTTPOk struct {
	StatusCode int
	Body       []byte
}

// HTTPError is a response with any non-2xx status code.
// Body is nil when the response carried no body.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Kind model.TransportKind
	Err  error
}

func (HTTPOk) rawOutcome()       {}
func (HTTPError) rawOutcome()    {}
func (NetworkError) rawOutcome() {}

// HasBody reports whether the error response carried a body.
func (e HTTPError) HasBody() bool {
	return e.Body != nil
}

// Detail returns the stringified kind, which is what users are shown.
// The underlying error is only logged.
func (e NetworkError) Detail() string {
	return e.Kind.String()
}
