// Package transport sends scan requests to the remote scan service.
//
// A Client issues exactly one POST per Send call, carrying the normalized
// identifier as the only payload field, and reports what happened as a
// RawOutcome: the service answered with a 2xx status (HTTPOk), answered with
// any other status (HTTPError), or never answered at all (NetworkError).
// Interpreting the body is left to the classifier package.
//
// The client never retries. The request deadline comes from the configured
// http.Client timeout and from the caller's context.
//
// The service can optionally be reached through a SOCKS5 proxy, and extra
// request headers (for example an API gateway token) can be injected into
// every request.
package transport
