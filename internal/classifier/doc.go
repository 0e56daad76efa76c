// Package classifier decides which canonical outcome a raw transport result
// represents.
//
// The scan service has no schema and its payload shapes overlap, so the
// decision follows a fixed precedence. The "nothing to view" message wins
// over the HTTP status code, a "results" object on a 2xx response is a
// success, and a 2xx response with neither is a protocol violation reported
// as a server error rather than an empty success.
package classifier
