// Package server exposes scan sessions over HTTP and WebSocket for a
// browser presentation layer.
//
// Every browser session is identified by a UUID carried in the
// sitescan_session cookie or the X-Session-ID header and owns one
// session.Controller. Controllers live in a bounded LRU table; the least
// recently used session is closed when the table is full. Settled scans
// are written to the scan history store when one is configured.
package server
