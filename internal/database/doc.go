// Package database provides SQLite-based scan history for sitescan.
//
// HistoryDB stores every settled scan report as JSON together with its
// target, outcome kind and summary, so past scans can be listed and shown
// again. The history is a record for display only; it is never consulted
// to answer a new scan.
//
// SQLite (via modernc.org/sqlite) keeps the history in a single file
// without CGO. WAL mode lets the HTTP API read while a scan is saved.
package database
