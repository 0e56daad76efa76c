// Package model defines the core data structures used throughout sitescan.
//
// This package contains the following main types:
//   - ScanIdentifier: A normalized host or URL submitted for scanning
//   - CheckName / CheckInfo: The fixed set of security checks and their labels
//   - FindingSet: The projected results of one successful scan
//   - Outcome: The canonical result of one scan submission (a closed union)
//   - ScanReport: A settled outcome with scan metadata, used by writers and history
//
// The models are designed to be serializable to JSON for report output and
// history storage.
package model
