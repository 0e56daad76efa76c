// Package main provides the entry point for the sitescan CLI.
//
// sitescan submits websites to a remote security scan service, classifies
// what the service answers and renders the findings as a report.
//
// Usage:
//
//	sitescan scan <url>
//	sitescan scan site1.example site2.example
//	sitescan history --list
//	sitescan serve
//
// See --help for all available options.
package main

// main is the entry point for sitescan.
func main() {
	Execute()
}
