// Package report renders scan reports and scan history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub-flavored Markdown for sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// Every writer renders check results with the same vocabulary (see
// ResultText), so a report reads the same whichever format is chosen.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
