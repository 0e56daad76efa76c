package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output: remediation guidance is printed for
// every check that needs attention, and raw detail payloads are included.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	var sb strings.Builder
	summary := model.NewSummary(report)

	w.writeHeader(&sb, report, summary)

	switch o := report.Outcome.(type) {
	case model.Success:
		w.writeResults(&sb, o)
		w.writeDetails(&sb, o.Findings)
		w.writeNextSteps(&sb, o.Findings)
	case model.NoTarget:
		writeSection(&sb, "NOTHING TO VIEW")
		fmt.Fprintf(&sb, "  %s: %s\n\n", NothingToViewTitle, o.Reason)
	case model.TransportFailure:
		writeSection(&sb, "CONNECTION FAILED")
		fmt.Fprintf(&sb, "  %s (%s)\n", CouldNotConnectTitle, TransportTitle(o.TransportKind))
		if o.Detail != "" {
			fmt.Fprintf(&sb, "  Detail: %s\n", o.Detail)
		}
		sb.WriteString("\n")
	case model.ServerError:
		writeSection(&sb, "SERVER ERROR")
		fmt.Fprintf(&sb, "  %s (HTTP %d)\n", ServerErrorTitle, o.StatusCode)
		fmt.Fprintf(&sb, "  Detail: %s\n\n", o.Detail)
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport, summary model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          SITESCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:         %s\n", report.Target)
	fmt.Fprintf(sb, "Identifier:     %s\n", report.Identifier)
	fmt.Fprintf(sb, "Scan Date:      %s\n", formatDate(report.DateScanned))
	fmt.Fprintf(sb, "Elapsed:        %s\n", formatElapsed(report.Elapsed))
	fmt.Fprintf(sb, "Status:         %s\n", summary.Status)
	sb.WriteString("\n")
}

// writeResults writes the check/result table and partial errors.
func (w *SimpleWriter) writeResults(sb *strings.Builder, s model.Success) {
	writeSection(sb, "SCAN RESULTS")

	if s.HasPartialErrors() {
		fmt.Fprintf(sb, "  Note: %s:\n", PartialErrorsNote)
		for _, e := range sortedErrors(s.PartialErrors) {
			fmt.Fprintf(sb, "    - %s: %s\n", e[0], e[1])
		}
		sb.WriteString("\n")
	}

	if len(s.Findings.Findings) == 0 {
		sb.WriteString("  No checks were reported\n\n")
		return
	}

	for _, f := range s.Findings.Findings {
		indicator := " "
		if f.NeedsAttention() {
			indicator = "!"
		}
		fmt.Fprintf(sb, "  [%s] %-40s %s\n", indicator, f.Label, ResultText(f))
	}
	sb.WriteString("\n")
}

// writeDetails writes the per-check detail payloads.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, fs model.FindingSet) {
	if !fs.HasDetails() {
		return
	}
	details := orderedDetails(fs)

	writeSection(sb, "CHECK DETAILS")
	for _, nd := range details {
		fmt.Fprintf(sb, "  %s:\n", nd.Title)
		d := nd.Detail
		for i, form := range d.Forms {
			fmt.Fprintf(sb, "    Form %d:\n", i+1)
			fmt.Fprintf(sb, "      Action URL: %s\n", form.DisplayAction())
			fmt.Fprintf(sb, "      Method:     %s\n", form.DisplayMethod())
			sb.WriteString("      Input Fields:\n")
			if len(form.Inputs) == 0 {
				sb.WriteString("        No input fields identified within this form.\n")
			}
			for _, in := range form.Inputs {
				fmt.Fprintf(sb, "        * %s (Type: %s)\n", in.DisplayName(), in.DisplayType())
			}
		}
		if d.Narrative != "" {
			fmt.Fprintf(sb, "    %s\n", d.Narrative)
		}
		if len(d.Raw) > 0 {
			if w.verbose {
				fmt.Fprintf(sb, "    %s\n", d.Raw)
			} else {
				sb.WriteString("    (raw payload, use --verbose to show)\n")
			}
		}
		sb.WriteString("\n")
	}
}

// writeNextSteps writes remediation guidance.
func (w *SimpleWriter) writeNextSteps(sb *strings.Builder, fs model.FindingSet) {
	writeSection(sb, "NEXT STEPS")

	steps := NextSteps(fs)
	if len(steps) == 0 {
		fmt.Fprintf(sb, "  %s\n\n", NoNextStepsText)
		return
	}

	for _, step := range steps {
		fmt.Fprintf(sb, "  * %s (%s)\n", step.Label, step.Result)
		fmt.Fprintf(sb, "    %s\n", step.Recommendation)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitescan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// WriteHistory outputs a listing of stored scans.
func (w *SimpleWriter) WriteHistory(records []database.ScanRecord) (int, error) {
	var sb strings.Builder

	writeSection(&sb, "SCAN HISTORY")
	if len(records) == 0 {
		sb.WriteString("  No scans recorded\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "  %-6s %-23s %-18s %s\n", "ID", "SCANNED", "OUTCOME", "TARGET")
	for _, r := range records {
		fmt.Fprintf(&sb, "  %-6d %-23s %-18s %s\n", r.ID, formatDate(r.Timestamp), r.OutcomeKind, r.Target)
		if w.verbose {
			fmt.Fprintf(&sb, "         %s\n", r.Summary.Status)
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// writeSection writes a section title between separators.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}
