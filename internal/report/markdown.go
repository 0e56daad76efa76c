package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	md := markdown.NewMarkdown(w.output)
	summary := model.NewSummary(report)

	w.writeHeader(md, report, summary)

	switch o := report.Outcome.(type) {
	case model.Success:
		w.writeResults(md, o)
		w.writeSummary(md, summary, o.Findings)
		w.writeDetails(md, o.Findings)
		w.writeNextSteps(md, o.Findings)
	case model.NoTarget:
		md.H2(NothingToViewTitle)
		md.PlainText("")
		md.Note(o.Reason)
		md.PlainText("")
	case model.TransportFailure:
		md.H2(CouldNotConnectTitle)
		md.PlainText("")
		md.Cautionf("%s: %s", TransportTitle(o.TransportKind), o.Detail)
		md.PlainText("")
	case model.ServerError:
		md.H2(ServerErrorTitle)
		md.PlainText("")
		md.Cautionf("HTTP %d: %s", o.StatusCode, o.Detail)
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport, summary model.Summary) {
	md.H1("Sitescan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", markdown.Code(report.Target)},
			{"Identifier", markdown.Code(report.Identifier.String())},
			{"Scan Date", formatDate(report.DateScanned)},
			{"Elapsed", formatElapsed(report.Elapsed)},
			{"Outcome", OutcomeTitle(summary.Kind)},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the outcome.
func (w *MarkdownWriter) getStatusText(summary model.Summary) string {
	switch {
	case summary.Kind != model.OutcomeSuccess:
		return "❌ " + summary.Status
	case summary.PartialErrors > 0:
		return "⚠️ " + summary.Status
	default:
		return "✅ " + summary.Status
	}
}

// writeResults writes the check/result table and partial errors.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, s model.Success) {
	md.H2("Scan Results")
	md.PlainText("")

	if s.HasPartialErrors() {
		md.Warningf("%s (%d check(s) failed).", PartialErrorsNote, len(s.PartialErrors))
		md.PlainText("")
		rows := make([][]string, 0, len(s.PartialErrors))
		for _, e := range sortedErrors(s.PartialErrors) {
			rows = append(rows, []string{e[0], e[1]})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Check", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(s.Findings.Findings) == 0 {
		md.PlainText("No checks were reported.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Findings.Findings))
	for i, f := range s.Findings.Findings {
		attention := ""
		if f.NeedsAttention() {
			attention = "⚠️"
		}
		rows[i] = []string{f.Label, ResultText(f), attention}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result", "Attention"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the result counts, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary model.Summary, fs model.FindingSet) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{LabelDetected, strconv.Itoa(summary.Detected)},
			{LabelNotDetected, strconv.Itoa(summary.NotDetected)},
			{LabelEvaluationFailed, strconv.Itoa(summary.EvaluationFailed)},
			{"Other", strconv.Itoa(summary.Other)},
			{"**Total**", "**" + strconv.Itoa(summary.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if summary.TotalFindings() > 0 {
		w.writePieChart(md, summary)
	}

	if n := attentionCount(fs); n > 0 {
		md.Warningf("%d check(s) need attention. See Next Steps below.", n)
	} else {
		md.Tip(NoNextStepsText)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the result distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Check Result Distribution"),
		piechart.WithShowData(true),
	)

	if summary.Detected > 0 {
		chart.LabelAndIntValue("Detected", uint64(summary.Detected))
	}
	if summary.NotDetected > 0 {
		chart.LabelAndIntValue("Not Detected", uint64(summary.NotDetected))
	}
	if summary.EvaluationFailed > 0 {
		chart.LabelAndIntValue("Error Checking", uint64(summary.EvaluationFailed))
	}
	if summary.Other > 0 {
		chart.LabelAndIntValue("Other", uint64(summary.Other))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDetails writes the per-check detail payloads.
func (w *MarkdownWriter) writeDetails(md *markdown.Markdown, fs model.FindingSet) {
	if !fs.HasDetails() {
		return
	}
	details := orderedDetails(fs)

	md.H2("Check Details")
	md.PlainText("")

	for _, nd := range details {
		md.H3(nd.Title)
		md.PlainText("")
		d := nd.Detail

		for i, form := range d.Forms {
			md.PlainTextf("%s Action URL: %s, Method: %s",
				markdown.Bold("Form "+strconv.Itoa(i+1)+":"),
				markdown.Code(form.DisplayAction()),
				markdown.Code(form.DisplayMethod()))
			md.PlainText("")
			if len(form.Inputs) == 0 {
				md.PlainText(markdown.Italic("No input fields identified within this form."))
				md.PlainText("")
				continue
			}
			rows := make([][]string, len(form.Inputs))
			for j, in := range form.Inputs {
				rows[j] = []string{markdown.Code(in.DisplayName()), markdown.Code(in.DisplayType())}
			}
			md.Table(markdown.TableSet{
				Header: []string{"Input Field", "Type"},
				Rows:   rows,
			})
			md.PlainText("")
		}

		if d.Narrative != "" {
			md.PlainText(d.Narrative)
			md.PlainText("")
		}
		if len(d.Raw) > 0 {
			md.CodeBlocks(markdown.SyntaxHighlightJSON, string(d.Raw))
			md.PlainText("")
		}
	}
}

// writeNextSteps writes remediation guidance.
func (w *MarkdownWriter) writeNextSteps(md *markdown.Markdown, fs model.FindingSet) {
	md.H2("Next Steps")
	md.PlainText("")

	steps := NextSteps(fs)
	if len(steps) == 0 {
		md.PlainText(NoNextStepsText)
		md.PlainText("")
		return
	}

	items := make([]string, len(steps))
	for i, step := range steps {
		items[i] = markdown.Bold(step.Label) + " (" + step.Result + "): " + step.Recommendation
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText(markdown.Italic("Report generated by sitescan"))
}

// WriteHistory outputs a listing of stored scans as a Markdown table.
func (w *MarkdownWriter) WriteHistory(records []database.ScanRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scan History")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No scans recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			formatDate(r.Timestamp),
			markdown.Code(r.Target),
			r.OutcomeKind,
			truncateString(r.Summary.Status, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Scanned", "Target", "Outcome", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
