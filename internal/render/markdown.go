package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/lingoscope/internal/model"
)

// ErrorBlock renders one error record as a Markdown block, numbered from 1
func ErrorBlock(n int, rec model.ErrorRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Error %d**\n\n", n)
	fmt.Fprintf(&b, "- Error: %s\n", codeSpan(rec.Error))
	fmt.Fprintf(&b, "- Suggestion: %s\n", codeSpan(rec.Suggestion))
	fmt.Fprintf(&b, "- Explanation: %s\n", escapeInline(rec.Explanation))
	fmt.Fprintf(&b, "- Type: %s\n", escapeInline(rec.Type))
	return b.String()
}

// CountsTable renders type counts as a Markdown table with block bars
func CountsTable(counts []model.TypeCount) string {
	var b strings.Builder
	b.WriteString("| Type | Count | |\n|---|---:|---|\n")
	for _, bar := range Bars(counts) {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", escapeInline(bar.Type), bar.Count, BlockBar(bar.Fraction, 20))
	}
	return b.String()
}

// ReportMarkdown renders a complete report
func ReportMarkdown(report *model.Report, includeFooter bool) string {
	var b strings.Builder

	b.WriteString("# LingoScope report\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s  \n", escapeInline(report.Source))
	}
	fmt.Fprintf(&b, "**Language:** %s  \n", report.Language)
	fmt.Fprintf(&b, "**Checked:** %s\n\n", report.CheckedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Level\n\n")
	fmt.Fprintf(&b, "> %s\n\n", LevelBanner(report).Message)

	if len(report.Signals) > 0 {
		b.WriteString("| Rule | Allows up to | Binding | Detail |\n|---|---|---|---|\n")
		for _, s := range report.Signals {
			binding := ""
			if s.Binding {
				binding = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", s.Type, s.Cap, binding, escapeInline(s.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- Words: %d\n", report.Stats.Words)
	fmt.Fprintf(&b, "- Sentences: %d (average %.1f words)\n", report.Stats.Sentences, report.Stats.AvgSentenceLen)
	fmt.Fprintf(&b, "- Connector words: %d\n", report.Stats.Connectors)
	fmt.Fprintf(&b, "- Errors: %d (%.1f%% of words)\n\n", report.Stats.ErrorCount, report.Stats.ErrorRatio*100)

	b.WriteString("## Errors\n\n")
	if !report.HasErrors() {
		fmt.Fprintf(&b, "%s\n\n", ResultBanner(report).Message)
	} else {
		for i, rec := range report.Errors {
			b.WriteString(ErrorBlock(i+1, rec))
			b.WriteString("\n")
		}

		b.WriteString("## Error types\n\n")
		b.WriteString(CountsTable(report.TypeCounts))
		b.WriteString("\n")
	}

	if includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("*Errors come from an external grammar checker. The level is a rough heuristic from text length, ")
		b.WriteString("sentence length, connector words and error ratio, not a formal CEFR assessment.*\n")
	}

	return b.String()
}

// FeedbackMarkdown renders LLM feedback as a standalone document
func FeedbackMarkdown(fb *model.LLMFeedback) string {
	var b strings.Builder
	b.WriteString("# Writing feedback\n\n")
	fmt.Fprintf(&b, "*Generated by %s", fb.Provider)
	if fb.Model != "" {
		fmt.Fprintf(&b, " (%s)", fb.Model)
	}
	b.WriteString(". The level estimate is not affected by this feedback.*\n\n")
	b.WriteString(fb.FeedbackMD)
	b.WriteString("\n")

	if len(fb.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range fb.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// codeSpan wraps s in a code span, widening the fence when s contains backticks
func codeSpan(s string) string {
	if s == "" {
		return "` `"
	}
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "|", `\|`,
	"<", `\<`, ">", `\>`, "[", `\[`, "]", `\]`, "\n", " ",
)

// escapeInline neutralises Markdown syntax in service-provided text
func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}
