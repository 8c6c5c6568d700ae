package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Summary writes a compact terminal summary: errors, chart and level
func Summary(w io.Writer, report *model.Report, verbose bool) {
	title := "LingoScope"
	if report.Source != "" {
		title += ": " + report.Source
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))

	fmt.Fprintf(w, "Words: %d  Sentences: %d  Avg sentence: %.1f  Connectors: %d\n",
		report.Stats.Words, report.Stats.Sentences, report.Stats.AvgSentenceLen, report.Stats.Connectors)

	if !report.HasErrors() {
		fmt.Fprintf(w, "\n✓ %s\n", ResultBanner(report).Message)
	} else {
		fmt.Fprintf(w, "\n%s\n", ResultBanner(report).Message)
		for i, rec := range report.Errors {
			fmt.Fprintf(w, "  %2d. %q -> %q [%s]\n", i+1, rec.Error, rec.Suggestion, rec.Type)
			if verbose {
				fmt.Fprintf(w, "      %s\n", rec.Explanation)
			}
		}
		fmt.Fprintf(w, "\nBy type:\n%s", TextChart(report.TypeCounts, 30))
	}

	banner := LevelBanner(report)
	marker := "✓"
	if banner.Kind == BannerWarning {
		marker = "!"
	}
	fmt.Fprintf(w, "\n%s %s\n", marker, banner.Message)

	if verbose {
		for _, s := range report.Signals {
			flag := " "
			if s.Binding {
				flag = "*"
			}
			fmt.Fprintf(w, "   %s %-16s ≤ %-6s %s\n", flag, s.Type, s.Cap, s.Description)
		}
	}

	if report.LLM != nil {
		if report.LLM.Enabled {
			fmt.Fprintf(w, "\nFeedback (%s):\n%s\n", report.LLM.Provider, report.LLM.FeedbackMD)
		}
		for _, warning := range report.LLM.Warnings {
			fmt.Fprintf(w, "  note: %s\n", warning)
		}
	}
}
