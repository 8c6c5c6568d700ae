package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Bar is one row of a type-count bar chart
type Bar struct {
	Type     string
	Count    int
	Fraction float64 // Count relative to the largest count, in (0, 1]
}

// Bars scales counts against the largest count
func Bars(counts []model.TypeCount) []Bar {
	max := 0
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}

	bars := make([]Bar, 0, len(counts))
	for _, c := range counts {
		frac := 0.0
		if max > 0 {
			frac = float64(c.Count) / float64(max)
		}
		bars = append(bars, Bar{Type: c.Type, Count: c.Count, Fraction: frac})
	}
	return bars
}

// BlockBar renders frac of width as full blocks; any non-zero fraction shows at least one
func BlockBar(frac float64, width int) string {
	if width <= 0 || frac <= 0 {
		return ""
	}
	n := int(frac*float64(width) + 0.5)
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}

// TextChart renders counts as a horizontal bar chart for terminals
func TextChart(counts []model.TypeCount, width int) string {
	if len(counts) == 0 {
		return ""
	}

	label := 0
	for _, c := range counts {
		if n := utf8.RuneCountInString(c.Type); n > label {
			label = n
		}
	}

	var b strings.Builder
	for _, bar := range Bars(counts) {
		pad := label - utf8.RuneCountInString(bar.Type)
		fmt.Fprintf(&b, "  %s%s  %s %d\n", bar.Type, strings.Repeat(" ", pad), BlockBar(bar.Fraction, width), bar.Count)
	}
	return b.String()
}
