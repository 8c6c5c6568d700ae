package web

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/render"
)

// Chart geometry, in SVG user units
const (
	chartLabelWidth = 160
	chartBarWidth   = 320
	chartRowHeight  = 28
	chartBarHeight  = 20
)

// Languages offered in the form
var languages = []string{"en-US", "en-GB", "en-AU", "en-CA", "en-NZ", "en-ZA"}

// pageData is the template model for the single page
type pageData struct {
	Text      string
	Language  string
	Languages []string
	Banners   []render.Banner
	Report    *model.Report
	Errors    []template.HTML
	Counts    []model.TypeCount
	Chart     *chart
	Feedback  template.HTML
}

// chart is an inline SVG bar chart
type chart struct {
	Width  int
	Height int
	Rows   []chartRow
}

type chartRow struct {
	Label      string
	Count      int
	Y          int
	TextY      int
	BarWidth   int
	CountX     int
	LabelWidth int
}

// newChart lays out one bar per type, scaled to the largest count
func newChart(counts []model.TypeCount) *chart {
	if len(counts) == 0 {
		return nil
	}

	c := &chart{
		Width:  chartLabelWidth + chartBarWidth + 48,
		Height: len(counts) * chartRowHeight,
	}
	for i, bar := range render.Bars(counts) {
		width := int(bar.Fraction*chartBarWidth + 0.5)
		if width < 2 {
			width = 2
		}
		y := i * chartRowHeight
		c.Rows = append(c.Rows, chartRow{
			Label:      bar.Type,
			Count:      bar.Count,
			Y:          y + (chartRowHeight-chartBarHeight)/2,
			TextY:      y + chartRowHeight/2 + 5,
			BarWidth:   width,
			CountX:     chartLabelWidth + width + 8,
			LabelWidth: chartLabelWidth - 8,
		})
	}
	return c
}

// markdownHTML converts Markdown to sanitised HTML
func (s *Server) markdownHTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(s.policy.SanitizeBytes(buf.Bytes())), nil
}

// resultPage builds the page model for a finished report
func (s *Server) resultPage(text, language string, report *model.Report) (*pageData, error) {
	data := s.formPage(text, language)
	data.Report = report
	data.Counts = report.TypeCounts
	data.Chart = newChart(report.TypeCounts)
	data.Banners = []render.Banner{render.ResultBanner(report), render.LevelBanner(report)}

	for i, rec := range report.Errors {
		block, err := s.markdownHTML(render.ErrorBlock(i+1, rec))
		if err != nil {
			return nil, err
		}
		data.Errors = append(data.Errors, block)
	}

	if report.LLM != nil && report.LLM.Enabled {
		fb, err := s.markdownHTML(report.LLM.FeedbackMD)
		if err != nil {
			return nil, err
		}
		data.Feedback = fb
	}

	return data, nil
}

// formPage builds the page model with only the form filled in
func (s *Server) formPage(text, language string) *pageData {
	if language == "" {
		language = s.defaultLanguage
	}
	return &pageData{
		Text:      text,
		Language:  language,
		Languages: languages,
	}
}
