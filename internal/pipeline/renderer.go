package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/render"
)

// Renderer writes reports to disk and the terminal
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(render.ReportMarkdown(report, r.includeFooter)))
}

// RenderFeedbackMarkdown writes LLM feedback as a separate Markdown file
func (r *Renderer) RenderFeedbackMarkdown(feedback *model.LLMFeedback, path string) error {
	return writeFile(path, []byte(render.FeedbackMarkdown(feedback)))
}

// RenderSummary prints a terminal summary with a bar chart
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report, verbose bool) {
	render.Summary(w, report, verbose)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
