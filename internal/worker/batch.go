package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Analyzer produces a report for one source (file path or URL)
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.Report, error)
}

// AnalyzeJob analyses a single source
type AnalyzeJob struct {
	Index    int
	Source   string
	Analyzer Analyzer
}

func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzeSource(ctx, j.Source)
	return &AnalyzeResult{
		Index:  j.Index,
		Source: j.Source,
		Report: report,
		Error:  err,
	}
}

// AnalyzeResult is the report or error for one source
type AnalyzeResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses multiple sources concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	progress    func(*AnalyzeResult)
}

// NewBatchProcessor creates a batch processor with the given worker count
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// OnProgress registers fn to be called as each source finishes
func (b *BatchProcessor) OnProgress(fn func(*AnalyzeResult)) *BatchProcessor {
	b.progress = fn
	return b
}

// ProcessSources analyses sources concurrently; results keep the input order.
// Sources never started because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AnalyzeResult {
	if len(sources) == 0 {
		return []*AnalyzeResult{}
	}

	jobs := make([]Job, len(sources))
	for i, source := range sources {
		jobs[i] = &AnalyzeJob{Index: i, Source: source, Analyzer: b.analyzer}
	}

	pool := NewPool(b.concurrency)
	if b.progress != nil {
		pool.OnResult(func(r Result) { b.progress(r.(*AnalyzeResult)) })
	}

	analyzed := make([]*AnalyzeResult, len(sources))
	for _, r := range pool.Run(ctx, jobs) {
		res := r.(*AnalyzeResult)
		analyzed[res.Index] = res
	}

	for i, res := range analyzed {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		analyzed[i] = &AnalyzeResult{Index: i, Source: sources[i], Error: fmt.Errorf("not started: %w", err)}
	}

	return analyzed
}

// ProcessFile reads sources from a list file and analyses them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads file paths or URLs from a list file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
