package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/observability"
	"github.com/ppiankov/lingoscope/internal/pipeline"
	"github.com/ppiankov/lingoscope/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many texts listed in a file",
	Long: `Batch checks several texts concurrently:
- Read file paths or URLs from the list file (one per line, # comments)
- Check them with a bounded worker pool
- Write a JSON and a Markdown report for each entry
- Print a summary of levels and issue counts

Requests to the grammar service stay within its rate limit however many
workers run.

Example:
  lingoscope batch essays.txt
  lingoscope batch essays.txt --concurrency 2 --output-dir ./reports
  lingoscope batch urls.txt --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./lingoscope-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&language, "lang", "", "language variety (default from config, en-US)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache (force fresh checks)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	addLLMFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if language != "" {
		cfg.Grammar.Language = language
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = verbose
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	logger, err := observability.NewLogger(logLevelOr("warn"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  LingoScope Batch Check\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Language:     %s\n", cfg.Grammar.Language)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg, logger)
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	summary := newBatchSummary()
	handled := make(map[int]bool)

	// Reports are written as each source finishes so a timeout keeps earlier work
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers).
		OnProgress(func(result *worker.AnalyzeResult) {
			handled[result.Index] = true
			writeBatchResult(renderer, summary, result)
		})

	fmt.Fprintf(os.Stderr, "⚙️  Checking sources with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	for _, result := range results {
		if !handled[result.Index] {
			summary.failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
		}
	}

	if stats, ok := p.CacheStats(); ok {
		summary.cacheHits = stats.Hits()
	}
	summary.print(os.Stderr, len(results), outputDir)
	return nil
}

// writeBatchResult writes the JSON and Markdown reports for one finished source
func writeBatchResult(renderer *pipeline.Renderer, summary *batchSummary, result *worker.AnalyzeResult) {
	if result.Error != nil {
		summary.failures++
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
		return
	}

	base := fmt.Sprintf("%03d-%s", result.Index+1, sanitizeFilename(result.Source))
	jsonPath := filepath.Join(outputDir, base+".json")
	mdPath := filepath.Join(outputDir, base+".md")

	if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
		summary.failures++
		fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
		return
	}
	if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
		summary.failures++
		fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
		return
	}

	summary.add(result.Report)
	fmt.Fprintf(os.Stderr, "✓ %s (level: %s, issues: %d)\n", result.Source, result.Report.Level, len(result.Report.Errors))
}

// batchSummary aggregates reports across a batch
type batchSummary struct {
	successes int
	failures  int
	words     int
	errors    int
	cacheHits int64
	levels    map[model.Level]int
	types     map[string]int
}

func newBatchSummary() *batchSummary {
	return &batchSummary{
		levels: make(map[model.Level]int),
		types:  make(map[string]int),
	}
}

func (s *batchSummary) add(report *model.Report) {
	s.successes++
	s.words += report.Stats.Words
	s.errors += len(report.Errors)
	s.levels[report.Level]++
	for _, tc := range report.TypeCounts {
		s.types[tc.Type] += tc.Count
	}
}

// typeCounts returns the aggregated counts in display order
func (s *batchSummary) typeCounts() []model.TypeCount {
	counts := make([]model.TypeCount, 0, len(s.types))
	for t, n := range s.types {
		counts = append(counts, model.TypeCount{Type: t, Count: n})
	}
	model.SortTypeCounts(counts)
	return counts
}

func (s *batchSummary) print(w io.Writer, total int, dir string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Total:     %d sources\n", total)
	fmt.Fprintf(w, "  Success:   %d\n", s.successes)
	fmt.Fprintf(w, "  Failures:  %d\n", s.failures)
	fmt.Fprintf(w, "  Words:     %d\n", s.words)
	fmt.Fprintf(w, "  Issues:    %d\n", s.errors)
	fmt.Fprintf(w, "  Cached:    %d\n", s.cacheHits)
	fmt.Fprintf(w, "  Output:    %s\n", dir)

	if s.successes > 0 {
		fmt.Fprintf(w, "\n  Levels:\n")
		for _, level := range model.Levels() {
			if n := s.levels[level]; n > 0 {
				fmt.Fprintf(w, "    %-22s %d\n", level, n)
			}
		}
	}
	if counts := s.typeCounts(); len(counts) > 0 {
		fmt.Fprintf(w, "\n  Issues by type:\n")
		for _, tc := range counts {
			fmt.Fprintf(w, "    %-22s %d\n", tc.Type, tc.Count)
		}
	}
	fmt.Fprintf(w, "\n")
}

// maxFilenameBytes keeps report names well under common file system limits
const maxFilenameBytes = 100

// sanitizeFilename turns a path or URL into a short, safe file name stem
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s = strings.TrimSuffix(s, "/")
	if s == pipeline.StdinSource {
		return "stdin"
	}
	s = strings.TrimSuffix(s, filepath.Ext(s))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"&", "_",
		"=", "_",
		" ", "-",
	)
	s = strings.Trim(replacer.Replace(s), "._-")
	if s == "" {
		return "source"
	}

	if len(s) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
