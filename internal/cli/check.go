package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lingoscope/internal/grammar"
	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/observability"
	"github.com/ppiankov/lingoscope/internal/pipeline"
)

var (
	inputText   string
	inputURL    string
	language    string
	outJSON     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [file|-]",
	Short: "Check one piece of English writing",
	Long: `Check sends the text to the grammar service and reports:
- Each issue with the flagged text, a suggestion and an explanation
- Issue counts by type, with a bar chart
- A rough CEFR-like level estimate

The text comes from a file, stdin ("-"), --text or --url.

Example:
  lingoscope check essay.txt
  lingoscope check --text "I has one error in this text."
  cat essay.txt | lingoscope check - --json report.json --md report.md
  lingoscope check --url https://example.com/blog/post --lang en-GB
  lingoscope check essay.txt --llm --llm-provider ollama`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Input flags
	checkCmd.Flags().StringVar(&inputText, "text", "", "text to check")
	checkCmd.Flags().StringVar(&inputURL, "url", "", "web page to fetch and check")
	checkCmd.Flags().StringVar(&language, "lang", "", "language variety (default from config, en-US)")

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// HTTP flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall check timeout")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache (force a fresh check)")

	addLLMFlags(checkCmd)
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM writing feedback")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama, gemini)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

// resolveSource picks exactly one input: a positional file or "-", --text, or --url
func resolveSource(args []string, text, rawURL string, stdinPiped bool) (string, error) {
	given := 0
	source := ""
	if len(args) == 1 {
		given++
		source = args[0]
	}
	if text != "" {
		given++
	}
	if rawURL != "" {
		given++
		source = rawURL
	}

	switch {
	case given > 1:
		return "", errors.New("give only one of a file argument, --text or --url")
	case given == 0 && stdinPiped:
		return pipeline.StdinSource, nil
	case given == 0:
		return "", errors.New("nothing to check: pass a file, \"-\" for stdin, --text or --url")
	}
	return source, nil
}

func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// applyLLMFlags enables feedback and resolves the provider's API key
func applyLLMFlags(cfg *model.Config) error {
	if !llmEnabled {
		return nil
	}

	cfg.LLM.Provider = llmProvider
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	switch strings.ToLower(llmProvider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "gemini", "google":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := resolveSource(args, inputText, inputURL, stdinIsPiped())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", describeSource(source))
		fmt.Fprintf(os.Stderr, "Language: %s\n", cfg.Grammar.Language)
		fmt.Fprintf(os.Stderr, "Service:  %s\n", cfg.Grammar.Endpoint)
		fmt.Fprintf(os.Stderr, "Cache:    %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, logger)

	var report *model.Report
	if inputText != "" {
		report, err = p.Analyze(ctx, pipeline.Request{Text: inputText, Language: cfg.Grammar.Language})
	} else {
		report, err = p.AnalyzeSource(ctx, source)
	}
	if err != nil {
		return describeFailure(err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Found %d issues in %d words\n", len(report.Errors), report.Stats.Words)
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated feedback using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(cmd.OutOrStdout(), report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

func describeSource(source string) string {
	switch source {
	case "":
		return "--text"
	case pipeline.StdinSource:
		return "stdin"
	}
	return source
}

// logLevelOr returns the --log-level flag, or fallback when neither the flag nor LOG_LEVEL is set
func logLevelOr(fallback string) string {
	if logLevel != "" {
		return logLevel
	}
	if os.Getenv("LOG_LEVEL") != "" {
		return ""
	}
	return fallback
}

// describeFailure adds a hint for the distinct grammar-service failures
func describeFailure(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		return fmt.Errorf("%w: please enter some English text first", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w (timed out; raise --timeout for long texts)", err)
	case errors.Is(err, grammar.ErrRateLimited):
		var se *grammar.ServiceError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			return fmt.Errorf("%w (retry in %v)", err, se.RetryAfter)
		}
		return fmt.Errorf("%w (the public API allows 20 requests per minute; wait and retry)", err)
	case errors.Is(err, grammar.ErrUnreachable):
		return fmt.Errorf("%w (check your network or the grammar.endpoint setting)", err)
	}
	return fmt.Errorf("check failed: %w", err)
}
