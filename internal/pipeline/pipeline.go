package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/lingoscope/internal/analyze"
	"github.com/ppiankov/lingoscope/internal/cache"
	"github.com/ppiankov/lingoscope/internal/grammar"
	"github.com/ppiankov/lingoscope/internal/llm"
	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/observability"
	"github.com/ppiankov/lingoscope/internal/util"
	"github.com/ppiankov/lingoscope/internal/worker"
)

// ErrEmptyInput is returned for empty or whitespace-only text; no remote call is made
var ErrEmptyInput = errors.New("no text to check")

// Checker submits text to a grammar service
type Checker interface {
	Check(ctx context.Context, text, language string) (*grammar.Response, error)
}

// Reviewer produces optional LLM feedback for a finished report
type Reviewer interface {
	Review(ctx context.Context, report model.Report) (*model.LLMFeedback, error)
}

// Pipeline orchestrates check, projection, tally, level estimate and feedback
type Pipeline struct {
	checker   Checker
	estimator *analyze.Estimator
	reviewer  Reviewer // Optional (nil if disabled)
	cache     *cache.LayeredCache
	loader    *SourceLoader
	renderer  *Renderer
	config    *model.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Fetched pages get a polite default; the grammar host gets its published allowance
	limiter := worker.NewLimiter(1, 3)
	if u, err := url.Parse(cfg.Grammar.Endpoint); err == nil && u.Host != "" {
		limiter.SetHostRate(u.Host, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}

	client := grammar.NewClient(cfg.Grammar).
		WithLimiter(limiter).
		WithChunkWorkers(cfg.Concurrency.ChunkWorkers)
	var responses *cache.LayeredCache
	if cfg.Cache.Enabled {
		responses = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		client.WithCache(responses, cfg.Cache.DiskTTL)
	}

	transport := util.NewTransport(cfg.Grammar.HTTPProxy, cfg.Grammar.HTTPSProxy, cfg.Grammar.NoProxy)
	fetcher := NewFetcher(cfg.Grammar.Timeout, cfg.Grammar.UserAgent, cfg.Grammar.MaxBodyBytes, transport).
		WithLimiter(limiter)
	robots := util.NewRobotsChecker(cfg.Grammar.UserAgent, cfg.Grammar.Timeout, transport)

	p := &Pipeline{
		checker:   client,
		estimator: analyze.NewEstimator(cfg.Level),
		cache:     responses,
		loader:    NewSourceLoader(fetcher, robots, cfg.Grammar.MaxBodyBytes),
		renderer:  NewRenderer(cfg.Output.IncludeFooter),
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}

	if cfg.LLM.Provider != "" {
		coach, err := llm.NewCoach(llm.ConfigFromModel(cfg))
		if err != nil {
			logger.Warn("LLM feedback disabled", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		} else if coach.IsEnabled() {
			p.reviewer = coach
			logger.Info("LLM feedback enabled", zap.String("provider", coach.ProviderName()), zap.String("model", cfg.LLM.Model))
		}
	}

	return p
}

// WithChecker replaces the grammar service client
func (p *Pipeline) WithChecker(c Checker) *Pipeline {
	p.checker = c
	return p
}

// WithReviewer replaces the feedback generator; nil disables feedback
func (p *Pipeline) WithReviewer(r Reviewer) *Pipeline {
	p.reviewer = r
	return p
}

// CacheStats reports response-cache lookups; ok is false when caching is disabled
func (p *Pipeline) CacheStats() (stats cache.Stats, ok bool) {
	if p.cache == nil {
		return cache.Stats{}, false
	}
	return p.cache.Stats(), true
}

// Request is one text to analyse
type Request struct {
	Text     string
	Language string // Empty uses the configured default
	Source   string // Optional origin shown in reports
}

// Analyze checks req.Text and builds the complete report
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*model.Report, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	language := req.Language
	if language == "" {
		language = p.config.Grammar.Language
	}

	logger := observability.FromContextOr(ctx, p.logger)
	start := p.now()

	// 1. Remote check
	resp, err := p.checker.Check(ctx, text, language)
	if err != nil {
		return nil, fmt.Errorf("grammar check: %w", err)
	}

	// 2. Project matches into error records
	records, err := analyze.Project(text, resp.Matches)
	if err != nil {
		return nil, &grammar.ServiceError{Kind: grammar.ErrMalformedResponse, Err: err}
	}
	if records == nil {
		records = []model.ErrorRecord{}
	}

	// 3. Tally by type
	counts := analyze.Tally(records)

	// 4. Estimate level
	est := p.estimator.Estimate(text, len(records))

	report := &model.Report{
		ID:         uuid.NewString(),
		Source:     req.Source,
		Language:   language,
		CheckedAt:  p.now().UTC(),
		Text:       text,
		Stats:      est.Stats,
		Errors:     records,
		TypeCounts: counts,
		Level:      est.Level,
		Signals:    est.Signals,
	}
	if resp.Language != nil && resp.Language.DetectedLanguage != nil {
		report.Detected = resp.Language.DetectedLanguage.Code
	}

	// 5. Optional LLM feedback (after scoring, never affects the level)
	if p.reviewer != nil {
		feedback, err := p.reviewer.Review(ctx, *report)
		if err != nil {
			logger.Warn("LLM feedback failed", zap.String("report_id", report.ID), zap.Error(err))
		} else if feedback != nil {
			report.LLM = feedback
		}
	}

	logger.Info("text analysed",
		zap.String("report_id", report.ID),
		zap.String("source", report.Source),
		zap.Int("words", report.Stats.Words),
		zap.Int("errors", len(report.Errors)),
		zap.String("level", string(report.Level)),
		zap.Duration("duration", p.now().Sub(start)),
	)

	return report, nil
}

// AnalyzeSource loads text from a file path, URL or "-" (stdin) and analyses it
func (p *Pipeline) AnalyzeSource(ctx context.Context, source string) (*model.Report, error) {
	src, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	report, err := p.Analyze(ctx, Request{Text: src.Text, Source: src.Origin})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return report, nil
}

// RenderReport writes the requested report files and prints the summary to w
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// Feedback goes to its own file so the report stays deterministic
	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		feedbackPath := strings.TrimSuffix(mdPath, ".md") + ".feedback.md"
		if err := p.renderer.RenderFeedbackMarkdown(report.LLM, feedbackPath); err != nil {
			p.logger.Warn("write feedback markdown", zap.String("path", feedbackPath), zap.Error(err))
		} else if verbose {
			fmt.Fprintf(w, "✓ Wrote Feedback: %s\n", feedbackPath)
		}
	}

	p.renderer.RenderSummary(w, report, verbose)

	return nil
}
