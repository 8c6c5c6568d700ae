package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/lingoscope/internal/observability"
	"github.com/ppiankov/lingoscope/internal/pipeline"
	"github.com/ppiankov/lingoscope/internal/web"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	Long: `Serve starts the browser interface and the JSON API:

  GET  /               text box and check button
  POST /check          the same page with results
  POST /api/v1/check   {"text": "...", "language": "en-US"} -> report JSON
  GET  /healthz        liveness probe

Example:
  lingoscope serve
  lingoscope serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	addLLMFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	level := logLevel
	if level == "" && os.Getenv("LOG_LEVEL") == "" {
		level = cfg.Server.LogLevel
	}
	logger, err := observability.NewLogger(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p := pipeline.NewPipeline(cfg, logger)
	srv, err := web.NewServer(p, cfg, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting lingoscope",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("endpoint", cfg.Grammar.Endpoint),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
