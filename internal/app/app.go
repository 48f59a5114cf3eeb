// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/bissquit/scorecard-report/internal/config"
	"github.com/bissquit/scorecard-report/internal/cortex"
	"github.com/bissquit/scorecard-report/internal/incidentio"
	"github.com/bissquit/scorecard-report/internal/mattermost"
	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/metrics"
	"github.com/bissquit/scorecard-report/internal/report"
	"github.com/bissquit/scorecard-report/internal/version"
)

type publisher interface {
	Publish(ctx context.Context, title, body string) error
}

// App represents the application instance.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	reports   *report.Service
	renderer  *report.Renderer
	publisher publisher
	out       io.Writer
}

// New creates a new application instance writing reports to out.
// Logs go to stderr.
func New(cfg *config.Config, out io.Writer) (*App, error) {
	return newApp(cfg, out, initLogger(cfg.Log, os.Stderr))
}

func newApp(cfg *config.Config, out io.Writer, logger *slog.Logger) (*App, error) {
	incidents, err := incidentio.NewClient(incidentio.Config{
		BaseURL:        cfg.IncidentIO.BaseURL,
		Token:          cfg.IncidentIO.Token,
		PageSize:       cfg.IncidentIO.PageSize,
		ServiceFieldID: cfg.IncidentIO.ServiceFieldID,
		Timeout:        cfg.IncidentIO.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create incident.io client: %w", err)
	}

	catalog, err := cortex.NewClient(cortex.Config{
		BaseURL:             cfg.Cortex.BaseURL,
		Token:               cfg.Cortex.Token,
		Timeout:             cfg.Cortex.Timeout,
		ServicesPageSize:    cfg.Cortex.ServicesPageSize,
		TargetScorecards:    cfg.Cortex.TargetScorecards,
		RateLimit:           cfg.Cortex.RateLimit,
		DefinitionCacheSize: cfg.Cortex.DefinitionCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create cortex client: %w", err)
	}

	renderer, err := report.NewRenderer(report.RendererConfig{
		MaxServices:     cfg.Report.MaxServices,
		MaxFailingRules: cfg.Report.MaxFailingRules,
		DisplayNames:    cfg.Report.DisplayNames,
	})
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		reports:  report.NewService(incidents, catalog),
		renderer: renderer,
		out:      out,
	}

	if cfg.Mattermost.WebhookURL != "" {
		p, err := mattermost.NewPublisher(mattermost.Config{
			WebhookURL: cfg.Mattermost.WebhookURL,
			Username:   cfg.Mattermost.Username,
			IconURL:    cfg.Mattermost.IconURL,
			Channel:    cfg.Mattermost.Channel,
			Timeout:    cfg.Mattermost.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create mattermost publisher: %w", err)
		}
		a.publisher = p
	}

	return a, nil
}

// Run generates the report for the last lookbackDays days and writes it out.
// A non-positive lookbackDays uses the configured default.
func (a *App) Run(ctx context.Context, lookbackDays int) error {
	if lookbackDays <= 0 {
		lookbackDays = a.config.Report.LookbackDays
	}

	ctx = ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "run_id", uuid.NewString())
	logger := ctxlog.FromContext(ctx)

	logger.Info("generating report",
		"lookback_days", lookbackDays,
		"version", version.Version,
	)

	rep, err := a.reports.GenerateReport(ctx, lookbackDays)
	if err != nil {
		logger.Error("failed to generate report", "error", err)
		return fmt.Errorf("generate report: %w", err)
	}

	text, err := a.renderer.Render(rep)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if _, err := io.WriteString(a.out, text); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	// Metrics are pushed before publishing so a failed post is still recorded.
	a.pushMetrics(ctx)

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, a.config.Mattermost.Title, text); err != nil {
			logger.Error("failed to publish report", "error", err)
			return fmt.Errorf("publish report: %w", err)
		}
		logger.Info("report published to mattermost")
	}

	logger.Info("report completed")
	return nil
}

// pushMetrics exports collected metrics when a Pushgateway is configured.
// Failures are logged only.
func (a *App) pushMetrics(ctx context.Context) {
	url := a.config.Metrics.PushgatewayURL
	if url == "" {
		return
	}

	if err := metrics.Push(ctx, url, a.config.Metrics.Job, nil); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to push metrics", "url", url, "error", err)
		return
	}
	ctxlog.FromContext(ctx).Debug("metrics pushed", "url", url)
}

func initLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
