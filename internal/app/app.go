package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NewsPress/internal/config"
	"NewsPress/internal/images"
	"NewsPress/internal/images/commons"
	"NewsPress/internal/images/pexels"
	"NewsPress/internal/images/unsplash"
	"NewsPress/internal/infrastructure/collector"
	"NewsPress/internal/infrastructure/llm"
	"NewsPress/internal/infrastructure/lookup"
	"NewsPress/internal/infrastructure/scheduler"
	"NewsPress/internal/infrastructure/storage"
	"NewsPress/internal/logging"
	"NewsPress/internal/ports"
	"NewsPress/internal/rewrite"
	"NewsPress/internal/sanitize"
	"NewsPress/internal/usecase"
)

// Application wires configuration into the run pipeline and its lifecycle.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	runner *usecase.Runner
	sched  *usecase.Scheduler
	db     *sql.DB
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := collector.NewRegistry()
	registry.Register(collector.NewRSSStrategy(nil))
	registry.Register(collector.NewHTMLStrategy(nil))
	source := collector.NewSource(registry, cfg.Sources, baseLogger.With("component", "collector"))

	window := rewrite.NewWindow(cfg.Rewrite.RateLimit.MaxRequests, cfg.Rewrite.RateLimit.Window)
	gateway := rewrite.NewGateway(
		llm.NewOpenAIClient(cfg.Rewrite),
		window,
		rewrite.Config{
			Model:       cfg.Rewrite.Model,
			MaxTokens:   cfg.Rewrite.MaxTokens,
			Temperature: cfg.Rewrite.Temperature,
			MaxRetries:  cfg.Rewrite.MaxRetries,
			RetryDelay:  cfg.Rewrite.RetryDelay,
		},
		baseLogger.With("component", "rewrite"),
	)

	cascade := images.NewCascade(
		baseLogger.With("component", "images"),
		imageProviders(cfg.Images, baseLogger)...,
	)

	store, err := storage.NewFileRunStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init run store: %w", err)
	}

	var db *sql.DB
	var history ports.RunHistory
	if cfg.Storage.DSN != "" {
		db, err = sql.Open("postgres", cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open run history db: %w", err)
		}
		history = storage.NewPostgresHistory(db)
	}

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Collector:    source,
		Sanitizer:    sanitize.New(),
		Rewriter:     gateway,
		Images:       cascade,
		Store:        store,
		History:      history,
		Lookup:       lookup.New(cfg.Lookup.Dir, cfg.Lookup.TTL, baseLogger.With("component", "lookup")),
		Logger:       baseLogger.With("component", "runner"),
		ArticleDelay: cfg.Rewrite.ArticleDelay,
	})

	var sched *usecase.Scheduler
	if cfg.Scheduler.Enabled {
		sched = usecase.NewScheduler(scheduler.NewIntervalScheduler(cfg.Scheduler.Interval), runner)
	}

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		runner: runner,
		sched:  sched,
		db:     db,
	}, nil
}

func imageProviders(cfg config.ImagesConfig, baseLogger *slog.Logger) []ports.ImageProvider {
	providers := []ports.ImageProvider{
		commons.NewClient(commons.Options{
			MinWidth: cfg.MinWidth,
			MinScore: cfg.MinScore,
		}, baseLogger.With("component", "images.commons")),
	}
	if cfg.PexelsKey != "" {
		providers = append(providers, pexels.NewClient(cfg.PexelsKey, cfg.MinWidth))
	}
	if cfg.UnsplashKey != "" {
		providers = append(providers, unsplash.NewClient(cfg.UnsplashKey, cfg.MinWidth))
	}
	return providers
}

// Reprocess reruns the pipeline over an already collected run.
func (a *Application) Reprocess(ctx context.Context, runID string) error {
	defer a.close()
	return a.runner.Reprocess(ctx, runID)
}

// Run executes a single run, or blocks on the interval scheduler when it is
// enabled. Cancellation aborts between articles, never mid-article.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.sched == nil {
		return a.runner.Execute(ctx, time.Now())
	}

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.sched.Stop(stopCtx)
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing run history db", "error", err)
		}
	}
}
