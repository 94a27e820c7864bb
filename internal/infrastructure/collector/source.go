package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPress/internal/config"
	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// Source implements ports.Collector via registered collection strategies.
type Source struct {
	registry *Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.Collector = (*Source)(nil)

// NewSource wires the strategy registry with config-defined sources.
func NewSource(reg *Registry, sources []config.SourceConfig, log *slog.Logger) *Source {
	return &Source{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Collect iterates over configured sources and aggregates their articles
// into one run. A failing source is logged and skipped; collection only
// fails when the registry itself is unusable.
func (s *Source) Collect(ctx context.Context, now time.Time) (*domain.Run, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("collector registry is not configured")
	}

	run := &domain.Run{
		ID: fmt.Sprintf("run-%s", now.UTC().Format("20060102-150405")),
	}
	seen := map[string]struct{}{}

	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Strategy)
		if err != nil {
			s.warn("source skipped", "source", src.Name, "error", err)
			continue
		}

		req := Request{
			SourceKey: src.Name,
			URL:       src.URL,
			Category:  src.Category,
			Limit:     src.Count,
			Options:   src.Options,
		}

		articles, err := strategy.Collect(ctx, req)
		if err != nil {
			s.warn("source failed", "source", src.Name, "error", err)
			continue
		}

		count := 0
		for _, article := range articles {
			if article.URL == "" {
				continue
			}
			if _, ok := seen[article.URL]; ok {
				continue
			}
			seen[article.URL] = struct{}{}
			run.Articles = append(run.Articles, article)
			count++
		}

		run.Sources = append(run.Sources, domain.SourceCount{SourceKey: src.Name, Count: count})
		s.debug("source collected", "source", src.Name, "count", count)
	}

	s.debug("collection done", "run", run.ID, "total_articles", len(run.Articles))
	return run, nil
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
