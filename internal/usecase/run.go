package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
	"NewsPress/internal/rewrite"
)

// RunnerDeps wires all driven adapters into the run orchestrator.
type RunnerDeps struct {
	Collector ports.Collector
	Sanitizer ports.Sanitizer
	Rewriter  ports.Rewriter
	Images    ports.ImageResolver
	Store     ports.RunStore
	History   ports.RunHistory
	Lookup    ports.Lookup
	Logger    *slog.Logger

	// ArticleDelay is the pause between articles, on top of what the
	// rewrite gateway's own limiter enforces.
	ArticleDelay time.Duration
}

// Runner drives a batch of collected articles through sanitize, rewrite
// and image resolution, isolating per-article failures and persisting the
// run artifacts.
type Runner struct {
	collector ports.Collector
	sanitizer ports.Sanitizer
	rewriter  ports.Rewriter
	images    ports.ImageResolver
	store     ports.RunStore
	history   ports.RunHistory
	lookup    ports.Lookup
	logger    *slog.Logger
	delay     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewRunner constructs the orchestration component.
func NewRunner(deps RunnerDeps) *Runner {
	return &Runner{
		collector: deps.Collector,
		sanitizer: deps.Sanitizer,
		rewriter:  deps.Rewriter,
		images:    deps.Images,
		store:     deps.Store,
		history:   deps.History,
		lookup:    deps.Lookup,
		logger:    deps.Logger,
		delay:     deps.ArticleDelay,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Execute performs one full run: collect, persist the collected artifact,
// drop articles already processed in earlier runs, process the rest and
// persist the processed artifact. The only fatal errors are artifact I/O.
func (r *Runner) Execute(ctx context.Context, trigger time.Time) error {
	if r.collector == nil {
		return nil
	}

	run, err := r.collector.Collect(ctx, trigger)
	if err != nil {
		return fmt.Errorf("collect run: %w", err)
	}

	if r.store != nil {
		if err := r.store.SaveCollected(run, r.now()); err != nil {
			return fmt.Errorf("persist collected artifact: %w", err)
		}
	}

	run.Articles = r.dropAlreadyProcessed(ctx, run.Articles)

	outcome, procErr := r.Process(ctx, run)

	if r.store != nil {
		if err := r.store.SaveProcessed(outcome, r.now()); err != nil {
			return fmt.Errorf("persist processed artifact: %w", err)
		}
	}

	r.info("run finished", "run", run.ID,
		"articles", len(outcome.Results),
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed)
	return procErr
}

// Reprocess loads a previously collected run from the store and runs it
// through the pipeline again, overwriting the processed artifact. The
// cross-run dedup is skipped: redoing is the point of a reprocess.
func (r *Runner) Reprocess(ctx context.Context, runID string) error {
	if r.store == nil {
		return errors.New("no run store configured")
	}

	run, err := r.store.LoadCollected(runID)
	if err != nil {
		return fmt.Errorf("load collected run %s: %w", runID, err)
	}

	outcome, procErr := r.Process(ctx, run)

	if err := r.store.SaveProcessed(outcome, r.now()); err != nil {
		return fmt.Errorf("persist processed artifact: %w", err)
	}

	r.info("reprocess finished", "run", run.ID,
		"articles", len(outcome.Results),
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed)
	return procErr
}

// Process iterates the run's articles strictly one at a time: the rewrite
// gateway sits on a hard shared quota, so articles are never concurrent.
// An aborted context stops between articles; completed results survive.
func (r *Runner) Process(ctx context.Context, run *domain.Run) (*domain.RunOutcome, error) {
	outcome := &domain.RunOutcome{RunID: run.ID}

	for i, article := range run.Articles {
		if i > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return outcome, fmt.Errorf("run aborted between articles: %w", err)
			}
		}

		processed := r.processArticle(ctx, article)
		result := domain.ArticleResult{Original: article, Processed: processed}
		outcome.Results = append(outcome.Results, result)
		if processed != nil {
			outcome.Succeeded++
		} else {
			outcome.Failed++
		}

		r.record(ctx, run.ID, result)
	}

	return outcome, nil
}

// processArticle runs one article through the stages. Every failure path
// returns nil; nothing here can abort the run.
func (r *Runner) processArticle(ctx context.Context, article domain.RawArticle) *domain.ProcessedArticle {
	body := article.Body
	if r.sanitizer != nil {
		cleaned, ok := r.sanitizer.Clean(article.Body)
		if !ok {
			r.warn("article empty after sanitize", "url", article.URL)
			return nil
		}
		body = cleaned
	}

	input := article
	input.Body = body

	result, err := r.rewriter.Rewrite(ctx, input)
	if err != nil {
		if errors.Is(err, rewrite.ErrQuotaExhausted) {
			r.error("rewrite quota exhausted, article failed", "url", article.URL)
		} else {
			r.warn("rewrite failed", "url", article.URL, "error", err)
		}
		return nil
	}

	enforced := rewrite.Enforce(*result)

	var image *domain.SelectedImage
	if r.images != nil {
		image = r.images.Resolve(ctx, enforced.ImageKeyword, article.Category)
	}

	return &domain.ProcessedArticle{
		Title:        enforced.Title,
		TickerTitle:  enforced.TickerTitle,
		Excerpt:      enforced.Excerpt,
		Category:     r.canonical(ports.LookupCategories, article.Category),
		Body:         enforced.Body,
		ImageKeyword: enforced.ImageKeyword,
		Tags:         r.canonicalTags(enforced.Tags),
		Image:        image,
	}
}

// canonical swaps a free-form editorial name for the CMS spelling when the
// lookup knows the entity; unknown names pass through unchanged.
func (r *Runner) canonical(kind ports.LookupKind, name string) string {
	if r.lookup == nil || name == "" {
		return name
	}
	if ref := r.lookup.Resolve(kind, name); ref.ID != "" {
		return ref.Name
	}
	return name
}

func (r *Runner) canonicalTags(tags []string) []string {
	if r.lookup == nil {
		return tags
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = r.canonical(ports.LookupTags, tag)
	}
	return out
}

func (r *Runner) dropAlreadyProcessed(ctx context.Context, articles []domain.RawArticle) []domain.RawArticle {
	if r.history == nil || len(articles) == 0 {
		return articles
	}

	urls := make([]string, len(articles))
	for i, article := range articles {
		urls[i] = article.URL
	}

	skip, err := r.history.AlreadyProcessed(ctx, urls)
	if err != nil {
		r.warn("history lookup failed, processing all articles", "error", err)
		return articles
	}

	kept := articles[:0]
	for _, article := range articles {
		if skip[article.URL] {
			continue
		}
		kept = append(kept, article)
	}
	return kept
}

func (r *Runner) record(ctx context.Context, runID string, result domain.ArticleResult) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordOutcome(ctx, runID, result); err != nil {
		r.warn("history record failed", "url", result.Original.URL, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Runner) error(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
