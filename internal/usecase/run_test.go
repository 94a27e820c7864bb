package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

type fakeCollector struct {
	run *domain.Run
	err error
}

func (c *fakeCollector) Collect(ctx context.Context, now time.Time) (*domain.Run, error) {
	return c.run, c.err
}

type fakeSanitizer struct{}

func (fakeSanitizer) Clean(body string) (string, bool) {
	cleaned := strings.TrimSpace(body)
	return cleaned, cleaned != ""
}

type fakeRewriter struct {
	failURLs map[string]bool
	calls    []string
}

func (r *fakeRewriter) Rewrite(ctx context.Context, article domain.RawArticle) (*domain.RewriteResult, error) {
	r.calls = append(r.calls, article.URL)
	if r.failURLs[article.URL] {
		return nil, errors.New("retries exhausted")
	}
	return &domain.RewriteResult{
		Title:        "Rewritten " + article.Title,
		TickerTitle:  "Ticker",
		Excerpt:      "Excerpt",
		Body:         "Body",
		ImageKeyword: "keyword",
		Tags:         []string{"one", "two", "three"},
	}, nil
}

type fakeImages struct {
	image *domain.SelectedImage
}

func (f *fakeImages) Resolve(ctx context.Context, keyword, category string) *domain.SelectedImage {
	return f.image
}

type fakeStore struct {
	collected *domain.Run
	processed *domain.RunOutcome
	saveErr   error
}

func (s *fakeStore) SaveCollected(run *domain.Run, collectedAt time.Time) error {
	s.collected = run
	return s.saveErr
}

func (s *fakeStore) LoadCollected(runID string) (*domain.Run, error) {
	return s.collected, nil
}

func (s *fakeStore) SaveProcessed(outcome *domain.RunOutcome, processedAt time.Time) error {
	s.processed = outcome
	return s.saveErr
}

type fakeHistory struct {
	known    map[string]bool
	recorded []domain.ArticleResult
	err      error
}

func (h *fakeHistory) AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error) {
	return h.known, h.err
}

func (h *fakeHistory) RecordOutcome(ctx context.Context, runID string, result domain.ArticleResult) error {
	h.recorded = append(h.recorded, result)
	return h.err
}

func testRun(n int) *domain.Run {
	run := &domain.Run{ID: "run-test"}
	for i := 1; i <= n; i++ {
		run.Articles = append(run.Articles, domain.RawArticle{
			SourceID: "src",
			URL:      fmt.Sprintf("https://example.com/%d", i),
			Title:    fmt.Sprintf("Article %d", i),
			Body:     "Some body text.",
		})
	}
	return run
}

func newTestRunner(deps RunnerDeps) (*Runner, *int) {
	r := NewRunner(deps)
	sleeps := 0
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return r, &sleeps
}

func TestExecuteIsolatesRewriteFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	rewriter := &fakeRewriter{failURLs: map[string]bool{"https://example.com/2": true}}
	r, _ := newTestRunner(RunnerDeps{
		Collector: &fakeCollector{run: testRun(3)},
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
		Images:    &fakeImages{image: &domain.SelectedImage{URL: "https://img/x.jpg"}},
		Store:     store,
	})

	if err := r.Execute(context.Background(), time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if store.processed == nil {
		t.Fatal("processed artifact not saved")
	}
	if got := len(store.processed.Results); got != 3 {
		t.Fatalf("want 3 results, got %d", got)
	}
	if store.processed.Results[1].Processed != nil {
		t.Fatal("failed article should have nil processed entry")
	}
	if store.processed.Results[0].Processed == nil || store.processed.Results[2].Processed == nil {
		t.Fatal("surviving articles should have processed entries")
	}
	if store.processed.Succeeded != 2 || store.processed.Failed != 1 {
		t.Fatalf("want 2/1 counts, got %d/%d", store.processed.Succeeded, store.processed.Failed)
	}
	if img := store.processed.Results[0].Processed.Image; img == nil || img.URL != "https://img/x.jpg" {
		t.Fatalf("image not attached: %+v", img)
	}
}

func TestProcessDelaysBetweenArticlesOnly(t *testing.T) {
	t.Parallel()

	r, sleeps := newTestRunner(RunnerDeps{
		Sanitizer:    fakeSanitizer{},
		Rewriter:     &fakeRewriter{},
		ArticleDelay: time.Minute,
	})

	if _, err := r.Process(context.Background(), testRun(3)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if *sleeps != 2 {
		t.Fatalf("want 2 inter-article delays, got %d", *sleeps)
	}
}

func TestProcessStopsBetweenArticlesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rewriter := &fakeRewriter{}
	r, _ := newTestRunner(RunnerDeps{
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
	})
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	outcome, err := r.Process(ctx, testRun(3))
	if err == nil {
		t.Fatal("expected abort error")
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("want 1 completed result before abort, got %d", len(outcome.Results))
	}
	if len(rewriter.calls) != 1 {
		t.Fatalf("want 1 rewrite call, got %d", len(rewriter.calls))
	}
}

func TestExecuteSkipsAlreadyProcessed(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	history := &fakeHistory{known: map[string]bool{"https://example.com/1": true}}
	rewriter := &fakeRewriter{}
	r, _ := newTestRunner(RunnerDeps{
		Collector: &fakeCollector{run: testRun(2)},
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
		Store:     store,
		History:   history,
	})

	if err := r.Execute(context.Background(), time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rewriter.calls) != 1 || rewriter.calls[0] != "https://example.com/2" {
		t.Fatalf("unexpected rewrite calls: %v", rewriter.calls)
	}
	if len(history.recorded) != 1 {
		t.Fatalf("want 1 recorded outcome, got %d", len(history.recorded))
	}
}

func TestExecuteContinuesWhenHistoryFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	history := &fakeHistory{err: errors.New("db down")}
	r, _ := newTestRunner(RunnerDeps{
		Collector: &fakeCollector{run: testRun(2)},
		Sanitizer: fakeSanitizer{},
		Rewriter:  &fakeRewriter{},
		Store:     store,
		History:   history,
	})

	if err := r.Execute(context.Background(), time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := len(store.processed.Results); got != 2 {
		t.Fatalf("want 2 results despite history failures, got %d", got)
	}
}

func TestProcessFailsEmptySanitizedBody(t *testing.T) {
	t.Parallel()

	run := testRun(1)
	run.Articles[0].Body = "   \n  "
	rewriter := &fakeRewriter{}
	r, _ := newTestRunner(RunnerDeps{
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
	})

	outcome, err := r.Process(context.Background(), run)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Failed != 1 || outcome.Results[0].Processed != nil {
		t.Fatalf("empty body should fail the article: %+v", outcome)
	}
	if len(rewriter.calls) != 0 {
		t.Fatal("rewrite should not be called for an empty body")
	}
}

func TestReprocessUsesStoredRun(t *testing.T) {
	t.Parallel()

	store := &fakeStore{collected: testRun(2)}
	history := &fakeHistory{known: map[string]bool{"https://example.com/1": true}}
	rewriter := &fakeRewriter{}
	r, _ := newTestRunner(RunnerDeps{
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
		Store:     store,
		History:   history,
	})

	if err := r.Reprocess(context.Background(), "run-test"); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	// Dedup must not apply on a reprocess.
	if len(rewriter.calls) != 2 {
		t.Fatalf("want both articles rewritten, got %v", rewriter.calls)
	}
	if store.processed == nil || len(store.processed.Results) != 2 {
		t.Fatalf("processed artifact not rewritten: %+v", store.processed)
	}
}

type fakeLookup struct {
	refs map[string]domain.EntityRef
}

func (l *fakeLookup) Resolve(kind ports.LookupKind, name string) domain.EntityRef {
	if ref, ok := l.refs[string(kind)+"/"+name]; ok {
		return ref
	}
	return domain.EntityRef{Slug: name, Name: name}
}

func TestProcessCanonicalizesNamesViaLookup(t *testing.T) {
	t.Parallel()

	run := testRun(1)
	run.Articles[0].Category = "world news"
	lookup := &fakeLookup{refs: map[string]domain.EntityRef{
		"categories/world news": {ID: "c1", Slug: "world", Name: "World"},
		"tags/one":              {ID: "t1", Slug: "one", Name: "One"},
	}}
	r, _ := newTestRunner(RunnerDeps{
		Sanitizer: fakeSanitizer{},
		Rewriter:  &fakeRewriter{},
		Lookup:    lookup,
	})

	outcome, err := r.Process(context.Background(), run)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	processed := outcome.Results[0].Processed
	if processed.Category != "World" {
		t.Fatalf("category not canonicalized: %q", processed.Category)
	}
	if processed.Tags[0] != "One" || processed.Tags[1] != "two" {
		t.Fatalf("tag canonicalization wrong: %v", processed.Tags)
	}
}

func TestExecuteZeroSuccessRunStillPersists(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	rewriter := &fakeRewriter{failURLs: map[string]bool{
		"https://example.com/1": true,
		"https://example.com/2": true,
	}}
	r, _ := newTestRunner(RunnerDeps{
		Collector: &fakeCollector{run: testRun(2)},
		Sanitizer: fakeSanitizer{},
		Rewriter:  rewriter,
		Store:     store,
	})

	if err := r.Execute(context.Background(), time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if store.processed == nil || store.processed.Succeeded != 0 || store.processed.Failed != 2 {
		t.Fatalf("unexpected outcome: %+v", store.processed)
	}
}
