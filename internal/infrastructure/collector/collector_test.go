package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsPress/internal/config"
	"NewsPress/internal/domain"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Wire</title>
    <item>
      <title>First story</title>
      <link>https://example.org/one</link>
      <description>First excerpt</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Second story</title>
      <link>https://example.org/two</link>
      <description>Second excerpt</description>
    </item>
  </channel>
</rss>`

func TestRSSStrategyCollect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer server.Close()

	s := NewRSSStrategy(server.Client())
	articles, err := s.Collect(context.Background(), Request{
		SourceKey: "wire",
		URL:       server.URL,
		Category:  "World",
		Limit:     1,
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("limit not honored: got %d articles", len(articles))
	}

	got := articles[0]
	if got.SourceID != "wire" || got.Category != "World" {
		t.Fatalf("source/category not stamped: %+v", got)
	}
	if got.Title != "First story" || got.URL != "https://example.org/one" {
		t.Fatalf("unexpected article: %+v", got)
	}
	if got.PublishedAt == nil {
		t.Fatalf("published date missing")
	}
}

const indexHTML = `<html><body>
  <div class="story">
    <h2 class="headline">Council approves budget</h2>
    <a class="more" href="/articles/budget">read</a>
    <p class="teaser">The council voted on Monday.</p>
  </div>
  <div class="story">
    <h2 class="headline"></h2>
    <a class="more" href="/articles/empty">read</a>
  </div>
</body></html>`

const articleHTML = `<html><body>
  <div class="content"><p>The council approved the budget.</p><p>Opponents objected.</p></div>
</body></html>`

func TestHTMLStrategyCollect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/articles/budget" {
			_, _ = w.Write([]byte(articleHTML))
			return
		}
		_, _ = w.Write([]byte(indexHTML))
	}))
	defer server.Close()

	s := NewHTMLStrategy(server.Client())
	articles, err := s.Collect(context.Background(), Request{
		SourceKey: "city-news",
		URL:       server.URL,
		Category:  "Local",
		Options: map[string]string{
			"item":    "div.story",
			"title":   "h2.headline",
			"link":    "a.more",
			"excerpt": "p.teaser",
			"body":    "div.content p",
		},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article (empty title skipped), got %d", len(articles))
	}

	got := articles[0]
	if got.Title != "Council approves budget" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if got.URL != server.URL+"/articles/budget" {
		t.Fatalf("relative link not resolved: %q", got.URL)
	}
	if got.Body != "The council approved the budget.\n\nOpponents objected." {
		t.Fatalf("unexpected body: %q", got.Body)
	}
}

func TestHTMLStrategyRequiresSelectors(t *testing.T) {
	t.Parallel()

	s := NewHTMLStrategy(nil)
	if _, err := s.Collect(context.Background(), Request{SourceKey: "x", URL: "https://example.org"}); err == nil {
		t.Fatalf("expected selector validation error")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Resolve("carrier-pigeon"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

type staticStrategy struct {
	name     string
	articles []domain.RawArticle
	err      error
}

func (s *staticStrategy) Name() string { return s.name }

func (s *staticStrategy) Collect(context.Context, Request) ([]domain.RawArticle, error) {
	return s.articles, s.err
}

func TestSourceCollectIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&staticStrategy{name: "ok", articles: []domain.RawArticle{
		{URL: "https://example.org/a", Title: "A"},
		{URL: "https://example.org/a", Title: "A again"},
		{URL: "https://example.org/b", Title: "B"},
	}})
	reg.Register(&staticStrategy{name: "broken", err: context.DeadlineExceeded})

	src := NewSource(reg, []config.SourceConfig{
		{Name: "good-site", Strategy: "ok"},
		{Name: "bad-site", Strategy: "broken"},
		{Name: "unknown-site", Strategy: "missing"},
	}, nil)

	run, err := src.Collect(context.Background(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if run.ID != "run-20260830-120000" {
		t.Fatalf("unexpected run id: %s", run.ID)
	}
	if len(run.Articles) != 2 {
		t.Fatalf("expected 2 deduped articles, got %d", len(run.Articles))
	}
	if len(run.Sources) != 1 || run.Sources[0].Count != 2 {
		t.Fatalf("unexpected source counts: %+v", run.Sources)
	}
}
