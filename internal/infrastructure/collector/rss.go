package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsPress/internal/domain"
)

// RSSStrategy collects articles from syndication feeds via gofeed.
type RSSStrategy struct {
	parser *gofeed.Parser
}

// NewRSSStrategy wires a feed parser; client may be nil.
func NewRSSStrategy(client *http.Client) *RSSStrategy {
	parser := gofeed.NewParser()
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser.Client = client
	parser.UserAgent = "NewsPress/1.0"
	return &RSSStrategy{parser: parser}
}

// Name identifies the strategy inside the registry.
func (s *RSSStrategy) Name() string {
	return "rss"
}

// Collect parses the feed and maps its items into raw articles.
func (s *RSSStrategy) Collect(ctx context.Context, req Request) ([]domain.RawArticle, error) {
	feed, err := s.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	limit := req.Limit
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	articles := make([]domain.RawArticle, 0, limit)
	for _, item := range feed.Items[:limit] {
		body := item.Content
		if body == "" {
			body = item.Description
		}

		article := domain.RawArticle{
			SourceID: req.SourceKey,
			URL:      item.Link,
			Title:    item.Title,
			Excerpt:  item.Description,
			Body:     body,
			Category: req.Category,
		}
		if item.PublishedParsed != nil {
			published := item.PublishedParsed.UTC()
			article.PublishedAt = &published
		}
		articles = append(articles, article)
	}

	return articles, nil
}
