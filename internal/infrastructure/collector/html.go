package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPress/internal/domain"
)

// Selector option keys understood by the HTML strategy. The item selector
// scopes one article entry on the index page; the rest are relative to it.
const (
	optItem    = "item"
	optTitle   = "title"
	optLink    = "link"
	optExcerpt = "excerpt"
	optBody    = "body"
)

// HTMLStrategy collects articles by scraping a site's index page and, when
// a body selector is configured, each linked article page.
type HTMLStrategy struct {
	client *http.Client
}

// NewHTMLStrategy wires an HTTP client; nil gets a 20s-timeout default.
func NewHTMLStrategy(client *http.Client) *HTMLStrategy {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLStrategy{client: client}
}

// Name identifies the strategy inside the registry.
func (s *HTMLStrategy) Name() string {
	return "html"
}

// Collect scrapes the index page configured for the source.
func (s *HTMLStrategy) Collect(ctx context.Context, req Request) ([]domain.RawArticle, error) {
	itemSel := req.Options[optItem]
	titleSel := req.Options[optTitle]
	linkSel := req.Options[optLink]
	if itemSel == "" || titleSel == "" || linkSel == "" {
		return nil, fmt.Errorf("source %s: html strategy needs item/title/link selectors", req.SourceKey)
	}

	doc, err := s.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceKey, err)
	}

	var articles []domain.RawArticle
	doc.Find(itemSel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := strings.TrimSpace(item.Find(titleSel).First().Text())
		href, _ := item.Find(linkSel).First().Attr("href")
		if title == "" || href == "" {
			return true
		}

		link := resolveLink(req.URL, href)
		article := domain.RawArticle{
			SourceID: req.SourceKey,
			URL:      link,
			Title:    title,
			Category: req.Category,
		}
		if excerptSel := req.Options[optExcerpt]; excerptSel != "" {
			article.Excerpt = strings.TrimSpace(item.Find(excerptSel).First().Text())
		}

		if bodySel := req.Options[optBody]; bodySel != "" {
			body, bErr := s.fetchBody(ctx, link, bodySel)
			if bErr != nil {
				// A missing body page loses one article, not the source.
				return true
			}
			article.Body = body
		} else {
			article.Body = article.Excerpt
		}

		articles = append(articles, article)
		return req.Limit <= 0 || len(articles) < req.Limit
	})

	return articles, nil
}

func (s *HTMLStrategy) fetchBody(ctx context.Context, pageURL, bodySel string) (string, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	var paragraphs []string
	doc.Find(bodySel).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n"), nil
}

func (s *HTMLStrategy) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPress/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func resolveLink(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return parsed.ResolveReference(ref).String()
}
