package domain

import "time"

// RawArticle is one scraped article exactly as a collector produced it.
// Immutable once a run has been collected.
type RawArticle struct {
	SourceID    string     `json:"sourceId"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// RewriteResult is the structured document returned by the rewrite API.
type RewriteResult struct {
	Title        string   `json:"title"`
	TickerTitle  string   `json:"tickerTitle"`
	Excerpt      string   `json:"excerpt"`
	Body         string   `json:"body"`
	ImageKeyword string   `json:"imageKeyword"`
	Tags         []string `json:"tags"`
}

// ImageCandidate is provider-reported metadata for one search result,
// normalized into a uniform shape before filtering and scoring.
type ImageCandidate struct {
	Provider     string
	Title        string
	URL          string
	PageURL      string
	Width        int
	Height       int
	Mime         string
	License      string
	LicenseURL   string
	Artist       string
	Description  string
	Categories   []string
	Depicts      []string
	SHA1         string
	CameraMake   string
	CameraModel  string
	DateOriginal string
}

// SelectedImage is the winning candidate with its score, audit reasons
// and resolved credit fields.
type SelectedImage struct {
	URL        string   `json:"url"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Mime       string   `json:"mime"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
	Provider   string   `json:"provider"`
	Author     string   `json:"author,omitempty"`
	License    string   `json:"license,omitempty"`
	LicenseURL string   `json:"licenseUrl,omitempty"`
	PageURL    string   `json:"pageUrl,omitempty"`
	Credit     string   `json:"credit,omitempty"`
}

// ProcessedArticle is the terminal per-article artifact consumed by the
// downstream CMS mapper.
type ProcessedArticle struct {
	Title        string         `json:"title"`
	TickerTitle  string         `json:"tickerTitle"`
	Excerpt      string         `json:"excerpt"`
	Category     string         `json:"category"`
	Body         string         `json:"body"`
	ImageKeyword string         `json:"imageKeyword"`
	Tags         []string       `json:"tags"`
	Image        *SelectedImage `json:"image"`
}

// SourceCount records how many articles one source contributed to a run.
type SourceCount struct {
	SourceKey string `json:"sourceKey"`
	Count     int    `json:"count"`
}

// Run is one batch execution over a fixed set of collected articles.
type Run struct {
	ID       string        `json:"id"`
	Sources  []SourceCount `json:"sources"`
	Articles []RawArticle  `json:"articles"`
}

// ArticleResult pairs the collected input with its processing outcome.
// Processed is nil when the article failed at the rewrite stage.
type ArticleResult struct {
	Original  RawArticle        `json:"original"`
	Processed *ProcessedArticle `json:"processed"`
}

// RunOutcome is the full, auditable result of processing a run.
type RunOutcome struct {
	RunID     string
	Results   []ArticleResult
	Succeeded int
	Failed    int
}

// EntityRef points at a CMS entity, by id when the lookup knows it and by
// a slugged fallback otherwise.
type EntityRef struct {
	ID   string
	Slug string
	Name string
}
