package ports

import (
	"context"
	"fmt"
	"time"

	"NewsPress/internal/domain"
)

// Collector gathers fresh articles from all configured sources into a run.
type Collector interface {
	Collect(ctx context.Context, now time.Time) (*domain.Run, error)
}

// ChatRequest carries one chat-completion call. TokenParam names the
// token-limit parameter to send; the gateway mutates it across heal retries.
type ChatRequest struct {
	System      string
	User        string
	MaxTokens   int
	TokenParam  string
	Temperature *float64
}

// APIError is a structured upstream rejection from the rewrite API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rewrite api %d (%s): %s", e.Status, e.Code, e.Message)
}

// ChatCompleter issues a single chat-completion request and returns the
// raw assistant text.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Rewriter turns a raw article into a structured rewrite, or an error when
// every recovery path is exhausted.
type Rewriter interface {
	Rewrite(ctx context.Context, article domain.RawArticle) (*domain.RewriteResult, error)
}

// ImageProvider resolves a cover image for a keyword, nil when it has none.
type ImageProvider interface {
	Name() string
	Resolve(ctx context.Context, keyword, category string) (*domain.SelectedImage, error)
}

// ImageResolver is the cascade surface the orchestrator consumes.
type ImageResolver interface {
	Resolve(ctx context.Context, keyword, category string) *domain.SelectedImage
}

// Sanitizer cleans an article body; ok is false when nothing survives.
type Sanitizer interface {
	Clean(body string) (cleaned string, ok bool)
}

// RunStore persists the collected and processed artifacts of a run.
type RunStore interface {
	SaveCollected(run *domain.Run, collectedAt time.Time) error
	LoadCollected(runID string) (*domain.Run, error)
	SaveProcessed(outcome *domain.RunOutcome, processedAt time.Time) error
}

// RunHistory records per-article outcomes across runs for dedup and audit.
type RunHistory interface {
	AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error)
	RecordOutcome(ctx context.Context, runID string, result domain.ArticleResult) error
}

// LookupKind selects one of the external CMS entity cache files.
type LookupKind string

const (
	LookupAuthors    LookupKind = "authors"
	LookupCategories LookupKind = "categories"
	LookupTags       LookupKind = "tags"
)

// Lookup maps editorial entity names to CMS references, slugging unknowns.
type Lookup interface {
	Resolve(kind LookupKind, name string) domain.EntityRef
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
