package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// ErrQuotaExhausted reports an explicit upstream quota-exhaustion signal.
// It is fatal for the current article and operator-visible; never retried.
var ErrQuotaExhausted = errors.New("rewrite api quota exhausted")

const (
	tokenParamLegacy     = "max_tokens"
	tokenParamCompletion = "max_completion_tokens"
	quotaExhaustedCode   = "insufficient_quota"
)

// Config tunes the gateway retry and rate-limit behavior.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
	RetryDelay  time.Duration
}

// Gateway builds rewrite prompts, enforces the shared rate limit, calls the
// rewrite API and auto-heals known parameter-contract mismatches.
type Gateway struct {
	client ports.ChatCompleter
	window *Window
	cfg    Config
	logger *slog.Logger

	// Parameter-contract state survives across requests so a healed
	// contract is not re-broken on the next article.
	tokenParam     string
	useTemperature bool

	sleep func(ctx context.Context, d time.Duration) error
}

var _ ports.Rewriter = (*Gateway)(nil)

// NewGateway wires the transport, limiter and retry configuration.
func NewGateway(client ports.ChatCompleter, window *Window, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Gateway{
		client:         client,
		window:         window,
		cfg:            cfg,
		logger:         logger,
		tokenParam:     tokenParamLegacy,
		useTemperature: true,
		sleep:          sleepCtx,
	}
}

// healState tracks the one-shot contract fixes applied within a single
// logical request. A failure that repeats after its fix means the upstream
// contract is broken in a way we cannot adapt to, so the request gives up.
type healState struct {
	swappedTokenParam  bool
	droppedTemperature bool
}

// Rewrite runs one logical rewrite request with rate limiting, auto-healing
// and bounded retries. All failures are returned as errors; the orchestrator
// degrades them to a failed article.
func (g *Gateway) Rewrite(ctx context.Context, article domain.RawArticle) (*domain.RewriteResult, error) {
	heal := healState{}
	var lastErr error

	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		if err := g.window.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req := g.buildRequest(article)
		g.window.Record()
		raw, err := g.client.Complete(ctx, req)
		if err == nil {
			result, perr := parseResult(raw)
			if perr != nil {
				return nil, fmt.Errorf("rewrite response invalid: %w", perr)
			}
			return result, nil
		}

		var apiErr *ports.APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Status == 400 && mentionsParam(apiErr.Message, tokenParamLegacy, tokenParamCompletion):
				if heal.swappedTokenParam {
					return nil, fmt.Errorf("token parameter rejected after swap: %w", err)
				}
				g.toggleTokenParam()
				heal.swappedTokenParam = true
				g.warn("healed token-limit parameter", "param", g.tokenParam, "article", article.URL)
				continue

			case apiErr.Status == 400 && mentionsParam(apiErr.Message, "temperature"):
				if heal.droppedTemperature {
					return nil, fmt.Errorf("temperature rejected after drop: %w", err)
				}
				g.useTemperature = false
				heal.droppedTemperature = true
				g.warn("healed temperature parameter", "article", article.URL)
				continue

			case apiErr.Status == 429 && apiErr.Code == quotaExhaustedCode:
				g.error("rewrite quota exhausted", "article", article.URL)
				return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)

			case apiErr.Status == 429 || apiErr.Status >= 500:
				lastErr = err

			default:
				return nil, fmt.Errorf("rewrite rejected: %w", err)
			}
		} else {
			lastErr = err
		}

		backoff := g.cfg.RetryDelay * (1 << attempt)
		g.warn("rewrite attempt failed", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
		if err := g.sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("retry backoff: %w", err)
		}
	}

	return nil, fmt.Errorf("rewrite gave up after %d attempts: %w", g.cfg.MaxRetries, lastErr)
}

func (g *Gateway) buildRequest(article domain.RawArticle) ports.ChatRequest {
	req := ports.ChatRequest{
		System:     systemPrompt,
		User:       buildUserPrompt(article),
		MaxTokens:  g.cfg.MaxTokens,
		TokenParam: g.tokenParam,
	}
	if g.useTemperature {
		temp := g.cfg.Temperature
		req.Temperature = &temp
	}
	return req
}

func (g *Gateway) toggleTokenParam() {
	if g.tokenParam == tokenParamLegacy {
		g.tokenParam = tokenParamCompletion
	} else {
		g.tokenParam = tokenParamLegacy
	}
}

func mentionsParam(message string, params ...string) bool {
	lower := strings.ToLower(message)
	for _, p := range params {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

const systemPrompt = `You are a news editor. Rewrite the supplied article in your own words for publication. Respond with a single JSON object and nothing else, using exactly these fields:
{"title": string (max 160 chars), "tickerTitle": string (max 45 chars), "excerpt": string (max 160 chars), "body": string, "imageKeyword": one single word naming the story's main subject, "tags": exactly 3 short strings}`

func buildUserPrompt(article domain.RawArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", article.Category)
	fmt.Fprintf(&b, "Original title: %s\n", article.Title)
	if article.Excerpt != "" {
		fmt.Fprintf(&b, "Original excerpt: %s\n", article.Excerpt)
	}
	fmt.Fprintf(&b, "\nArticle:\n%s\n", article.Body)
	return b.String()
}

// parseResult decodes the model output, tolerating a fenced code block
// around the JSON payload.
func parseResult(raw string) (*domain.RewriteResult, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	var result domain.RewriteResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if result.Title == "" || result.Body == "" {
		return nil, fmt.Errorf("missing required fields (title=%t body=%t)", result.Title != "", result.Body != "")
	}
	if len(result.Tags) < 3 {
		return nil, fmt.Errorf("got %d tags, need 3", len(result.Tags))
	}
	return &result, nil
}

func (g *Gateway) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func (g *Gateway) error(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Error(msg, args...)
	}
}
