package rewrite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

const validPayload = `{"title":"T","tickerTitle":"TT","excerpt":"E","body":"B","imageKeyword":"storm","tags":["a","b","c"]}`

type scriptedCompleter struct {
	responses []func(req ports.ChatRequest) (string, error)
	requests  []ports.ChatRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next(req)
}

func respond(text string) func(ports.ChatRequest) (string, error) {
	return func(ports.ChatRequest) (string, error) { return text, nil }
}

func fail(err error) func(ports.ChatRequest) (string, error) {
	return func(ports.ChatRequest) (string, error) { return "", err }
}

func newTestGateway(c ports.ChatCompleter) *Gateway {
	g := NewGateway(c, NewWindow(100, time.Minute), Config{
		Model:      "test-model",
		MaxTokens:  1024,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, nil)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestRewriteSuccess(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){respond(validPayload)}}
	g := newTestGateway(c)

	got, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got.Title != "T" || got.ImageKeyword != "storm" || len(got.Tags) != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if c.requests[0].TokenParam != "max_tokens" {
		t.Fatalf("unexpected initial token param: %s", c.requests[0].TokenParam)
	}
	if c.requests[0].Temperature == nil {
		t.Fatalf("temperature missing from initial request")
	}
}

func TestRewriteParsesFencedJSON(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + validPayload + "\n```"
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){respond(fenced)}}
	g := newTestGateway(c)

	got, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got.TickerTitle != "TT" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRewriteHealsTokenParamOnce(t *testing.T) {
	t.Parallel()

	tokenErr := &ports.APIError{Status: 400, Message: "Unsupported parameter: 'max_tokens' is not supported"}
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(tokenErr),
		respond(validPayload),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	if len(c.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(c.requests))
	}
	if c.requests[1].TokenParam != "max_completion_tokens" {
		t.Fatalf("token param not swapped: %s", c.requests[1].TokenParam)
	}
}

func TestRewriteGivesUpWhenHealRepeats(t *testing.T) {
	t.Parallel()

	tokenErr := &ports.APIError{Status: 400, Message: "unsupported parameter max_completion_tokens"}
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(tokenErr),
		fail(tokenErr),
		fail(tokenErr),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err == nil {
		t.Fatalf("expected failure after repeated contract error")
	}
	if len(c.requests) != 2 {
		t.Fatalf("expected exactly 2 attempts (swap then give up), got %d", len(c.requests))
	}
}

func TestRewriteHealedParamPersistsAcrossRequests(t *testing.T) {
	t.Parallel()

	tokenErr := &ports.APIError{Status: 400, Message: "use max_completion_tokens instead of max_tokens"}
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(tokenErr),
		respond(validPayload),
		respond(validPayload),
	}}
	g := newTestGateway(c)

	ctx := context.Background()
	if _, err := g.Rewrite(ctx, domain.RawArticle{Title: "a", Body: "b"}); err != nil {
		t.Fatalf("first rewrite: %v", err)
	}
	if _, err := g.Rewrite(ctx, domain.RawArticle{Title: "c", Body: "d"}); err != nil {
		t.Fatalf("second rewrite: %v", err)
	}

	last := c.requests[len(c.requests)-1]
	if last.TokenParam != "max_completion_tokens" {
		t.Fatalf("healed param did not persist: %s", last.TokenParam)
	}
}

func TestRewriteDropsTemperatureOnce(t *testing.T) {
	t.Parallel()

	tempErr := &ports.APIError{Status: 400, Message: "'temperature' does not support 0.7 with this model"}
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(tempErr),
		respond(validPayload),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if c.requests[1].Temperature != nil {
		t.Fatalf("temperature still present after heal")
	}
}

func TestRewriteQuotaExhaustionIsFatal(t *testing.T) {
	t.Parallel()

	quotaErr := &ports.APIError{Status: 429, Code: "insufficient_quota", Message: "You exceeded your current quota"}
	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){fail(quotaErr)}}
	g := newTestGateway(c)

	_, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if len(c.requests) != 1 {
		t.Fatalf("quota exhaustion was retried: %d attempts", len(c.requests))
	}
}

func TestRewriteRetriesTransient429(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(&ports.APIError{Status: 429, Message: "rate limit reached"}),
		respond(validPayload),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if len(c.requests) != 2 {
		t.Fatalf("expected retry, got %d attempts", len(c.requests))
	}
}

func TestRewriteBoundsNetworkRetries(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		fail(fmt.Errorf("connection reset")),
		fail(fmt.Errorf("connection reset")),
		fail(fmt.Errorf("connection reset")),
		fail(fmt.Errorf("connection reset")),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err == nil {
		t.Fatalf("expected exhausted retries to fail")
	}
	if len(c.requests) != 3 {
		t.Fatalf("expected maxRetries attempts, got %d", len(c.requests))
	}
}

func TestRewriteRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []func(ports.ChatRequest) (string, error){
		respond(`{"title":"only a title"}`),
	}}
	g := newTestGateway(c)

	if _, err := g.Rewrite(context.Background(), domain.RawArticle{Title: "x", Body: "y"}); err == nil {
		t.Fatalf("expected validation failure")
	}
}
