package pexels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveReturnsFirstUsablePhoto(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if got := r.URL.Query().Get("query"); got != "flood Weather" {
			t.Errorf("unexpected query: %q", got)
		}
		_, _ = w.Write([]byte(`{"photos":[
			{"width":640,"height":480,"url":"https://pexels.com/p1","photographer":"Tiny","src":{"original":"https://img/p1"}},
			{"width":3000,"height":2000,"url":"https://pexels.com/p2","photographer":"Grace","src":{"original":"https://img/p2"}}
		]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", 900)
	c.endpoint = server.URL

	got, err := c.Resolve(context.Background(), "flood", "Weather")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.URL != "https://img/p2" {
		t.Fatalf("expected the first photo above the width floor, got %+v", got)
	}
	if got.Credit != "Photo by Grace via Pexels (Pexels License)" {
		t.Fatalf("unexpected credit: %q", got.Credit)
	}
}

func TestResolveWithoutKeyDeclines(t *testing.T) {
	t.Parallel()

	c := NewClient("", 900)
	got, err := c.Resolve(context.Background(), "flood", "")
	if got != nil || err != nil {
		t.Fatalf("expected quiet decline, got %v %v", got, err)
	}
}

func TestResolveAPIFailureIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient("test-key", 900)
	c.endpoint = server.URL

	if _, err := c.Resolve(context.Background(), "flood", ""); err == nil {
		t.Fatalf("expected an error")
	}
}
