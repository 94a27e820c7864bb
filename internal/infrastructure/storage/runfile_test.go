package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NewsPress/internal/domain"
)

func TestSaveCollectedRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFileRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRunStore: %v", err)
	}

	run := &domain.Run{
		ID:      "run-test",
		Sources: []domain.SourceCount{{SourceKey: "wire", Count: 1}},
		Articles: []domain.RawArticle{
			{SourceID: "wire", URL: "https://example.org/a", Title: "A", Body: "body"},
		},
	}

	if err := store.SaveCollected(run, time.Now()); err != nil {
		t.Fatalf("SaveCollected: %v", err)
	}

	loaded, err := store.LoadCollected("run-test")
	if err != nil {
		t.Fatalf("LoadCollected: %v", err)
	}
	if loaded.ID != run.ID || len(loaded.Articles) != 1 || loaded.Articles[0].URL != "https://example.org/a" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestProcessedArtifactFieldNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileRunStore(dir)
	if err != nil {
		t.Fatalf("NewFileRunStore: %v", err)
	}

	outcome := &domain.RunOutcome{
		RunID: "run-test",
		Results: []domain.ArticleResult{
			{Original: domain.RawArticle{URL: "https://example.org/a"}, Processed: &domain.ProcessedArticle{Title: "T"}},
			{Original: domain.RawArticle{URL: "https://example.org/b"}, Processed: nil},
		},
	}

	if err := store.SaveProcessed(outcome, time.Now()); err != nil {
		t.Fatalf("SaveProcessed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "processed-run-test.json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	// The CMS mapper keys off these exact field names.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	for _, field := range []string{"runId", "processedAt", "totalArticles", "articles"} {
		if _, ok := payload[field]; !ok {
			t.Fatalf("missing field %q in artifact", field)
		}
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(payload["articles"], &entries); err != nil {
		t.Fatalf("parse articles: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("failed entries were dropped: %d", len(entries))
	}
	if string(entries[1]["processed"]) != "null" {
		t.Fatalf("failed entry not serialized as null: %s", entries[1]["processed"])
	}
}
