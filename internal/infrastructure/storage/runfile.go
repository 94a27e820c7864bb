package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// FileRunStore persists run artifacts as JSON files in a data directory.
// The field names in both files are load-bearing: the external collection
// layer and the CMS mapper key off them.
type FileRunStore struct {
	dir string
}

var _ ports.RunStore = (*FileRunStore)(nil)

// NewFileRunStore ensures the data directory exists.
func NewFileRunStore(dir string) (*FileRunStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRunStore{dir: dir}, nil
}

type collectedFile struct {
	RunID         string               `json:"runId"`
	CollectedAt   time.Time            `json:"collectedAt"`
	TotalArticles int                  `json:"totalArticles"`
	Sources       []domain.SourceCount `json:"sources,omitempty"`
	Articles      []domain.RawArticle  `json:"articles"`
}

type processedFile struct {
	RunID         string                 `json:"runId"`
	ProcessedAt   time.Time              `json:"processedAt"`
	TotalArticles int                    `json:"totalArticles"`
	Articles      []domain.ArticleResult `json:"articles"`
}

// SaveCollected writes the collected-articles artifact for the run.
func (s *FileRunStore) SaveCollected(run *domain.Run, collectedAt time.Time) error {
	payload := collectedFile{
		RunID:         run.ID,
		CollectedAt:   collectedAt.UTC(),
		TotalArticles: len(run.Articles),
		Sources:       run.Sources,
		Articles:      run.Articles,
	}
	return s.write(s.collectedPath(run.ID), payload)
}

// LoadCollected re-reads a previously collected run, enabling resumption.
func (s *FileRunStore) LoadCollected(runID string) (*domain.Run, error) {
	raw, err := os.ReadFile(s.collectedPath(runID))
	if err != nil {
		return nil, fmt.Errorf("read collected artifact: %w", err)
	}

	var payload collectedFile
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse collected artifact: %w", err)
	}

	return &domain.Run{
		ID:       payload.RunID,
		Sources:  payload.Sources,
		Articles: payload.Articles,
	}, nil
}

// SaveProcessed writes the processed-articles artifact, failed entries
// included, so the run is auditable and resumable.
func (s *FileRunStore) SaveProcessed(outcome *domain.RunOutcome, processedAt time.Time) error {
	payload := processedFile{
		RunID:         outcome.RunID,
		ProcessedAt:   processedAt.UTC(),
		TotalArticles: len(outcome.Results),
		Articles:      outcome.Results,
	}
	return s.write(s.processedPath(outcome.RunID), payload)
}

func (s *FileRunStore) collectedPath(runID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("collected-%s.json", runID))
}

func (s *FileRunStore) processedPath(runID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("processed-%s.json", runID))
}

func (s *FileRunStore) write(path string, payload any) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
