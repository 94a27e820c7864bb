package lookup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// FileLookup resolves author/category/tag names against the external CMS
// cache files. Explicitly constructed and injected; entries live in a TTL
// cache so a stale file is re-read instead of pinned forever.
type FileLookup struct {
	dir    string
	ttl    time.Duration
	cache  *gocache.Cache
	logger *slog.Logger
}

var _ ports.Lookup = (*FileLookup)(nil)

// New builds a lookup over the given cache directory. The TTL bounds how
// long a loaded file is trusted before the next Resolve re-reads it.
func New(dir string, ttl time.Duration, logger *slog.Logger) *FileLookup {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FileLookup{
		dir:    dir,
		ttl:    ttl,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// cacheFile mirrors the external file shape; entity arrays are keyed by
// kind and entries may carry either a name or a title.
type cacheEntry struct {
	ID    string `json:"_id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Resolve returns the known CMS reference for name, or a slugged fallback
// when the entity is absent from the cache file.
func (l *FileLookup) Resolve(kind ports.LookupKind, name string) domain.EntityRef {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return domain.EntityRef{}
	}

	l.ensureLoaded(kind)

	if cached, ok := l.cache.Get(entryKey(kind, trimmed)); ok {
		if ref, ok := cached.(domain.EntityRef); ok {
			return ref
		}
	}

	return domain.EntityRef{Slug: Slugify(trimmed), Name: trimmed}
}

// Load reads one kind's cache file into the TTL store. Usually implicit
// via Resolve; exposed for an eager warm-up at startup.
func (l *FileLookup) Load(kind ports.LookupKind) error {
	path := filepath.Join(l.dir, fmt.Sprintf("%s.json", kind))
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s cache: %w", kind, err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parse %s cache: %w", kind, err)
	}

	var entries []cacheEntry
	if list, ok := payload[string(kind)]; ok {
		if err := json.Unmarshal(list, &entries); err != nil {
			return fmt.Errorf("parse %s entries: %w", kind, err)
		}
	}

	for _, entry := range entries {
		name := entry.Name
		if name == "" {
			name = entry.Title
		}
		if name == "" {
			continue
		}
		ref := domain.EntityRef{ID: entry.ID, Slug: entry.Slug, Name: name}
		if ref.Slug == "" {
			ref.Slug = Slugify(name)
		}
		l.cache.Set(entryKey(kind, name), ref, gocache.DefaultExpiration)
	}

	l.cache.Set(loadedKey(kind), true, gocache.DefaultExpiration)
	return nil
}

func (l *FileLookup) ensureLoaded(kind ports.LookupKind) {
	if _, ok := l.cache.Get(loadedKey(kind)); ok {
		return
	}
	if err := l.Load(kind); err != nil {
		if l.logger != nil {
			l.logger.Warn("lookup cache unavailable, slugging fallbacks only", "kind", kind, "error", err)
		}
		// Negative marker: avoid hammering a missing file on every Resolve.
		l.cache.Set(loadedKey(kind), false, gocache.DefaultExpiration)
	}
}

func entryKey(kind ports.LookupKind, name string) string {
	return string(kind) + "/" + strings.ToLower(strings.TrimSpace(name))
}

func loadedKey(kind ports.LookupKind) string {
	return "loaded/" + string(kind)
}

var slugScrub = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug the same way the CMS does, so fallback
// references stay addressable.
func Slugify(name string) string {
	slug := slugScrub.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
