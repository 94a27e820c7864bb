package commons

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

const defaultEndpoint = "https://commons.wikimedia.org/w/api.php"

// Client searches Wikimedia Commons and selects the best candidate through
// the scoring pipeline. Highest-priority provider in the cascade; needs no
// API key.
type Client struct {
	endpoint   string
	httpClient *http.Client
	opts       Options
	limit      int
	logger     *slog.Logger

	// fetchDepicts can be disabled to avoid the extra structured-data
	// round trips.
	fetchDepicts bool
}

var _ ports.ImageProvider = (*Client)(nil)

// NewClient builds a Commons provider with the given selection options.
func NewClient(opts Options, logger *slog.Logger) *Client {
	return &Client{
		endpoint:     defaultEndpoint,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		opts:         opts,
		limit:        20,
		logger:       logger,
		fetchDepicts: true,
	}
}

// Name identifies the provider inside the cascade.
func (c *Client) Name() string {
	return providerName
}

// Resolve searches for the keyword, enriches candidates with structured
// depicts labels and runs selection. A nil image with nil error means the
// provider declines and the cascade moves on.
func (c *Client) Resolve(ctx context.Context, keyword, _ string) (*domain.SelectedImage, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, nil
	}

	candidates, pageIDs, err := c.search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("commons search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if c.fetchDepicts {
		if err := c.attachDepicts(ctx, candidates, pageIDs); err != nil {
			// Depicts is enrichment, not a requirement.
			if c.logger != nil {
				c.logger.Debug("depicts lookup failed", "keyword", keyword, "error", err)
			}
		}
	}

	flat := make([]domain.ImageCandidate, len(candidates))
	for i, cand := range candidates {
		flat[i] = *cand
	}
	return SelectBest(keyword, flat, c.opts), nil
}

type extValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			ImageInfo []struct {
				URL            string              `json:"url"`
				DescriptionURL string              `json:"descriptionurl"`
				Width          int                 `json:"width"`
				Height         int                 `json:"height"`
				Mime           string              `json:"mime"`
				SHA1           string              `json:"sha1"`
				ExtMetadata    map[string]extValue `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// search runs one generator=search query over the File namespace and maps
// the results into uniform candidates.
func (c *Client) search(ctx context.Context, keyword string) ([]*domain.ImageCandidate, map[*domain.ImageCandidate]int, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", keyword)
	params.Set("gsrnamespace", "6")
	params.Set("gsrlimit", fmt.Sprintf("%d", c.limit))
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|size|mime|sha1|extmetadata")

	var decoded searchResponse
	if err := c.get(ctx, params, &decoded); err != nil {
		return nil, nil, err
	}

	candidates := make([]*domain.ImageCandidate, 0, len(decoded.Query.Pages))
	pageIDs := make(map[*domain.ImageCandidate]int, len(decoded.Query.Pages))

	for _, page := range decoded.Query.Pages {
		if len(page.ImageInfo) == 0 {
			continue
		}
		info := page.ImageInfo[0]
		meta := info.ExtMetadata

		cand := &domain.ImageCandidate{
			Provider:     providerName,
			Title:        page.Title,
			URL:          info.URL,
			PageURL:      info.DescriptionURL,
			Width:        info.Width,
			Height:       info.Height,
			Mime:         info.Mime,
			SHA1:         info.SHA1,
			License:      stripMarkup(meta["LicenseShortName"].Value),
			LicenseURL:   meta["LicenseUrl"].Value,
			Artist:       meta["Artist"].Value,
			Description:  stripMarkup(meta["ImageDescription"].Value),
			Categories:   splitCategories(meta["Categories"].Value),
			DateOriginal: meta["DateTimeOriginal"].Value,
		}
		candidates = append(candidates, cand)
		pageIDs[cand] = page.PageID
	}

	// Map iteration order is random; keep deterministic downstream order.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Title < candidates[j].Title })
	return candidates, pageIDs, nil
}

// attachDepicts resolves structured P180 (depicts) statements for each
// result page, then the English labels of the depicted entities.
func (c *Client) attachDepicts(ctx context.Context, candidates []*domain.ImageCandidate, pageIDs map[*domain.ImageCandidate]int) error {
	mediaIDs := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		mediaIDs = append(mediaIDs, fmt.Sprintf("M%d", pageIDs[cand]))
	}

	statements, err := c.depictedEntities(ctx, mediaIDs)
	if err != nil {
		return err
	}

	entityIDs := make([]string, 0)
	seen := map[string]bool{}
	for _, ids := range statements {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				entityIDs = append(entityIDs, id)
			}
		}
	}
	if len(entityIDs) == 0 {
		return nil
	}

	labels, err := c.entityLabels(ctx, entityIDs)
	if err != nil {
		return err
	}

	for _, cand := range candidates {
		for _, id := range statements[fmt.Sprintf("M%d", pageIDs[cand])] {
			if label := labels[id]; label != "" {
				cand.Depicts = append(cand.Depicts, label)
			}
		}
	}
	return nil
}

func (c *Client) depictedEntities(ctx context.Context, mediaIDs []string) (map[string][]string, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("format", "json")
	params.Set("ids", strings.Join(mediaIDs, "|"))
	params.Set("props", "claims")

	var decoded struct {
		Entities map[string]struct {
			Statements json.RawMessage `json:"statements"`
		} `json:"entities"`
	}
	if err := c.get(ctx, params, &decoded); err != nil {
		return nil, err
	}

	type snak struct {
		MainSnak struct {
			DataValue struct {
				Value struct {
					ID string `json:"id"`
				} `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	}

	result := make(map[string][]string, len(decoded.Entities))
	for mediaID, entity := range decoded.Entities {
		// Statements arrive as {} for files without structured data.
		var claims map[string][]snak
		if err := json.Unmarshal(entity.Statements, &claims); err != nil {
			continue
		}
		for _, depict := range claims["P180"] {
			if id := depict.MainSnak.DataValue.Value.ID; id != "" {
				result[mediaID] = append(result[mediaID], id)
			}
		}
	}
	return result, nil
}

func (c *Client) entityLabels(ctx context.Context, entityIDs []string) (map[string]string, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("format", "json")
	params.Set("ids", strings.Join(entityIDs, "|"))
	params.Set("props", "labels")
	params.Set("languages", "en")

	var decoded struct {
		Entities map[string]struct {
			Labels map[string]struct {
				Value string `json:"value"`
			} `json:"labels"`
		} `json:"entities"`
	}
	if err := c.get(ctx, params, &decoded); err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(decoded.Entities))
	for id, entity := range decoded.Entities {
		labels[id] = entity.Labels["en"].Value
	}
	return labels, nil
}

func (c *Client) get(ctx context.Context, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPress/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("commons api returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	cats := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cats = append(cats, trimmed)
		}
	}
	return cats
}
