package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

const (
	providerName    = "Pexels"
	defaultEndpoint = "https://api.pexels.com/v1/search"
	licenseName     = "Pexels License"

	// Curated stock results carry a fixed confidence; they never go through
	// the Commons scorer.
	curatedScore = 60
)

// Client resolves images from the Pexels stock library. Second provider in
// the cascade; results are editorially curated so the first landscape hit
// with enough resolution wins.
type Client struct {
	endpoint   string
	apiKey     string
	minWidth   int
	httpClient *http.Client
}

var _ ports.ImageProvider = (*Client)(nil)

// NewClient wires the API key; an empty key means the provider should not
// be placed in the cascade at all.
func NewClient(apiKey string, minWidth int) *Client {
	if minWidth <= 0 {
		minWidth = 900
	}
	return &Client{
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		minWidth:   minWidth,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the provider inside the cascade.
func (c *Client) Name() string {
	return providerName
}

type searchResponse struct {
	Photos []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// Resolve searches for the keyword (refined by category when present) and
// returns the first landscape photo meeting the resolution floor.
func (c *Client) Resolve(ctx context.Context, keyword, category string) (*domain.SelectedImage, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	query := strings.TrimSpace(keyword)
	if query == "" {
		return nil, nil
	}
	if category != "" {
		query += " " + category
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "landscape")
	params.Set("per_page", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search pexels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels returned %s", resp.Status)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, photo := range decoded.Photos {
		if photo.Width < c.minWidth || photo.Src.Original == "" {
			continue
		}
		credit := fmt.Sprintf("Photo via %s (%s)", providerName, licenseName)
		if photo.Photographer != "" {
			credit = fmt.Sprintf("Photo by %s via %s (%s)", photo.Photographer, providerName, licenseName)
		}
		return &domain.SelectedImage{
			URL:      photo.Src.Original,
			Width:    photo.Width,
			Height:   photo.Height,
			Mime:     "image/jpeg",
			Score:    curatedScore,
			Reasons:  []string{"curated stock result"},
			Provider: providerName,
			Author:   photo.Photographer,
			License:  licenseName,
			PageURL:  photo.URL,
			Credit:   credit,
		}, nil
	}
	return nil, nil
}
