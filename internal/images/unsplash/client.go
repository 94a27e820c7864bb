package unsplash

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
	providerName    = "Unsplash"
	defaultEndpoint = "https://api.unsplash.com/search/photos"
	licenseName     = "Unsplash License"

	curatedScore = 60
)

// Client resolves images from Unsplash. Last provider in the cascade.
type Client struct {
	endpoint   string
	accessKey  string
	minWidth   int
	httpClient *http.Client
}

var _ ports.ImageProvider = (*Client)(nil)

// NewClient wires the access key; an empty key means the provider should
// not be placed in the cascade at all.
func NewClient(accessKey string, minWidth int) *Client {
	if minWidth <= 0 {
		minWidth = 900
	}
	return &Client{
		endpoint:   defaultEndpoint,
		accessKey:  accessKey,
		minWidth:   minWidth,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the provider inside the cascade.
func (c *Client) Name() string {
	return providerName
}

type searchResponse struct {
	Results []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		URLs   struct {
			Full string `json:"full"`
		} `json:"urls"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// Resolve searches for the keyword and returns the first result meeting
// the resolution floor.
func (c *Client) Resolve(ctx context.Context, keyword, category string) (*domain.SelectedImage, error) {
	if c.accessKey == "" {
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
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search unsplash: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash returned %s", resp.Status)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, result := range decoded.Results {
		if result.Width < c.minWidth || result.URLs.Full == "" {
			continue
		}
		credit := fmt.Sprintf("Photo via %s (%s)", providerName, licenseName)
		if result.User.Name != "" {
			credit = fmt.Sprintf("Photo by %s via %s (%s)", result.User.Name, providerName, licenseName)
		}
		return &domain.SelectedImage{
			URL:      result.URLs.Full,
			Width:    result.Width,
			Height:   result.Height,
			Mime:     "image/jpeg",
			Score:    curatedScore,
			Reasons:  []string{"curated stock result"},
			Provider: providerName,
			Author:   result.User.Name,
			License:  licenseName,
			PageURL:  result.Links.HTML,
			Credit:   credit,
		}, nil
	}
	return nil, nil
}
