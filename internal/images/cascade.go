package images

import (
	"context"
	"log/slog"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// Cascade tries licensed image providers in strict priority order. The
// first non-nil result wins; provider failures are logged and skipped so a
// broken provider never blocks the fallbacks.
type Cascade struct {
	providers []ports.ImageProvider
	logger    *slog.Logger
}

var _ ports.ImageResolver = (*Cascade)(nil)

// NewCascade wires providers in priority order.
func NewCascade(logger *slog.Logger, providers ...ports.ImageProvider) *Cascade {
	return &Cascade{providers: providers, logger: logger}
}

// Resolve returns the first provider's usable image, or nil when every
// provider declines. The article proceeds without an image in that case.
func (c *Cascade) Resolve(ctx context.Context, keyword, category string) *domain.SelectedImage {
	for _, provider := range c.providers {
		img, err := provider.Resolve(ctx, keyword, category)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("image provider failed", "provider", provider.Name(), "keyword", keyword, "error", err)
			}
			continue
		}
		if img != nil {
			if c.logger != nil {
				c.logger.Info("image resolved", "provider", provider.Name(), "keyword", keyword, "score", img.Score)
			}
			return img
		}
	}

	if c.logger != nil {
		c.logger.Info("no image found", "keyword", keyword)
	}
	return nil
}
