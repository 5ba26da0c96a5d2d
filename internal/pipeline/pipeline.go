package pipeline

import (
	"context"
	"log/slog"

	"github.com/maltedev/gomag-importer/internal/models"
	"github.com/maltedev/gomag-importer/internal/ratelimit"
	"github.com/maltedev/gomag-importer/internal/scraper"
)

// Dispatcher resolves a URL to its scraper; *scraper.Registry implements it.
type Dispatcher interface {
	ForURL(url string) scraper.Scraper
}

// Pipeline turns a list of supplier URLs into product drafts, one draft per
// URL regardless of failures.
type Pipeline struct {
	dispatcher Dispatcher
	limiter    *ratelimit.AdaptiveRateLimiter
	logger     *slog.Logger
}

func New(dispatcher Dispatcher, limiter *ratelimit.AdaptiveRateLimiter) *Pipeline {
	return &Pipeline{
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// ScrapeProducts processes URLs sequentially. A failing URL produces an
// error-marker draft so the operator sees the row and can fix it by hand;
// only a cancelled context stops the batch.
func (p *Pipeline) ScrapeProducts(ctx context.Context, urls []string) ([]*models.ProductDraft, error) {
	drafts := make([]*models.ProductDraft, 0, len(urls))

	for i, url := range urls {
		if i > 0 && p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return drafts, err
			}
		}
		if err := ctx.Err(); err != nil {
			return drafts, err
		}

		s := p.dispatcher.ForURL(url)
		draft, err := s.Parse(ctx, url)
		if err != nil {
			p.logger.Warn("scrape failed", "url", url, "error", err)
			if p.limiter != nil {
				p.limiter.RecordError()
			}
			drafts = append(drafts, models.NewErrorDraft(url, err))
			continue
		}

		if p.limiter != nil {
			p.limiter.RecordSuccess()
		}
		p.logger.Info("scraped product", "url", url, "sku", draft.SKU, "title", draft.Title)
		drafts = append(drafts, draft)
	}

	return drafts, nil
}
