package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/gomag-importer/internal/fetch"
	"github.com/maltedev/gomag-importer/internal/models"
)

// page content that means the plain fetch hit a consent wall or challenge
// instead of the product page
var blockedMarkers = []string{
	"enable javascript",
	"attention required",
	"access denied",
	"captcha",
	"cloudflare",
	"cookie",
	"cookies",
	"consent",
	"please enable",
	"for full functionality of this site",
}

// GenericScraper handles any supplier site: plain fetch first, browser
// rendering when the page looks blocked, then JSON-LD with DOM fallbacks.
type GenericScraper struct {
	fetcher  *fetch.Client
	renderer Renderer
	logger   *slog.Logger
}

func NewGenericScraper(fetcher *fetch.Client, renderer Renderer) *GenericScraper {
	return &GenericScraper{
		fetcher:  fetcher,
		renderer: renderer,
		logger:   slog.Default().With("component", "generic_scraper"),
	}
}

func (g *GenericScraper) CanHandle(url string) bool {
	return true
}

func (g *GenericScraper) Parse(ctx context.Context, url string) (*models.ProductDraft, error) {
	html, method, notes, err := g.fetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	draft := models.NewDraft(url, DomainOf(url))

	var sku string
	if prod := findProductJSONLD(doc); prod != nil {
		draft.Title = jsonldString(prod, "name")
		sku = jsonldString(prod, "sku")
		if d := jsonldString(prod, "description"); d != "" {
			draft.DescriptionHTML = "<p>" + d + "</p>"
		}
		draft.Images = dedupStrings(jsonldImages(prod), maxImages)
		draft.Price = jsonldPrice(prod)
	}

	if draft.Title == "" {
		draft.Title = extractTitleDOM(doc)
	}
	if draft.DescriptionHTML == "" {
		draft.DescriptionHTML = extractDescriptionDOM(doc)
	}
	if len(draft.Images) == 0 {
		draft.Images = extractImagesDOM(doc, url)
	}
	if draft.Price == nil {
		draft.Price = extractPriceDOM(doc)
	}
	if sku == "" {
		sku = extractSKUDOM(doc)
	}

	draft.SKU = EnsureSKU(url, sku)
	draft.ShortDescription = shortDescription(draft.DescriptionHTML)
	draft.Notes = strings.Join(append([]string{"parsed_with=" + method}, notes...), " | ")

	return draft, nil
}

// fetchHTML tries plain HTTP, then escalates to the browser when the
// response is short, transient, or carries a blocked marker.
func (g *GenericScraper) fetchHTML(ctx context.Context, url string) (html, method string, notes []string, err error) {
	result, fetchErr := g.fetcher.Get(ctx, url)
	if fetchErr == nil && result.FullPage() && !looksBlocked(result.HTML) {
		return result.HTML, "http", nil, nil
	}

	if g.renderer == nil {
		if fetchErr != nil {
			return "", "", nil, fetchErr
		}
		if result.HTML == "" {
			return "", "", nil, ErrEmptyPage
		}
		// degraded page, still worth parsing
		return result.HTML, "http", []string{"fetch=degraded"}, nil
	}

	g.logger.Info("falling back to browser rendering", "url", url)
	rendered, renderErr := g.renderer.RenderPage(url, 2500*time.Millisecond)
	if renderErr == nil {
		return rendered, "browser", []string{"browser_fallback=YES"}, nil
	}

	notes = []string{fmt.Sprintf("browser_failed=%v", renderErr)}
	if fetchErr != nil {
		return "", "", nil, fmt.Errorf("fetch failed (%v) and browser fallback failed: %w", fetchErr, renderErr)
	}
	if result.HTML == "" {
		return "", "", nil, ErrEmptyPage
	}
	return result.HTML, "http", notes, nil
}

func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range blockedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
