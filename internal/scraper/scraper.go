package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/fetch"
	"github.com/maltedev/gomag-importer/internal/models"
)

var (
	ErrMissingCredentials = errors.New("missing supplier credentials")
	ErrBlocked            = errors.New("blocked by supplier site")
	ErrEmptyPage          = errors.New("page rendered empty")
)

// Scraper extracts a product draft from a supplier URL.
type Scraper interface {
	CanHandle(url string) bool
	Parse(ctx context.Context, url string) (*models.ProductDraft, error)
}

// Renderer renders JavaScript-heavy pages. *browser.Browser implements it;
// tests inject fakes.
type Renderer interface {
	RenderPage(url string, settle time.Duration) (string, error)
}

// Credentials for the login-gated supplier catalogs.
type Credentials struct {
	PSIUser string
	PSIPass string
	XDUser  string
	XDPass  string
}

// Registry dispatches URLs to the first scraper that claims them. The
// generic scraper sits last and claims everything.
type Registry struct {
	scrapers []Scraper
}

func NewRegistry(fetcher *fetch.Client, b *browser.Browser, creds Credentials) *Registry {
	generic := NewGenericScraper(fetcher, b)

	return &Registry{
		scrapers: []Scraper{
			NewXDConnectsScraper(b, creds.XDUser, creds.XDPass),
			NewPSIProductFinderScraper(b, creds.PSIUser, creds.PSIPass),
			newDelegateScraper(generic, delegateDomains),
			generic,
		},
	}
}

// ForURL returns the scraper responsible for a URL.
func (r *Registry) ForURL(url string) Scraper {
	for _, s := range r.scrapers {
		if s.CanHandle(url) {
			return s
		}
	}
	// unreachable while the generic scraper is registered, kept as a guard
	return r.scrapers[len(r.scrapers)-1]
}

// Supplier domains with no site-specific extraction needs; the generic
// JSON-LD/DOM scraper handles their catalogs fine.
var delegateDomains = []string{
	"pfconcept.com",
	"stamina-shop.eu",
	"andapresent.com",
	"midoceanbrands.com",
	"promobox.ro",
}

type delegateScraper struct {
	generic *GenericScraper
	domains []string
}

func newDelegateScraper(generic *GenericScraper, domains []string) *delegateScraper {
	return &delegateScraper{generic: generic, domains: domains}
}

func (d *delegateScraper) CanHandle(url string) bool {
	host := DomainOf(url)
	for _, domain := range d.domains {
		if hostMatches(host, domain) {
			return true
		}
	}
	return false
}

func (d *delegateScraper) Parse(ctx context.Context, url string) (*models.ProductDraft, error) {
	return d.generic.Parse(ctx, url)
}
