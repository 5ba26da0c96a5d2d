package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDispatch(t *testing.T) {
	generic := NewGenericScraper(newFetchClient(), nil)
	registry := &Registry{
		scrapers: []Scraper{
			NewXDConnectsScraper(nil, "user@example.com", "secret"),
			NewPSIProductFinderScraper(nil, "user", "secret"),
			newDelegateScraper(generic, delegateDomains),
			generic,
		},
	}

	tests := []struct {
		url      string
		expected any
	}{
		{"https://www.xdconnects.com/en-gb/bags/p123.45", &XDConnectsScraper{}},
		{"https://psiproductfinder.de/produkt/kugelschreiber", &PSIProductFinderScraper{}},
		{"https://www.pfconcept.com/ro_ro/pix", &delegateScraper{}},
		{"https://stamina-shop.eu/produs/tricou", &delegateScraper{}},
		{"https://unknown-supplier.example.com/produs", &GenericScraper{}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			s := registry.ForURL(tt.url)
			assert.IsType(t, tt.expected, s)
		})
	}
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "www.example.com", DomainOf("https://www.Example.com/p/1"))
	assert.Equal(t, "", DomainOf("://bad"))
}

func TestHostMatches(t *testing.T) {
	assert.True(t, hostMatches("xdconnects.com", "xdconnects.com"))
	assert.True(t, hostMatches("www.xdconnects.com", "xdconnects.com"))
	assert.False(t, hostMatches("notxdconnects.com", "xdconnects.com"))
}

func TestEnsureSKU(t *testing.T) {
	assert.Equal(t, "ABC-1", EnsureSKU("https://example.com/p", " ABC-1 "))

	sku := EnsureSKU("https://www.pfconcept.com/ro_ro/pix-albastru/", "")
	assert.Contains(t, sku, "pix-albastru")
	assert.LessOrEqual(t, len(sku), 64)

	assert.NotEmpty(t, EnsureSKU("https://example.com/", ""))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\tb   c  "))
	assert.Equal(t, "", CleanText(""))
}
