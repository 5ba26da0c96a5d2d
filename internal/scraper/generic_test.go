package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/maltedev/gomag-importer/internal/fetch"
)

// pad grows a page over the full-page threshold without changing content
func pad(html string) string {
	return html + "<!--" + strings.Repeat("x", fetch.MinFullPage) + "-->"
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderPage(url string, settle time.Duration) (string, error) {
	return f.html, f.err
}

func newFetchClient() *fetch.Client {
	return fetch.New(&fetch.Options{Timeout: 5 * time.Second, MaxTries: 1})
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenericParseJSONLD(t *testing.T) {
	html := pad(`<html><head>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@type": "Product",
			"name": "Stilou promo albastru",
			"sku": "STL-042",
			"description": "Stilou metalic cu gravura laser.",
			"image": ["https://cdn.example.com/p/1.jpg", "https://cdn.example.com/p/2.jpg"],
			"offers": {"price": "14,50", "priceCurrency": "RON"}
		}
		</script>
		</head><body><h1>ignored</h1></body></html>`)

	srv := serve(t, html)
	g := NewGenericScraper(newFetchClient(), nil)

	draft, err := g.Parse(context.Background(), srv.URL+"/stilou-promo")
	require.NoError(t, err)

	assert.Equal(t, "Stilou promo albastru", draft.Title)
	assert.Equal(t, "STL-042", draft.SKU)
	require.NotNil(t, draft.Price)
	assert.InDelta(t, 14.50, *draft.Price, 0.001)
	assert.Len(t, draft.Images, 2)
	assert.Contains(t, draft.DescriptionHTML, "gravura laser")
	assert.Contains(t, draft.Notes, "parsed_with=http")
}

func TestGenericParseJSONLDGraph(t *testing.T) {
	html := pad(`<html><head>
		<script type="application/ld+json">
		{"@graph": [
			{"@type": "WebSite", "name": "shop"},
			{"@type": ["Thing", "Product"], "name": "Rucsac outdoor", "sku": "RX-9"}
		]}
		</script>
		</head><body></body></html>`)

	srv := serve(t, html)
	g := NewGenericScraper(newFetchClient(), nil)

	draft, err := g.Parse(context.Background(), srv.URL+"/rucsac")
	require.NoError(t, err)
	assert.Equal(t, "Rucsac outdoor", draft.Title)
	assert.Equal(t, "RX-9", draft.SKU)
}

func TestGenericParseDOMFallbacks(t *testing.T) {
	html := pad(`<html><head>
		<meta property="og:title" content="Cana ceramica 300ml">
		<meta property="og:description" content="Cana ceramica alba, potrivita pentru personalizare prin serigrafie sau transfer termic.">
		</head><body>
		<span itemprop="sku">CN-300</span>
		<img src="/img/cana-mare.jpg">
		<img src="/img/logo.png">
		<img src="data:image/gif;base64,xyz">
		<p>Pret: 23,90 lei</p>
		</body></html>`)

	srv := serve(t, html)
	g := NewGenericScraper(newFetchClient(), nil)

	draft, err := g.Parse(context.Background(), srv.URL+"/cana")
	require.NoError(t, err)

	assert.Equal(t, "Cana ceramica 300ml", draft.Title)
	assert.Equal(t, "CN-300", draft.SKU)
	require.NotNil(t, draft.Price)
	assert.InDelta(t, 23.90, *draft.Price, 0.001)
	require.Len(t, draft.Images, 1)
	assert.Equal(t, srv.URL+"/img/cana-mare.jpg", draft.Images[0])
	assert.Contains(t, draft.ShortDescription, "serigrafie")
}

func TestGenericFallsBackToBrowserOnBlockedPage(t *testing.T) {
	srv := serve(t, "<html><body>Attention Required! | Cloudflare</body></html>")

	rendered := pad(`<html><head><meta property="og:title" content="Breloc metalic"></head><body></body></html>`)
	g := NewGenericScraper(newFetchClient(), &fakeRenderer{html: rendered})

	draft, err := g.Parse(context.Background(), srv.URL+"/breloc")
	require.NoError(t, err)

	assert.Equal(t, "Breloc metalic", draft.Title)
	assert.Contains(t, draft.Notes, "parsed_with=browser")
}

func TestGenericKeepsDegradedPageWithoutRenderer(t *testing.T) {
	srv := serve(t, `<html><head><title>Umbrela pliabila</title></head><body>short</body></html>`)
	g := NewGenericScraper(newFetchClient(), nil)

	draft, err := g.Parse(context.Background(), srv.URL+"/umbrela")
	require.NoError(t, err)
	assert.Equal(t, "Umbrela pliabila", draft.Title)
	assert.Contains(t, draft.Notes, "fetch=degraded")
}

func TestGenericSKUFallsBackToSlug(t *testing.T) {
	srv := serve(t, pad(`<html><head><title>Produs fara SKU</title></head><body></body></html>`))
	g := NewGenericScraper(newFetchClient(), nil)

	draft, err := g.Parse(context.Background(), srv.URL+"/catalog/pix-verde")
	require.NoError(t, err)
	assert.Contains(t, draft.SKU, "pix-verde")
}
