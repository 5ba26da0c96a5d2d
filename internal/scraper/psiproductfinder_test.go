package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindFirstString(t *testing.T) {
	state := map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"product": map[string]any{
					"productName": "Thermobecher 400ml",
					"variants":    []any{map[string]any{"sku": "TB-400"}},
				},
			},
		},
	}

	assert.Equal(t, "Thermobecher 400ml", findFirstString(state, psiTitleKeys))
	assert.Equal(t, "", findFirstString(state, []string{"missing"}))
}

func TestBuildDraftFromNextData(t *testing.T) {
	s := NewPSIProductFinderScraper(nil, "user", "secret")

	html := `<html><head>
		<script id="__NEXT_DATA__" type="application/json">
		{"props":{"pageProps":{"product":{
			"name":"Kugelschreiber Alu",
			"description":"Eleganter Kugelschreiber aus Aluminium mit blauer Mine und praktischem Clip fuer den Alltag im Buero."
		}}}}
		</script>
		<meta property="og:image" content="/img/kuli.jpg">
		</head><body></body></html>`

	draft, err := s.buildDraft("https://psiproductfinder.de/produkt/kuli-alu", html, "psi_login=YES")
	require.NoError(t, err)

	assert.Equal(t, "Kugelschreiber Alu", draft.Title)
	assert.Contains(t, draft.DescriptionHTML, "Aluminium")
	assert.True(t, draft.NeedsTranslation)
	require.NotEmpty(t, draft.Images)
	assert.Equal(t, "https://psiproductfinder.de/img/kuli.jpg", draft.Images[0])
	assert.Contains(t, draft.Notes, "psi_login=YES")
}

func TestCleanParagraphs(t *testing.T) {
	paras := []string{
		"Eleganter Kugelschreiber aus Aluminium mit blauer Mine und Metallclip.",
		"Eleganter Kugelschreiber aus Aluminium mit blauer Mine und Metallclip.", // duplicate
		"Login",        // boilerplate
		"kurz",         // too short
		"Angebot anfragen und direkt den Preis vom Lieferanten erhalten hier.", // boilerplate phrase
		"1234567890 1234567890 1234567890 1234567890 12",                       // too few letters
	}

	out := cleanParagraphs(paras)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Kugelschreiber")
}

func TestBestDescriptionHTMLStripsChrome(t *testing.T) {
	html := `<html><body>
		<nav><p>Produktfinder Suche Anmelden Kontakt und weitere Navigation</p></nav>
		<main>
			<p>Hochwertige Thermoflasche aus Edelstahl, doppelwandig isoliert, haelt Getraenke bis zu zwoelf Stunden warm.</p>
			<p>Die Flasche fasst 500 ml und eignet sich hervorragend fuer Lasergravur auf der Mantelflaeche.</p>
		</main>
		<footer><p>Impressum Datenschutz und weitere rechtliche Hinweise der Plattform</p></footer>
	</body></html>`

	out := bestDescriptionHTML(docFrom(t, html))
	assert.Contains(t, out, "Thermoflasche")
	assert.Contains(t, out, "Lasergravur")
	assert.NotContains(t, out, "Impressum")
	assert.NotContains(t, out, "Navigation")
}

func TestParseNextDataMissing(t *testing.T) {
	assert.Nil(t, parseNextData(docFrom(t, "<html><body></body></html>")))
}
