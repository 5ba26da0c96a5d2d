package export

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/maltedev/gomag-importer/internal/models"
)

func TestShortenSKU(t *testing.T) {
	short := "ABC-123"
	assert.Equal(t, short, ShortenSKU(short))

	exact := strings.Repeat("x", MaxSKULen)
	assert.Equal(t, exact, ShortenSKU(exact))

	long := "www-pfconcept-com-ro-ro-pix-metalic-albastru-cu-gravura"
	got := ShortenSKU(long)
	assert.Len(t, got, MaxSKULen)
	assert.True(t, strings.HasPrefix(got, long[:MaxSKULen-9]))

	// deterministic and distinct per input
	assert.Equal(t, got, ShortenSKU(long))
	assert.NotEqual(t, got, ShortenSKU(long+"-alt"))
}

func draftFixture() *models.ProductDraft {
	price := 10.0
	d := models.NewDraft("https://example.com/p/1", "example.com")
	d.SKU = "EX-1"
	d.Title = "Pix metalic"
	d.DescriptionHTML = "<p>Pix metalic cu gravura.</p>"
	d.ShortDescription = "Pix metalic cu gravura."
	d.Images = []string{"https://cdn.example.com/1.jpg", "", "https://cdn.example.com/2.jpg"}
	d.Price = &price
	return d
}

func TestRowMapping(t *testing.T) {
	w := NewWriter("", 21)
	row := w.Row(draftFixture(), "Birotica")

	byHeader := make(map[string]interface{}, len(w.Headers()))
	for i, h := range w.Headers() {
		byHeader[h] = row[i]
	}

	assert.Equal(t, "EX-1", byHeader["Cod Produs (SKU)"])
	assert.Equal(t, "Pix metalic", byHeader["Denumire Produs"])
	assert.Equal(t, 20.0, byHeader["Pret"])
	assert.Equal(t, "", byHeader["Pretul Include TVA"])
	assert.Equal(t, 21, byHeader["Cota TVA"])
	assert.Equal(t, "RON", byHeader["Moneda"])
	assert.Equal(t, 1, byHeader["Stoc Cantitativ"])
	assert.Equal(t, "DA", byHeader["Activ in Magazin"])
	assert.Equal(t, "Birotica", byHeader["Categorie / Categorii"])
	assert.Equal(t, "https://cdn.example.com/1.jpg\nhttps://cdn.example.com/2.jpg", byHeader["URL Poza de Produs"])
}

func TestRowMissingPriceFallsBackToOneRON(t *testing.T) {
	w := NewWriter("", 21)
	d := draftFixture()
	d.Price = nil

	row := w.Row(d, "")
	idx := headerIndex(t, w.Headers(), "Pret")
	assert.Equal(t, 1.0, row[idx])
}

func TestWriteFileRoundTrip(t *testing.T) {
	w := NewWriter("", 21)
	path := filepath.Join(t.TempDir(), "gomag_import.xlsx")

	drafts := []*models.ProductDraft{draftFixture()}
	categories := map[string]string{"https://example.com/p/1": "Birotica"}
	require.NoError(t, w.WriteFile(path, drafts, categories))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, DefaultHeaders, rows[0][:len(DefaultHeaders)])
	assert.Equal(t, "EX-1", rows[1][0])
	assert.Equal(t, "Pix metalic", rows[1][1])
}

func TestLoadTemplateHeaders(t *testing.T) {
	// custom template wins over the defaults
	path := filepath.Join(t.TempDir(), "modelImport.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Cod Produs (SKU)", "Denumire Produs", "Pret"}))
	require.NoError(t, f.SaveAs(path))
	f.Close()

	w := NewWriter(path, 21)
	assert.Equal(t, []string{"Cod Produs (SKU)", "Denumire Produs", "Pret"}, w.Headers())

	// missing template falls back
	w = NewWriter(filepath.Join(t.TempDir(), "missing.xlsx"), 21)
	assert.Equal(t, DefaultHeaders, w.Headers())
}

func headerIndex(t *testing.T, headers []string, name string) int {
	t.Helper()
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	t.Fatalf("header %q not found", name)
	return -1
}
