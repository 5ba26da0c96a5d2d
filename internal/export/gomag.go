package export

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/maltedev/gomag-importer/internal/models"
)

// MaxSKULen is Gomag's hard SKU length limit.
const MaxSKULen = 30

// Column names of Gomag's "Model import" sheet. Used verbatim when the
// template workbook is not available.
var DefaultHeaders = []string{
	"Cod Produs (SKU)",
	"Denumire Produs",
	"Descriere Produs",
	"Descriere Scurta a Produsului",
	"URL Poza de Produs",
	"Pret",
	"Pretul Include TVA",
	"Cota TVA",
	"Moneda",
	"Stoc Cantitativ",
	"Activ in Magazin",
	"Categorie / Categorii",
}

// Writer builds Gomag import workbooks from product drafts.
type Writer struct {
	headers []string
	vatRate int
	logger  *slog.Logger
}

func NewWriter(templatePath string, vatRate int) *Writer {
	return &Writer{
		headers: loadTemplateHeaders(templatePath),
		vatRate: vatRate,
		logger:  slog.Default().With("component", "export"),
	}
}

// loadTemplateHeaders reads the header row of Gomag's import template so
// the export stays in sync with whatever the shop downloaded; any failure
// falls back to the built-in list.
func loadTemplateHeaders(path string) []string {
	if path == "" {
		return DefaultHeaders
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return DefaultHeaders
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil || len(rows) == 0 {
		return DefaultHeaders
	}

	var headers []string
	for _, h := range rows[0] {
		if strings.TrimSpace(h) != "" {
			headers = append(headers, h)
		}
	}
	if len(headers) == 0 {
		return DefaultHeaders
	}
	return headers
}

func (w *Writer) Headers() []string {
	return w.headers
}

// ShortenSKU caps a SKU at Gomag's 30-char limit, keeping the result
// deterministic and collision-resistant via a sha1 suffix.
func ShortenSKU(sku string) string {
	sku = strings.TrimSpace(sku)
	if len(sku) <= MaxSKULen {
		return sku
	}

	sum := sha1.Sum([]byte(sku))
	h := hex.EncodeToString(sum[:])[:8]
	prefix := sku[:MaxSKULen-1-len(h)]
	return prefix + "-" + h
}

// Row maps one draft onto the template columns. Unknown columns stay empty.
func (w *Writer) Row(d *models.ProductDraft, category string) []interface{} {
	values := map[string]interface{}{
		"Cod Produs (SKU)":              ShortenSKU(d.SKU),
		"Denumire Produs":               d.Title,
		"Descriere Produs":              d.DescriptionHTML,
		"Descriere Scurta a Produsului": d.ShortDescription,
		"URL Poza de Produs":            strings.Join(nonEmpty(d.Images), "\n"),
		"Pret":                          math.Round(d.PriceFinal()*100) / 100,
		"Moneda":                        models.DefaultCurrency,
		"Stoc Cantitativ":               1,
		"Activ in Magazin":              "DA",
		// "Pretul Include TVA" is left empty on purpose: filling it can
		// conflict with the parent-variant setting and Gomag then rejects
		// the row. The shop-level default applies.
		"Cota TVA":              w.vatRate,
		"Categorie / Categorii": category,
	}

	row := make([]interface{}, len(w.headers))
	for i, h := range w.headers {
		if v, ok := values[h]; ok {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	return row
}

// WriteFile writes the import workbook for a batch of drafts. Categories
// are keyed by source URL, matching how the operator assigns them.
func (w *Writer) WriteFile(path string, drafts []*models.ProductDraft, categories map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(w.headers))
	for i, h := range w.headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, d := range drafts {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, w.Row(d, categories[d.SourceURL])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	w.logger.Info("wrote import file", "path", path, "rows", len(drafts))
	return f.SaveAs(path)
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
