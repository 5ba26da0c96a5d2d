package models

import (
	"time"
)

// ErrorTitle marks drafts produced for URLs that could not be scraped. The
// marker is kept in Romanian because it surfaces in the review table and the
// export file shown to the shop operator.
const ErrorTitle = "(EROARE SCRAPING)"

// DefaultCurrency is the shop currency; supplier prices are converted by the
// operator before import, the pipeline only tags the draft.
const DefaultCurrency = "RON"

// Variant is one color/size combination of a product.
type Variant struct {
	Color  string   `json:"color,omitempty"`
	Size   string   `json:"size,omitempty"`
	SKU    string   `json:"sku,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Images []string `json:"images,omitempty"`
}

// ProductDraft is the intermediate representation of a scraped supplier
// product, reviewed by the operator before it becomes an import row.
type ProductDraft struct {
	SourceURL        string            `json:"source_url"`
	Domain           string            `json:"domain"`
	SKU              string            `json:"sku"`
	Title            string            `json:"title"`
	DescriptionHTML  string            `json:"description_html"`
	ShortDescription string            `json:"short_description"`
	Specs            map[string]string `json:"specs,omitempty"`
	Images           []string          `json:"images"`
	Price            *float64          `json:"price,omitempty"`
	Currency         string            `json:"currency"`
	Variants         []Variant         `json:"variants,omitempty"`
	NeedsTranslation bool              `json:"needs_translation"`
	Notes            string            `json:"notes,omitempty"`
	ScrapedAt        time.Time         `json:"scraped_at"`
}

func NewDraft(sourceURL, domain string) *ProductDraft {
	return &ProductDraft{
		SourceURL: sourceURL,
		Domain:    domain,
		Currency:  DefaultCurrency,
		Images:    make([]string, 0),
		ScrapedAt: time.Now(),
	}
}

// NewErrorDraft returns the fallback draft for a URL whose scraper failed,
// so a batch never loses rows.
func NewErrorDraft(sourceURL string, err error) *ProductDraft {
	d := NewDraft(sourceURL, "")
	d.Title = ErrorTitle
	if err != nil {
		d.Notes = "error=" + err.Error()
	}
	return d
}

// IsError reports whether the draft is a scrape-failure placeholder.
func (d *ProductDraft) IsError() bool {
	return d.Title == ErrorTitle
}

// PriceFinal returns the selling price for the import file: double the
// supplier price, never below 1 RON. Drafts without a price fall back to the
// 1 RON placeholder so the import does not reject the row.
func (d *ProductDraft) PriceFinal() float64 {
	if d.Price == nil {
		return 1.0
	}
	final := *d.Price * 2.0
	if final < 1.0 {
		return 1.0
	}
	return final
}

// Validate lists the problems that would make the row useless in the shop.
func (d *ProductDraft) Validate() []string {
	var problems []string

	if d.SourceURL == "" {
		problems = append(problems, "source URL is required")
	}
	if d.SKU == "" {
		problems = append(problems, "SKU is required")
	}
	if d.Title == "" || d.IsError() {
		problems = append(problems, "title is missing or marks a failed scrape")
	}

	return problems
}
