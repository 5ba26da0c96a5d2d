package gomag

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxErrorRows = 10

// FirstRow is the top entry of the import list page. The admin prepends
// new imports, so diffing it before and after an upload tells us whether
// the import was actually registered.
type FirstRow struct {
	Text     string
	Status   string
	ErrorURL string
}

// ParseCategories pulls category names from the admin category list.
// Newer Gomag backends render a div-based table (-g2-table), older ones a
// plain <table>; both are handled.
func ParseCategories(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var names []string
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if name := cellText(tr.Find("td").First()); name != "" {
			names = append(names, name)
		}
	})
	g2Rows(doc).Each(func(_ int, row *goquery.Selection) {
		if name := cellText(g2Cols(row).First()); name != "" {
			names = append(names, name)
		}
	})

	seen := make(map[string]struct{}, len(names))
	uniq := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	return uniq
}

// ExtractFirstRow reads the first data row of the import list, preferring
// the error-detail link when the row carries one.
func ExtractFirstRow(html string) FirstRow {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return FirstRow{}
	}

	if tr := doc.Find("table tbody tr").First(); tr.Length() > 0 {
		cells := cellTexts(tr.Find("td"))
		row := FirstRow{
			Text:   strings.Join(cells, " | "),
			Status: lastOf(cells),
		}
		if href, ok := tr.Find("a").First().Attr("href"); ok {
			row.ErrorURL = strings.TrimSpace(href)
		}
		if href, ok := tr.Find(`a[href*="/gomag/product/import/err"]`).First().Attr("href"); ok {
			row.ErrorURL = strings.TrimSpace(href)
		}
		return row
	}

	if g2 := g2Rows(doc).First(); g2.Length() > 0 {
		cells := cellTexts(g2Cols(g2))
		row := FirstRow{
			Text:   strings.Join(cells, " | "),
			Status: lastOf(cells),
		}
		if href, ok := g2.Find(`a[href*="/gomag/product/import/err"]`).First().Attr("href"); ok {
			row.ErrorURL = strings.TrimSpace(href)
		}
		return row
	}

	return FirstRow{}
}

// ExtractImportErrors collects up to ten error lines from the import
// error page, trying the table layouts first and plain list items last.
func ExtractImportErrors(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var errs []string
	doc.Find("table tbody tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i >= maxErrorRows {
			return false
		}
		if cells := cellTexts(tr.Find("td")); len(cells) > 0 {
			errs = append(errs, strings.Join(cells, " | "))
		}
		return true
	})

	if len(errs) == 0 {
		g2Rows(doc).EachWithBreak(func(i int, row *goquery.Selection) bool {
			if i >= maxErrorRows {
				return false
			}
			if cells := cellTexts(g2Cols(row)); len(cells) > 0 {
				errs = append(errs, strings.Join(cells, " | "))
			}
			return true
		})
	}

	if len(errs) == 0 {
		doc.Find("#content li").EachWithBreak(func(i int, li *goquery.Selection) bool {
			if i >= maxErrorRows {
				return false
			}
			if t := cellText(li); len(t) > 5 {
				errs = append(errs, t)
			}
			return true
		})
	}

	return errs
}

func g2Rows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("#content .-g2-table .-g2-table-row").Not(".-g2-table-head")
}

func g2Cols(row *goquery.Selection) *goquery.Selection {
	return row.ChildrenFiltered(".-g2-table-col")
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func cellTexts(s *goquery.Selection) []string {
	var out []string
	s.Each(func(_ int, cell *goquery.Selection) {
		if t := cellText(cell); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func lastOf(cells []string) string {
	if len(cells) == 0 {
		return ""
	}
	return cells[len(cells)-1]
}
