package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxImages = 12

var priceTextRe = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*(lei|ron|eur|€)`)

// image URLs that are site chrome, not product photos
var junkImageMarkers = []string{"logo", "icon", "sprite"}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if c := CleanText(content); c != "" {
				return c
			}
		}
	}
	return ""
}

func extractTitleDOM(doc *goquery.Document) string {
	if og := metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`); og != "" {
		return og
	}
	if h1 := CleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if title := CleanText(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return "Produs"
}

func extractDescriptionDOM(doc *goquery.Document) string {
	ogd := metaContent(doc,
		`meta[property="og:description"]`,
		`meta[name="description"]`,
		`meta[name="twitter:description"]`,
	)
	if len(ogd) > 40 {
		return "<p>" + ogd + "</p>"
	}

	selectors := []string{
		`[itemprop="description"]`,
		".product-description",
		".description",
		"#description",
		".tab-content",
		".product-tabs",
		".product__description",
	}
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() > 0 && len(strings.TrimSpace(el.Text())) > 50 {
			if html, err := goquery.OuterHtml(el); err == nil {
				return html
			}
		}
	}

	// last resort: the longest paragraph-ish block on the page
	best := ""
	doc.Find("p, div").Each(func(i int, s *goquery.Selection) {
		t := CleanText(s.Text())
		if len(t) > len(best) && len(t) > 80 {
			best = t
		}
	})
	if best != "" {
		return "<p>" + best + "</p>"
	}
	return ""
}

func extractPriceDOM(doc *goquery.Document) *float64 {
	text := CleanText(doc.Text())
	m := priceTextRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	// Romanian sites write 1.234,56; strip the thousands dot first
	val := strings.ReplaceAll(m[1], ".", "")
	val = strings.ReplaceAll(val, ",", ".")
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

func extractImagesDOM(doc *goquery.Document, baseURL string) []string {
	var imgs []string
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := firstAttr(s, "src", "data-src", "data-original", "data-lazy")
		if src == "" {
			if srcset := firstAttr(s, "srcset", "data-srcset"); srcset != "" {
				candidates := strings.Split(srcset, ",")
				src = strings.SplitN(strings.TrimSpace(candidates[len(candidates)-1]), " ", 2)[0]
			}
		}
		if src == "" {
			return
		}

		src = absoluteURL(baseURL, src)
		lower := strings.ToLower(src)
		if strings.HasPrefix(lower, "data:") {
			return
		}
		for _, marker := range junkImageMarkers {
			if strings.Contains(lower, marker) {
				return
			}
		}
		imgs = append(imgs, src)
	})

	return dedupStrings(imgs, maxImages)
}

func extractSKUDOM(doc *goquery.Document) string {
	for _, sel := range []string{`[itemprop="sku"]`, ".sku", ".product-sku", "#sku"} {
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

func dedupStrings(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// htmlToText flattens an HTML fragment to plain text for short descriptions.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanText(html)
	}
	return CleanText(doc.Text())
}

func shortDescription(descHTML string) string {
	text := []rune(htmlToText(descHTML))
	if len(text) > 200 {
		text = text[:200]
	}
	return string(text)
}
