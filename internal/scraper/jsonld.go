package scraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findProductJSONLD returns the first schema.org Product object embedded in
// the document, looking inside arrays and @graph collections.
func findProductJSONLD(doc *goquery.Document) map[string]any {
	var found map[string]any

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return true
		}

		for _, obj := range jsonldObjects(data) {
			if isProductNode(obj) {
				found = obj
				return false
			}
			if graph, ok := obj["@graph"].([]any); ok {
				for _, node := range graph {
					if m, ok := node.(map[string]any); ok && isProductNode(m) {
						found = m
						return false
					}
				}
			}
		}
		return true
	})

	return found
}

func jsonldObjects(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func isProductNode(obj map[string]any) bool {
	t, ok := obj["@type"]
	if !ok {
		t = obj["type"]
	}
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func jsonldString(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return CleanText(s)
	}
	return ""
}

func jsonldImages(obj map[string]any) []string {
	switch v := obj["image"].(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// jsonldPrice digs the price out of offers, which sites publish as an
// object, an array, a number, or a string with either decimal separator.
func jsonldPrice(obj map[string]any) *float64 {
	switch offers := obj["offers"].(type) {
	case map[string]any:
		return parsePriceValue(offers["price"])
	case []any:
		for _, item := range offers {
			if o, ok := item.(map[string]any); ok {
				if p := parsePriceValue(o["price"]); p != nil {
					return p
				}
			}
		}
	}
	return nil
}

func parsePriceValue(v any) *float64 {
	switch p := v.(type) {
	case float64:
		return &p
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(p, ",", "."), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
