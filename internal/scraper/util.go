package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

var spaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// DomainOf returns the lowercased host of a URL, empty when unparsable.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// hostMatches reports whether host is domain or a subdomain of it.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// EnsureSKU keeps a scraped SKU when present, otherwise derives a
// deterministic slug from the URL's host and last path segment.
func EnsureSKU(rawURL, sku string) string {
	if s := strings.TrimSpace(sku); s != "" {
		return s
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "produs"
	}

	tail := "produs"
	if parts := strings.Split(strings.Trim(u.Path, "/"), "/"); len(parts) > 0 && parts[len(parts)-1] != "" {
		tail = parts[len(parts)-1]
	}

	s := slug.Make(u.Host + "-" + tail)
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
