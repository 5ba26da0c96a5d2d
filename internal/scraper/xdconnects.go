package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/models"
)

const xdDomain = "xdconnects.com"

var localeSegmentRe = regexp.MustCompile(`^[a-z]{2}-[a-z]{2}$`)

// trailing product-code suffix in XDConnects slugs, e.g. "-p123.45"
var xdSlugCodeRe = regexp.MustCompile(`(?i)[-_]?p\d+\.\d+$`)

// XDConnectsScraper scrapes the XDConnects B2B catalog, which only shows
// product pages to logged-in resellers.
type XDConnectsScraper struct {
	browser  *browser.Browser
	email    string
	password string
	logger   *slog.Logger
}

func NewXDConnectsScraper(b *browser.Browser, email, password string) *XDConnectsScraper {
	return &XDConnectsScraper{
		browser:  b,
		email:    strings.TrimSpace(email),
		password: strings.TrimSpace(password),
		logger:   slog.Default().With("component", "xdconnects_scraper"),
	}
}

func (s *XDConnectsScraper) CanHandle(rawURL string) bool {
	return hostMatches(DomainOf(rawURL), xdDomain)
}

func (s *XDConnectsScraper) Parse(ctx context.Context, rawURL string) (*models.ProductDraft, error) {
	if s.email == "" || s.password == "" {
		// the batch should keep its row, so this is a draft, not an error
		d := models.NewDraft(rawURL, DomainOf(rawURL))
		d.SKU = EnsureSKU(rawURL, "")
		d.Title = "(XDConnects) Lipsesc credentialele"
		d.DescriptionHTML = "<p>Completeaza XD_USER / XD_PASS in configuratie.</p>"
		d.ShortDescription = "Completeaza XD_USER / XD_PASS in configuratie."
		d.Notes = "xd_login=NO (missing creds)"
		return d, nil
	}

	html, loginNote, err := s.fetchWithLogin(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return s.buildDraft(rawURL, html, loginNote)
}

func (s *XDConnectsScraper) buildDraft(rawURL, html, loginNote string) (*models.ProductDraft, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	draft := models.NewDraft(rawURL, DomainOf(rawURL))
	draft.SKU = EnsureSKU(rawURL, "")

	pageTitle := CleanText(doc.Find("title").First().Text())
	lowerTitle := strings.ToLower(pageTitle)
	if strings.Contains(lowerTitle, "403") || strings.Contains(lowerTitle, "access not allowed") {
		if pageTitle == "" {
			pageTitle = "Error 403"
		}
		draft.Title = pageTitle
		draft.DescriptionHTML = "<p>XDConnects blocheaza accesul (403), chiar si dupa login. Posibil blocaj pe IP de datacenter.</p>"
		draft.ShortDescription = "XDConnects blocheaza accesul (403)."
		draft.Notes = fmt.Sprintf("parsed_with=browser | %s | blocked=403", loginNote)
		return draft, nil
	}

	var sku string
	if prod := findProductJSONLD(doc); prod != nil {
		draft.Title = jsonldString(prod, "name")
		sku = jsonldString(prod, "sku")
		draft.Price = jsonldPrice(prod)
		draft.Images = dedupStrings(jsonldImages(prod), 16)
	}

	if draft.Title == "" {
		draft.Title = metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`)
	}
	if draft.Title == "" {
		for _, sel := range []string{"h1", ".page-title", ".product-title", ".product__title"} {
			if t := CleanText(doc.Find(sel).First().Text()); t != "" {
				draft.Title = t
				break
			}
		}
	}
	if draft.Title == "" {
		draft.Title = titleFromURLSlug(rawURL)
	}

	draft.DescriptionHTML = extractDescriptionDOM(doc)
	if draft.DescriptionHTML == "" {
		draft.DescriptionHTML = "<p></p>"
	}
	if len(draft.Images) == 0 {
		draft.Images = extractImagesDOM(doc, rawURL)
	}

	draft.SKU = EnsureSKU(rawURL, sku)
	draft.ShortDescription = shortDescription(draft.DescriptionHTML)

	notes := []string{"parsed_with=browser", loginNote}
	if variant := variantIDFromURL(rawURL); variant != "" {
		notes = append(notes, "variantId="+variant)
	}
	draft.Notes = strings.Join(notes, " | ")

	return draft, nil
}

// fetchWithLogin signs in through the locale-aware login page and then
// renders the product page in the authenticated session.
func (s *XDConnectsScraper) fetchWithLogin(ctx context.Context, rawURL string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	locale := "en-gb"
	if parts := strings.Split(strings.Trim(u.Path, "/"), "/"); len(parts) > 0 && localeSegmentRe.MatchString(strings.ToLower(parts[0])) {
		locale = strings.ToLower(parts[0])
	}
	loginURL := fmt.Sprintf("https://www.xdconnects.com/%s/profile/login?returnurl=%s", locale, url.QueryEscape(u.Path))

	page, err := s.browser.NewPage()
	if err != nil {
		return "", "", err
	}
	defer page.Close()

	if err := s.browser.Goto(page, loginURL, 2); err != nil {
		return "", "", fmt.Errorf("login page navigation failed: %w", err)
	}
	page.WaitForTimeout(700)
	s.browser.AcceptCookies(page)

	if err := page.Fill(`input[type="email"], input[name*="email"], input[id*="email"]`, s.email); err != nil {
		return "", "", fmt.Errorf("failed to fill email: %w", err)
	}
	if err := page.Fill(`input[type="password"], input[name*="pass"], input[id*="pass"]`, s.password); err != nil {
		return "", "", fmt.Errorf("failed to fill password: %w", err)
	}

	submit := `button[type="submit"], input[type="submit"], button:has-text("Login"), button:has-text("Log in")`
	if err := page.Click(submit, playwright.PageClickOptions{Timeout: playwright.Float(8000)}); err != nil {
		// some skins submit on Enter only
		page.Keyboard().Press("Enter")
	}

	page.WaitForTimeout(1200)
	s.browser.AcceptCookies(page)

	if err := s.browser.Goto(page, rawURL, 2); err != nil {
		return "", "", fmt.Errorf("product page navigation failed: %w", err)
	}
	page.WaitForTimeout(1600)
	s.browser.AutoScroll(page, 12, 900)
	page.WaitForTimeout(600)

	html, err := page.Content()
	if err != nil {
		return "", "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, "xd_login=YES locale=" + locale, nil
}

// titleFromURLSlug turns the last path segment into a readable title when
// the page exposes nothing better.
func titleFromURLSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Produs"
	}

	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	sl := parts[len(parts)-1]
	sl = xdSlugCodeRe.ReplaceAllString(sl, "")
	sl = strings.NewReplacer("-", " ", "_", " ").Replace(sl)
	sl = CleanText(sl)
	if sl == "" {
		return "Produs"
	}

	words := strings.Split(sl, " ")
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) <= 4 {
			continue // keep acronyms
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func variantIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("variantId")
}
