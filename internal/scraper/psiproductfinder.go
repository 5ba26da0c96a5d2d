package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/models"
)

const (
	psiDomain   = "psiproductfinder.de"
	psiLoginURL = "https://psiproductfinder.de/login"
)

// navigation and storefront boilerplate that must not end up in a product
// description (the catalog is German)
var psiBoilerplateRe = regexp.MustCompile(
	`(?i)\b(previous|next|angebot\s+anfragen|kontakt|anmelden|login|preise?|produktfinder|men[üu]|suche|produkt\s*details|konfigurieren|warenkorb)\b`)

var psiTitleKeys = []string{"name", "title", "productName", "product_title"}
var psiDescriptionKeys = []string{"description", "longDescription", "shortDescription", "productDescription", "text"}

// PSIProductFinderScraper scrapes the PSI Product Finder catalog, a
// Next.js app behind a member login.
type PSIProductFinderScraper struct {
	browser  *browser.Browser
	user     string
	password string
	logger   *slog.Logger
}

func NewPSIProductFinderScraper(b *browser.Browser, user, password string) *PSIProductFinderScraper {
	return &PSIProductFinderScraper{
		browser:  b,
		user:     strings.TrimSpace(user),
		password: strings.TrimSpace(password),
		logger:   slog.Default().With("component", "psi_scraper"),
	}
}

func (s *PSIProductFinderScraper) CanHandle(rawURL string) bool {
	return hostMatches(DomainOf(rawURL), psiDomain)
}

func (s *PSIProductFinderScraper) Parse(ctx context.Context, rawURL string) (*models.ProductDraft, error) {
	html, note, err := s.fetchWithLogin(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.buildDraft(rawURL, html, note)
}

func (s *PSIProductFinderScraper) buildDraft(rawURL, html, note string) (*models.ProductDraft, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	draft := models.NewDraft(rawURL, DomainOf(rawURL))
	draft.SKU = EnsureSKU(rawURL, "")
	draft.NeedsTranslation = true // catalog content is German

	var title, desc string
	if state := parseNextData(doc); state != nil {
		title = findFirstString(state, psiTitleKeys)
		desc = findFirstString(state, psiDescriptionKeys)
	}

	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`)
	}
	if title == "" {
		title = CleanText(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Produs"
	}
	draft.Title = title

	if len(desc) > 80 {
		draft.DescriptionHTML = "<p>" + CleanText(desc) + "</p>"
	} else {
		draft.DescriptionHTML = bestDescriptionHTML(doc)
	}
	draft.ShortDescription = shortDescription(draft.DescriptionHTML)

	imgs := psiImages(doc, rawURL)
	for i, u := range imgs {
		imgs[i] = absoluteURL(rawURL, u)
	}
	draft.Images = dedupStrings(imgs, maxImages)

	draft.Notes = "psi_scraper=login parsed_with=browser " + note
	return draft, nil
}

func (s *PSIProductFinderScraper) fetchWithLogin(ctx context.Context, rawURL string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	page, err := s.browser.NewPage()
	if err != nil {
		return "", "", err
	}
	defer page.Close()

	noteParts := []string{"psi_browser=YES"}

	if s.user != "" && s.password != "" {
		if err := s.browser.Goto(page, psiLoginURL, 2); err != nil {
			return "", "", fmt.Errorf("login page navigation failed: %w", err)
		}
		page.WaitForTimeout(600)
		s.browser.AcceptCookies(page)

		userSel := `input[name="username"], input[placeholder*="Benutzername"], input[type="text"]`
		passSel := `input[name="password"], input[placeholder*="Passwort"], input[type="password"]`
		if err := page.Fill(userSel, s.user); err != nil {
			return "", "", fmt.Errorf("failed to fill username: %w", err)
		}
		if err := page.Fill(passSel, s.password); err != nil {
			return "", "", fmt.Errorf("failed to fill password: %w", err)
		}

		submit := `button:has-text("LOGIN"), button[type="submit"], input[type="submit"]`
		if err := page.Click(submit, playwright.PageClickOptions{Timeout: playwright.Float(8000)}); err != nil {
			page.Keyboard().Press("Enter")
		}

		page.WaitForTimeout(1200)
		s.browser.AcceptCookies(page)
		noteParts = append(noteParts, "psi_login=YES")
	} else {
		noteParts = append(noteParts, "psi_login=NO")
	}

	if err := s.browser.Goto(page, rawURL, 2); err != nil {
		return "", "", fmt.Errorf("product page navigation failed: %w", err)
	}
	page.WaitForTimeout(1700)
	s.browser.AutoScroll(page, 10, 900)
	page.WaitForTimeout(500)

	html, err := page.Content()
	if err != nil {
		return "", "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, strings.Join(noteParts, " "), nil
}

// parseNextData decodes the Next.js state blob the PSI pages embed.
func parseNextData(doc *goquery.Document) any {
	raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if raw == "" {
		return nil
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data
}

// findFirstString walks an arbitrary JSON structure depth-first and returns
// the first non-empty string held under one of the wanted keys.
func findFirstString(obj any, keys []string) string {
	switch v := obj.(type) {
	case map[string]any:
		for _, key := range keys {
			if s, ok := v[key].(string); ok {
				if c := CleanText(s); c != "" {
					return c
				}
			}
		}
		for _, child := range v {
			if r := findFirstString(child, keys); r != "" {
				return r
			}
		}
	case []any:
		for _, child := range v {
			if r := findFirstString(child, keys); r != "" {
				return r
			}
		}
	}
	return ""
}

// psiImages prefers og:/twitter: meta images, then falls back to the DOM.
func psiImages(doc *goquery.Document, baseURL string) []string {
	var urls []string
	doc.Find(`meta[property="og:image"], meta[property="og:image:secure_url"], meta[name="twitter:image"]`).
		Each(func(i int, s *goquery.Selection) {
			if c, ok := s.Attr("content"); ok && c != "" {
				urls = append(urls, absoluteURL(baseURL, c))
			}
		})
	urls = append(urls, extractImagesDOM(doc, baseURL)...)
	return dedupStrings(urls, maxImages)
}

// bestDescriptionHTML rebuilds a description from content-area paragraphs
// after stripping chrome, boilerplate and near-empty fragments.
func bestDescriptionHTML(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	for _, sel := range []string{
		"nav", "header", "footer", "aside", "form", "button",
		".breadcrumb", ".breadcrumbs", ".pagination", ".pager", ".nav",
		".header", ".footer", ".sidebar", ".cookie", ".consent", ".modal",
	} {
		clone.Find(sel).Remove()
	}

	selectors := []string{
		"[itemprop=description]",
		".description",
		".product-description",
		".product__description",
		".productDetail",
		".product-detail",
		".content",
		"main",
		"article",
		"[role=main]",
	}

	var paras []string
	for _, sel := range selectors {
		clone.Find(sel).Each(func(i int, root *goquery.Selection) {
			root.Find("p, li").Each(func(j int, p *goquery.Selection) {
				if txt := CleanText(p.Text()); txt != "" {
					paras = append(paras, txt)
				}
			})
		})
		if len(paras) >= 5 {
			break
		}
	}

	paras = cleanParagraphs(paras)

	if len(paras) == 0 {
		var chunks []string
		for _, line := range strings.Split(clone.Text(), "\n") {
			if c := CleanText(line); c != "" {
				chunks = append(chunks, c)
			}
		}
		paras = cleanParagraphs(chunks)
	}

	if len(paras) == 0 {
		return ""
	}

	var b strings.Builder
	total := 0
	for _, p := range paras {
		if total > 1200 {
			break
		}
		b.WriteString("<p>")
		b.WriteString(p)
		b.WriteString("</p>")
		total += len(p)
	}
	return b.String()
}

func cleanParagraphs(paras []string) []string {
	var out []string
	for _, p := range paras {
		p = CleanText(p)
		if len(p) < 40 {
			continue
		}
		if psiBoilerplateRe.MatchString(p) {
			continue
		}
		if letterCount(p) < 25 {
			continue
		}
		out = append(out, p)
	}

	seen := make(map[string]bool, len(out))
	var dedup []string
	for _, p := range out {
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		dedup = append(dedup, p)
	}
	return dedup
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
