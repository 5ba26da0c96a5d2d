package gomag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/config"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// unhide file inputs that admin themes keep invisible behind styled buttons
const unhideFileInputsJS = `() => {
	document.querySelectorAll('input[type=file]').forEach(el => {
		el.style.display = 'block';
		el.style.visibility = 'visible';
		el.style.opacity = '1';
		el.removeAttribute('hidden');
	});
}`

const startImportSelector = `button:has-text("Start Import"), a:has-text("Start Import"), [role="button"]:has-text("Start Import")`

// ImportResult describes what the admin showed after an upload.
type ImportResult struct {
	Message  string
	Status   string
	FirstRow string
	Errors   []string
}

// Client drives the Gomag admin UI through a real browser: login, category
// listing and XLSX import. The admin has no import API, so everything goes
// through the pages an operator would use.
type Client struct {
	browser *browser.Browser
	cfg     config.GomagConfig
	logger  *slog.Logger
}

func NewClient(b *browser.Browser, cfg config.GomagConfig) *Client {
	return &Client{
		browser: b,
		cfg:     cfg,
		logger:  slog.Default().With("component", "gomag"),
	}
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

// gotoWithFallback tries the https form of the URL first and falls back to
// plain http; some shops still serve the admin without TLS.
func (c *Client) gotoWithFallback(page playwright.Page, url string) error {
	httpsURL := url
	if strings.HasPrefix(url, "http://") {
		httpsURL = "https://" + strings.TrimPrefix(url, "http://")
	}
	httpURL := strings.Replace(httpsURL, "https://", "http://", 1)

	if err := c.browser.Goto(page, httpsURL, 1); err == nil {
		return nil
	}
	return c.browser.Goto(page, httpURL, 1)
}

// Login opens the dashboard and fills the login form. A session that is
// already authenticated simply has no form to fill, which is fine.
func (c *Client) Login(page playwright.Page) error {
	if err := c.gotoWithFallback(page, c.baseURL()+"/gomag/dashboard"); err != nil {
		return fmt.Errorf("failed to open dashboard: %w", err)
	}
	page.WaitForTimeout(900)

	if err := page.Fill(c.cfg.EmailSelector, c.cfg.Email); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}
	if err := page.Fill(c.cfg.PasswordSelector, c.cfg.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := page.Click(c.cfg.SubmitSelector); err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}
	page.WaitForTimeout(1500)

	c.logger.Info("logged in to gomag admin", "base_url", c.baseURL())
	return nil
}

// FetchCategories logs in and scrapes the category names off the admin
// category list page.
func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := c.browser.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := c.Login(page); err != nil {
		return nil, err
	}

	if err := c.gotoWithFallback(page, c.baseURL()+c.cfg.CategoriesPath); err != nil {
		return nil, fmt.Errorf("failed to open category list: %w", err)
	}
	page.WaitForTimeout(1600)

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read category page: %w", err)
	}

	categories := ParseCategories(html)
	c.logger.Info("fetched categories", "count", len(categories))
	return categories, nil
}

// ImportFile uploads an import workbook, presses Start Import and verifies
// against the import list that a new run actually appeared. When the run
// finishes with errors, the first error lines are pulled from the detail
// page.
func (c *Client) ImportFile(ctx context.Context, filePath string) (*ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := c.browser.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := c.Login(page); err != nil {
		return nil, err
	}

	listURL := c.baseURL() + c.cfg.ImportListPath

	// snapshot the list before uploading so we can tell a new run apart
	// from the previous one
	var before FirstRow
	if err := c.gotoWithFallback(page, listURL); err == nil {
		page.WaitForTimeout(1400)
		if html, err := page.Content(); err == nil {
			before = ExtractFirstRow(html)
		}
	}

	if err := c.gotoWithFallback(page, c.baseURL()+c.cfg.ImportAddPath); err != nil {
		return nil, fmt.Errorf("failed to open import page: %w", err)
	}
	page.WaitForTimeout(1400)

	if _, err := page.Evaluate(unhideFileInputsJS); err != nil {
		c.logger.Warn("could not unhide file inputs", "error", err)
	}

	if err := c.uploadWorkbook(page, filePath); err != nil {
		c.saveArtifacts(page, "gomag_upload_no_file_input")
		return nil, err
	}
	page.WaitForTimeout(1200)

	btn := page.Locator(startImportSelector).First()
	if count, err := btn.Count(); err != nil || count == 0 {
		c.saveArtifacts(page, "gomag_no_start_import")
		return nil, fmt.Errorf("start import button not found")
	}
	if err := btn.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(10000),
		Force:   playwright.Bool(true),
	}); err != nil {
		c.saveArtifacts(page, "gomag_start_import_click")
		return nil, fmt.Errorf("failed to click start import: %w", err)
	}
	page.WaitForTimeout(2500)

	if err := c.gotoWithFallback(page, listURL); err != nil {
		return nil, fmt.Errorf("failed to open import list: %w", err)
	}
	page.WaitForTimeout(1600)

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read import list: %w", err)
	}

	// the list sometimes comes back blank right after the upload
	if isBlankPage(html) {
		page.WaitForTimeout(1200)
		page.Reload(playwright.PageReloadOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(120000),
		})
		page.WaitForTimeout(1600)
		if reloaded, err := page.Content(); err == nil {
			html = reloaded
		}
	}

	after := ExtractFirstRow(html)
	result := &ImportResult{Status: after.Status, FirstRow: after.Text}

	if before.Text != "" && after.Text == before.Text {
		result.Message = "Start Import apasat, dar nu a aparut un import nou in lista."
		return result, nil
	}

	if after.Text == "" {
		c.saveArtifacts(page, "gomag_import_list_empty")
		result.Message = "Import nou detectat, dar nu am putut extrage randul din lista."
		return result, nil
	}

	if after.ErrorURL != "" && hasErrors(after) {
		result.Errors = c.fetchImportErrors(page, after.ErrorURL)
		if len(result.Errors) > 0 {
			result.Message = "Finalizat cu erori. Primele erori:\n- " + strings.Join(result.Errors, "\n- ")
			return result, nil
		}
	}

	result.Message = fmt.Sprintf("OK: import nou detectat. Status=%q. Primul rand: %s", after.Status, truncate(after.Text, 200))
	c.logger.Info("import uploaded", "status", after.Status)
	return result, nil
}

// uploadWorkbook pushes the file into the first usable file input, looking
// inside child frames when the main frame has none.
func (c *Client) uploadWorkbook(page playwright.Page, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	files := []playwright.InputFile{{
		Name:     filepath.Base(filePath),
		MimeType: xlsxMimeType,
		Buffer:   data,
	}}

	if c.setInputFiles(page.Locator(`input[type="file"]`), files) {
		return nil
	}
	for _, frame := range page.Frames() {
		if frame == page.MainFrame() {
			continue
		}
		if c.setInputFiles(frame.Locator(`input[type="file"]`), files) {
			return nil
		}
	}
	return fmt.Errorf("no usable file input found on import page")
}

func (c *Client) setInputFiles(loc playwright.Locator, files []playwright.InputFile) bool {
	count, err := loc.Count()
	if err != nil {
		return false
	}
	for i := 0; i < count; i++ {
		err := loc.Nth(i).SetInputFiles(files, playwright.LocatorSetInputFilesOptions{
			Timeout: playwright.Float(60000),
		})
		if err == nil {
			return true
		}
	}
	return false
}

func (c *Client) fetchImportErrors(page playwright.Page, href string) []string {
	errURL := href
	switch {
	case strings.HasPrefix(href, "http"):
	case strings.HasPrefix(href, "/"):
		errURL = c.baseURL() + href
	default:
		errURL = c.baseURL() + "/" + href
	}

	if err := c.gotoWithFallback(page, errURL); err != nil {
		return nil
	}
	page.WaitForTimeout(1600)

	html, err := page.Content()
	if err != nil {
		return nil
	}
	return ExtractImportErrors(html)
}

// saveArtifacts drops a screenshot and the page HTML for debugging a
// failed admin interaction.
func (c *Client) saveArtifacts(page playwright.Page, name string) {
	dir := c.cfg.ArtifactDir
	if dir == "" {
		dir = "debug_artifacts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Warn("could not create artifact dir", "error", err)
		return
	}

	page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(filepath.Join(dir, name+".png")),
		FullPage: playwright.Bool(true),
	})
	if html, err := page.Content(); err == nil {
		os.WriteFile(filepath.Join(dir, name+".html"), []byte(html), 0o644)
	}
	c.logger.Info("saved debug artifacts", "name", name, "dir", dir)
}

func hasErrors(row FirstRow) bool {
	return strings.Contains(strings.ToLower(row.Status), "erori") ||
		strings.Contains(strings.ToLower(row.Text), "erori")
}

func isBlankPage(html string) bool {
	stripped := strings.ReplaceAll(strings.TrimSpace(html), " ", "")
	return stripped == "<html><head></head><body></body></html>"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
