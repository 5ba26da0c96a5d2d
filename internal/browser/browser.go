package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// hide the webdriver flag before any site script runs
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// cookie-consent buttons seen across the supplier sites
var consentSelectors = []string{
	`button:has-text("Accept")`,
	`button:has-text("Accept all")`,
	`button:has-text("Allow all")`,
	`button:has-text("I agree")`,
	`button:has-text("OK")`,
	`button:has-text("Got it")`,
}

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

type Options struct {
	Headless         bool
	Timeout          time.Duration
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	AcceptLanguage   string
	TimezoneID       string
	Locale           string
	IgnoreHTTPSError bool
	ExtraHeaders     map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        60 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:  1366,
		ViewportHeight: 768,
		AcceptLanguage: "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7",
		TimezoneID:     "Europe/Bucharest",
		Locale:         "ro-RO",
		ExtraHeaders: map[string]string{
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		},
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := map[string]string{"Accept-Language": opts.AcceptLanguage}
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:       &opts.UserAgent,
		AcceptDownloads: playwright.Bool(false),
		Locale:          &opts.Locale,
		TimezoneId:      &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	}
	if opts.IgnoreHTTPSError {
		contextOpts.IgnoreHttpsErrors = playwright.Bool(true)
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		timeout: opts.Timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))
	return page, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// Goto navigates and waits for domcontentloaded, retrying once per attempt
// with a linear delay.
func (b *Browser) Goto(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// RenderPage loads a URL in a fresh page, scrolls to trigger lazy-loaded
// images, and returns the rendered HTML.
func (b *Browser) RenderPage(url string, settle time.Duration) (string, error) {
	page, err := b.NewPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := b.Goto(page, url, 2); err != nil {
		return "", err
	}

	page.WaitForTimeout(float64(settle.Milliseconds()))
	b.AutoScroll(page, 12, 900)
	page.WaitForTimeout(600)

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

// AutoScroll wheels down the page in steps so lazy-loaded content appears.
func (b *Browser) AutoScroll(page playwright.Page, steps int, stepPx float64) {
	for i := 0; i < steps; i++ {
		if err := page.Mouse().Wheel(0, stepPx); err != nil {
			return
		}
		page.WaitForTimeout(200)
	}
}

// AcceptCookies clicks the first matching consent button, if any.
func (b *Browser) AcceptCookies(page playwright.Page) {
	for _, sel := range consentSelectors {
		btn := page.Locator(sel).First()
		count, err := btn.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err != nil {
			continue
		}
		page.WaitForTimeout(300)
		return
	}
}
