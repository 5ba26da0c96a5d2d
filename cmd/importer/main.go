package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/config"
	"github.com/maltedev/gomag-importer/internal/export"
	"github.com/maltedev/gomag-importer/internal/fetch"
	"github.com/maltedev/gomag-importer/internal/gomag"
	"github.com/maltedev/gomag-importer/internal/models"
	"github.com/maltedev/gomag-importer/internal/pipeline"
	"github.com/maltedev/gomag-importer/internal/ratelimit"
	"github.com/maltedev/gomag-importer/internal/scraper"
	"github.com/maltedev/gomag-importer/pkg/logger"
)

func main() {
	var (
		urls      = flag.String("urls", "", "Comma-separated product URLs to scrape")
		inputFile = flag.String("file", "", "Link file: .xlsx with a URL column, or plain text with one URL per line")
		output    = flag.String("out", "gomag_import.xlsx", "Path of the generated import workbook")
		category  = flag.String("category", "", "Shop category assigned to every row")
		doImport  = flag.Bool("import", false, "Upload the workbook into the Gomag admin after writing it")
		headless  = flag.Bool("headless", true, "Run the browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	targets, err := collectURLs(*urls, *inputFile)
	if err != nil {
		log.Error("Failed to read URLs", "error", err)
		os.Exit(1)
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "No URLs given. Use -urls or -file.")
		flag.Usage()
		os.Exit(1)
	}

	b, err := browser.New(&browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		log.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	fetcher := fetch.New(&fetch.Options{
		Timeout:    cfg.Scraper.FetchTimeout,
		UserAgent:  cfg.Browser.UserAgent,
		AcceptLang: cfg.Browser.AcceptLanguage,
		MaxTries:   cfg.Scraper.MaxRetries,
	})

	registry := scraper.NewRegistry(fetcher, b, scraper.Credentials{
		PSIUser: cfg.Sources.PSIUser,
		PSIPass: cfg.Sources.PSIPass,
		XDUser:  cfg.Sources.XDUser,
		XDPass:  cfg.Sources.XDPass,
	})
	limiter := ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
	pipe := pipeline.New(registry, limiter)

	log.Info("Scraping products", "urls", len(targets))
	drafts, err := pipe.ScrapeProducts(ctx, targets)
	if err != nil {
		log.Error("Scrape aborted", "error", err)
		os.Exit(1)
	}

	categories := make(map[string]string, len(drafts))
	if *category != "" {
		for _, d := range drafts {
			categories[d.SourceURL] = *category
		}
	}

	writer := export.NewWriter(cfg.Export.TemplatePath, cfg.Export.VATRate)
	if err := writer.WriteFile(*output, drafts, categories); err != nil {
		log.Error("Failed to write workbook", "error", err)
		os.Exit(1)
	}

	printSummary(drafts, *output)

	if *doImport {
		if !cfg.GomagConfigured() {
			log.Error("Gomag admin is not configured, cannot import")
			os.Exit(1)
		}

		client := gomag.NewClient(b, cfg.Gomag)
		result, err := client.ImportFile(ctx, *output)
		if err != nil {
			log.Error("Import failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(result.Message)
	}
}

// collectURLs merges the -urls flag with the link file, which may be an
// XLSX sheet or a plain text list.
func collectURLs(urlList, inputFile string) ([]string, error) {
	var targets []string

	for _, u := range strings.Split(urlList, ",") {
		if u = strings.TrimSpace(u); u != "" {
			targets = append(targets, u)
		}
	}

	if inputFile == "" {
		return targets, nil
	}

	if strings.EqualFold(filepath.Ext(inputFile), ".xlsx") {
		urls, err := export.ReadLinkFile(inputFile)
		if err != nil {
			return nil, err
		}
		return append(targets, urls...), nil
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			targets = append(targets, line)
		}
	}
	return targets, scanner.Err()
}

func printSummary(drafts []*models.ProductDraft, output string) {
	ok, failed := 0, 0
	for _, d := range drafts {
		if d.IsError() {
			failed++
		} else {
			ok++
		}
	}
	fmt.Printf("Wrote %s: %d rows (%d ok, %d failed)\n", output, len(drafts), ok, failed)
}
