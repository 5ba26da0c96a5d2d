package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// column names operators actually use in their link sheets
var urlColumnNames = []string{"url", "link", "product_url", "product link", "productlink"}

// ReadLinkFile extracts the product URLs from an operator-supplied XLSX.
func ReadLinkFile(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open link file: %w", err)
	}
	defer f.Close()

	return readLinks(f)
}

// ReadLinks is the io.Reader variant used for HTTP uploads.
func ReadLinks(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open link file: %w", err)
	}
	defer f.Close()

	return readLinks(f)
}

func readLinks(f *excelize.File) ([]string, error) {
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("link file is empty")
	}

	col, ok := DetectURLColumn(rows[0])
	if !ok {
		return nil, fmt.Errorf("no URL column found; use one of: url / link / product_url")
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// DetectURLColumn finds the link column by name, case-insensitively, then
// falls back to the first header mentioning http.
func DetectURLColumn(headers []string) (int, bool) {
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, cand := range urlColumnNames {
			if lower == cand {
				return i, true
			}
		}
	}

	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), "http") {
			return i, true
		}
	}
	return 0, false
}
