package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectURLColumn(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    int
		ok      bool
	}{
		{"exact match", []string{"Nume", "URL", "Pret"}, 1, true},
		{"spaced name", []string{"Product Link", "Nume"}, 0, true},
		{"underscored", []string{"id", "product_url"}, 1, true},
		{"http fallback", []string{"Nume", "Adresa (http)"}, 1, true},
		{"no match", []string{"Nume", "Pret"}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectURLColumn(tt.headers)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func linkWorkbook(t *testing.T, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	return f
}

func TestReadLinkFile(t *testing.T) {
	f := linkWorkbook(t, [][]interface{}{
		{"Nume", "url"},
		{"Pix", "https://example.com/p/1"},
		{"Cana", ""},
		{"Tricou", "  https://example.com/p/2  "},
	})
	path := filepath.Join(t.TempDir(), "links.xlsx")
	require.NoError(t, f.SaveAs(path))
	f.Close()

	urls, err := ReadLinkFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/p/1", "https://example.com/p/2"}, urls)
}

func TestReadLinksFromUpload(t *testing.T) {
	f := linkWorkbook(t, [][]interface{}{
		{"link"},
		{"https://example.com/p/1"},
	})
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	urls, err := ReadLinks(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/p/1"}, urls)
}

func TestReadLinksNoURLColumn(t *testing.T) {
	f := linkWorkbook(t, [][]interface{}{
		{"Nume", "Pret"},
		{"Pix", "10"},
	})
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	_, err := ReadLinks(&buf)
	assert.Error(t, err)
}
