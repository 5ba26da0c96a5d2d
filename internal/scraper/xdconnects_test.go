package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXDConnectsMissingCredentials(t *testing.T) {
	s := NewXDConnectsScraper(nil, "", "")

	draft, err := s.Parse(context.Background(), "https://www.xdconnects.com/en-gb/bags/voyager-p123.45")
	require.NoError(t, err)

	assert.Contains(t, draft.Title, "Lipsesc credentialele")
	assert.Contains(t, draft.Notes, "xd_login=NO")
	assert.NotEmpty(t, draft.SKU)
}

func TestXDConnectsBuildDraftBlocked(t *testing.T) {
	s := NewXDConnectsScraper(nil, "user@example.com", "secret")

	html := `<html><head><title>403 Forbidden</title></head><body>Access not allowed</body></html>`
	draft, err := s.buildDraft("https://www.xdconnects.com/en-gb/bags/voyager-p123.45", html, "xd_login=YES locale=en-gb")
	require.NoError(t, err)

	assert.Equal(t, "403 Forbidden", draft.Title)
	assert.Contains(t, draft.Notes, "blocked=403")
}

func TestXDConnectsBuildDraftJSONLD(t *testing.T) {
	s := NewXDConnectsScraper(nil, "user@example.com", "secret")

	html := `<html><head>
		<script type="application/ld+json">
		{"@type": "Product", "name": "Voyager Backpack", "sku": "P705.701",
		 "image": "https://cdn.xdconnects.com/voyager.jpg",
		 "offers": {"price": 31.2}}
		</script>
		</head><body></body></html>`

	url := "https://www.xdconnects.com/en-gb/bags/voyager-p705.701?variantId=P705.701"
	draft, err := s.buildDraft(url, html, "xd_login=YES locale=en-gb")
	require.NoError(t, err)

	assert.Equal(t, "Voyager Backpack", draft.Title)
	assert.Equal(t, "P705.701", draft.SKU)
	require.NotNil(t, draft.Price)
	assert.InDelta(t, 31.2, *draft.Price, 0.001)
	assert.Contains(t, draft.Notes, "variantId=P705.701")
}

func TestXDConnectsBuildDraftH1Fallback(t *testing.T) {
	s := NewXDConnectsScraper(nil, "user@example.com", "secret")

	html := `<html><head><title>XD Connects</title></head>
		<body><h1>Impact AWARE rPET Tote</h1></body></html>`

	draft, err := s.buildDraft("https://www.xdconnects.com/en-gb/bags/tote-p762.2", html, "xd_login=YES locale=en-gb")
	require.NoError(t, err)
	assert.Equal(t, "Impact AWARE rPET Tote", draft.Title)
}

func TestTitleFromURLSlug(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.xdconnects.com/en-gb/bags/urban-laptop-backpack-p705.701", "Urban Laptop Backpack"},
		{"https://www.xdconnects.com/en-gb/pens/rpet-pen_p610.9", "Rpet Pen"},
		{"https://www.xdconnects.com/", "Produs"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, titleFromURLSlug(tt.url))
	}
}
