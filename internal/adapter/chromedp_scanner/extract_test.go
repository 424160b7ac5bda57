package chromedp_scanner

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

const samplePage = `<!doctype html>
<html lang="en">
<head>
  <title>  Example Shop  </title>
  <style>body { color: red; }</style>
</head>
<body>
  <nav>
    <a href="/products">Products</a>
    <a href="about#team">About</a>
    <a href="https://www.example.com/contact">Contact</a>
    <a href="https://other.example/">Partner</a>
    <a href="mailto:hi@example.com">Mail</a>
    <a href="#top">Top</a>
    <a href="/">Home</a>
    <a href="/products">Products again</a>
  </nav>
  <article>
    <h1>Welcome</h1>
    <p>We sell handmade ceramics and run pottery classes every weekend.</p>
    <img src="/img/vase.jpg" alt=" Blue vase ">
    <img src="/img/vase.jpg" alt="duplicate">
    <a href="/files/catalog.pdf">Catalog</a>
    <video src="/media/tour.mp4"></video>
  </article>
  <script>console.log("tracking")</script>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	t.Parallel()

	result, err := ExtractPage("https://example.com/", samplePage)
	if err != nil {
		t.Fatalf("ExtractPage() error = %v", err)
	}

	if result.Title != "Example Shop" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.Markup != samplePage {
		t.Error("Markup should be the raw document")
	}

	wantLinks := []string{
		"https://example.com/products",
		"https://example.com/about",
		"https://www.example.com/contact",
	}
	if !slices.Equal(result.OutboundLinks, wantLinks) {
		t.Errorf("OutboundLinks = %v, want %v", result.OutboundLinks, wantLinks)
	}

	wantAssets := []entity.DiscoveredAsset{
		{URL: "https://example.com/files/catalog.pdf", Kind: entity.AssetDocument, SourcePage: "https://example.com/", Alt: "Catalog"},
		{URL: "https://example.com/img/vase.jpg", Kind: entity.AssetImage, SourcePage: "https://example.com/", Alt: "Blue vase"},
		{URL: "https://example.com/media/tour.mp4", Kind: entity.AssetVideo, SourcePage: "https://example.com/"},
	}
	if !slices.Equal(result.Assets, wantAssets) {
		t.Errorf("Assets = %+v, want %+v", result.Assets, wantAssets)
	}

	if !strings.Contains(result.Text, "handmade ceramics") {
		t.Errorf("Text = %q, want the article body", result.Text)
	}
	if strings.Contains(result.Text, "tracking") {
		t.Errorf("Text contains script content: %q", result.Text)
	}
}

func TestExtractPageBaseHref(t *testing.T) {
	t.Parallel()

	markup := `<html><head><base href="https://example.com/docs/"></head>
<body><a href="guide">Guide</a><img src="logo.png"></body></html>`

	result, err := ExtractPage("https://example.com/index.html", markup)
	if err != nil {
		t.Fatalf("ExtractPage() error = %v", err)
	}
	if !slices.Equal(result.OutboundLinks, []string{"https://example.com/docs/guide"}) {
		t.Errorf("OutboundLinks = %v", result.OutboundLinks)
	}
	if len(result.Assets) != 1 || result.Assets[0].URL != "https://example.com/docs/logo.png" {
		t.Errorf("Assets = %+v", result.Assets)
	}
	if result.Title != "https://example.com/index.html" {
		t.Errorf("untitled page Title = %q, want the URL", result.Title)
	}
}

func TestExtractPageInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := ExtractPage("http://[::1", "<html></html>")
	if !errors.Is(err, repository.ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
}

func TestAssetKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		kind entity.AssetKind
		ok   bool
	}{
		{"https://example.com/a.PNG", entity.AssetImage, true},
		{"https://example.com/report.pdf?download=1", entity.AssetDocument, true},
		{"https://example.com/clip.webm", entity.AssetVideo, true},
		{"https://example.com/page.html", "", false},
		{"https://example.com/folder/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			kind, ok := AssetKindOf(tt.url)
			if kind != tt.kind || ok != tt.ok {
				t.Errorf("AssetKindOf() = %q, %v, want %q, %v", kind, ok, tt.kind, tt.ok)
			}
		})
	}
}

func TestCheckStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{0, nil},
		{200, nil},
		{304, nil},
		{403, repository.ErrContentRestricted},
		{401, repository.ErrContentRestricted},
		{404, repository.ErrNavigationFailed},
		{503, repository.ErrNavigationFailed},
	}
	for _, tt := range tests {
		err := checkStatus(tt.status)
		if tt.want == nil && err != nil {
			t.Errorf("checkStatus(%d) = %v, want nil", tt.status, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("checkStatus(%d) = %v, want %v", tt.status, err, tt.want)
		}
	}
}
