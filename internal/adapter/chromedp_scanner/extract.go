package chromedp_scanner

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/pkg/utils"
)

var assetExtensions = map[string]entity.AssetKind{
	".png": entity.AssetImage, ".jpg": entity.AssetImage, ".jpeg": entity.AssetImage,
	".gif": entity.AssetImage, ".webp": entity.AssetImage, ".svg": entity.AssetImage,
	".bmp": entity.AssetImage, ".ico": entity.AssetImage, ".avif": entity.AssetImage,

	".pdf": entity.AssetDocument, ".doc": entity.AssetDocument, ".docx": entity.AssetDocument,
	".xls": entity.AssetDocument, ".xlsx": entity.AssetDocument, ".ppt": entity.AssetDocument,
	".pptx": entity.AssetDocument, ".odt": entity.AssetDocument, ".ods": entity.AssetDocument,
	".rtf": entity.AssetDocument, ".csv": entity.AssetDocument, ".epub": entity.AssetDocument,

	".mp4": entity.AssetVideo, ".webm": entity.AssetVideo, ".mov": entity.AssetVideo,
	".avi": entity.AssetVideo, ".mkv": entity.AssetVideo, ".m4v": entity.AssetVideo,
	".ogv": entity.AssetVideo,
}

// AssetKindOf classifies a URL by its path extension.
func AssetKindOf(rawURL string) (entity.AssetKind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	kind, ok := assetExtensions[strings.ToLower(path.Ext(u.Path))]
	return kind, ok
}

// ExtractPage parses rendered markup into a scan result. Outbound links are
// same-host page URLs in document order; links to files are reported as
// assets instead. Relative references resolve against <base href> when the
// page declares one, otherwise against pageURL.
func ExtractPage(pageURL, markup string) (*entity.ScanResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page URL: %w", repository.ErrExtractionFailed, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrExtractionFailed, err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, ok := utils.ResolveHTTP(base, href); ok {
			if u, err := url.Parse(resolved); err == nil {
				base = u
			}
		}
	}

	result := &entity.ScanResult{
		URL:    pageURL,
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Markup: markup,
	}

	self, _ := utils.ResolveHTTP(base, pageURL)
	seenLinks := map[string]bool{self: true}
	seenAssets := map[string]bool{}
	addAsset := func(ref string, kind entity.AssetKind, alt string) {
		abs, ok := utils.ResolveHTTP(base, ref)
		if !ok || seenAssets[abs] {
			return
		}
		seenAssets[abs] = true
		result.Assets = append(result.Assets, entity.DiscoveredAsset{
			URL:        abs,
			Kind:       kind,
			SourcePage: pageURL,
			Alt:        strings.TrimSpace(alt),
		})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := utils.ResolveHTTP(base, href)
		if !ok {
			return
		}
		if kind, isAsset := AssetKindOf(abs); isAsset {
			addAsset(abs, kind, s.Text())
			return
		}
		if seenLinks[abs] || !sameHost(base, abs) {
			return
		}
		seenLinks[abs] = true
		result.OutboundLinks = append(result.OutboundLinks, abs)
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		addAsset(src, entity.AssetImage, alt)
	})
	doc.Find("video[src], video source[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		addAsset(src, entity.AssetVideo, "")
	})
	doc.Find("embed[src], object[data], iframe[src]").Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr("src")
		if !ok {
			ref, _ = s.Attr("data")
		}
		if abs, ok := utils.ResolveHTTP(base, ref); ok {
			if kind, isAsset := AssetKindOf(abs); isAsset {
				addAsset(abs, kind, "")
			}
		}
	})

	result.Text = readableText(markup, base, doc)
	if result.Title == "" {
		result.Title = pageURL
	}
	return result, nil
}

// readableText prefers the readability article body and falls back to the
// whole body text for pages readability cannot parse.
func readableText(markup string, base *url.URL, doc *goquery.Document) string {
	article, err := readability.FromReader(strings.NewReader(markup), base)
	if err == nil {
		if text := collapseSpace(article.TextContent); text != "" {
			return text
		}
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return collapseSpace(body.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sameHost(base *url.URL, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), strings.TrimPrefix(base.Hostname(), "www."))
}
