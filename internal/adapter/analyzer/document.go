package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// document is parsed markup plus the URL it was loaded from.
type document struct {
	*goquery.Document
	base *url.URL
}

func parse(pageURL, markup string) (*document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return &document{Document: doc, base: base}, nil
}

// resolve returns ref as an absolute URL, or ref itself when it cannot be
// resolved.
func (d *document) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(u).String()
}

func (d *document) internal(abs string) bool {
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), strings.TrimPrefix(d.base.Hostname(), "www."))
}

// meta returns the content of the first meta tag whose name or property
// equals key, case-insensitively.
func (d *document) meta(key string) string {
	var content string
	d.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(metaKey(s), key) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

// metaWithPrefix collects meta tags whose key starts with prefix. The first
// value of a repeated key wins.
func (d *document) metaWithPrefix(prefix string) map[string]string {
	out := map[string]string{}
	d.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := strings.ToLower(metaKey(s))
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if !strings.HasPrefix(key, prefix) || content == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = content
		}
	})
	return out
}

func (d *document) bodyText() string {
	body := d.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

func metaKey(s *goquery.Selection) string {
	if p, ok := s.Attr("property"); ok && p != "" {
		return strings.TrimSpace(p)
	}
	return strings.TrimSpace(s.AttrOr("name", ""))
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
