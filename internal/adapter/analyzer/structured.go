package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/crawl-pilot/internal/repository"
)

var ErrUnsupportedDataType = errors.New("unsupported data type")

// DataTypes lists the kinds Extract understands.
var DataTypes = []string{"jsonld", "opengraph", "twitter", "meta", "headings", "tables", "contacts", "links", "images"}

const (
	maxTables    = 20
	maxTableRows = 100
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	socialHosts  = []string{"facebook.com", "twitter.com", "x.com", "linkedin.com", "instagram.com", "youtube.com", "github.com", "tiktok.com", "mastodon.social"}
)

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type Table struct {
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

type Contacts struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
	Social []string `json:"social"`
}

type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Internal bool   `json:"internal"`
	NoFollow bool   `json:"nofollow,omitempty"`
}

type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

type PageMeta struct {
	Title     string            `json:"title"`
	Lang      string            `json:"lang,omitempty"`
	Canonical string            `json:"canonical,omitempty"`
	Charset   string            `json:"charset,omitempty"`
	Tags      map[string]string `json:"tags"`
}

// Extractor implements repository.StructuredDataExtractor over goquery.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var _ repository.StructuredDataExtractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, pageURL, markup, dataType string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := strings.ToLower(strings.TrimSpace(dataType))
	if !slices.Contains(DataTypes, kind) {
		return nil, fmt.Errorf("%w %q, expected one of %s", ErrUnsupportedDataType, dataType, strings.Join(DataTypes, ", "))
	}
	doc, err := parse(pageURL, markup)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "jsonld":
		return jsonLD(doc), nil
	case "opengraph":
		return doc.metaWithPrefix("og:"), nil
	case "twitter":
		return doc.metaWithPrefix("twitter:"), nil
	case "meta":
		return pageMeta(doc), nil
	case "headings":
		return headings(doc), nil
	case "tables":
		return tables(doc), nil
	case "contacts":
		return contacts(doc), nil
	case "links":
		return links(doc), nil
	default:
		return images(doc), nil
	}
}

// jsonLD decodes every ld+json block. Blocks that are not valid JSON are
// skipped.
func jsonLD(doc *document) []any {
	out := []any{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		if graph, ok := v.([]any); ok {
			out = append(out, graph...)
			return
		}
		out = append(out, v)
	})
	return out
}

func pageMeta(doc *document) PageMeta {
	m := PageMeta{
		Title: text(doc.Find("title").First()),
		Lang:  doc.Find("html").AttrOr("lang", ""),
		Tags:  map[string]string{},
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		m.Canonical = doc.resolve(href)
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if charset, ok := s.Attr("charset"); ok {
			m.Charset = charset
			return
		}
		key := metaKey(s)
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if key == "" || content == "" {
			return
		}
		if _, ok := m.Tags[key]; !ok {
			m.Tags[key] = content
		}
	})
	return m
}

func headings(doc *document) []Heading {
	out := []Heading{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if t := text(s); t != "" {
			out = append(out, Heading{Level: int(goquery.NodeName(s)[1] - '0'), Text: t})
		}
	})
	return out
}

func tables(doc *document) []Table {
	out := []Table{}
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		t := Table{Caption: text(tbl.Find("caption").First()), Rows: [][]string{}}
		tbl.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
			var cells []string
			headerRow := true
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				if goquery.NodeName(cell) == "td" {
					headerRow = false
				}
				cells = append(cells, text(cell))
			})
			switch {
			case len(cells) == 0:
			case headerRow && t.Headers == nil:
				t.Headers = cells
			default:
				t.Rows = append(t.Rows, cells)
			}
			return len(t.Rows) < maxTableRows
		})
		out = append(out, t)
		return len(out) < maxTables
	})
	return out
}

func contacts(doc *document) Contacts {
	c := Contacts{Emails: []string{}, Phones: []string{}, Social: []string{}}
	add := func(list *[]string, v string) {
		if v != "" && !slices.Contains(*list, v) {
			*list = append(*list, v)
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr, _, _ := strings.Cut(href[len("mailto:"):], "?")
			add(&c.Emails, strings.ToLower(addr))
		case strings.HasPrefix(lower, "tel:"):
			add(&c.Phones, strings.TrimSpace(href[len("tel:"):]))
		default:
			abs := doc.resolve(href)
			for _, host := range socialHosts {
				if strings.Contains(strings.ToLower(abs), "://"+host) || strings.Contains(strings.ToLower(abs), "."+host) {
					add(&c.Social, abs)
					break
				}
			}
		}
	})
	for _, addr := range emailPattern.FindAllString(doc.bodyText(), -1) {
		add(&c.Emails, strings.ToLower(addr))
	}
	return c
}

func links(doc *document) []Link {
	out := []Link{}
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		abs := doc.resolve(href)
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Link{
			URL:      abs,
			Text:     text(s),
			Internal: doc.internal(abs),
			NoFollow: strings.Contains(strings.ToLower(s.AttrOr("rel", "")), "nofollow"),
		})
	})
	return out
}

func images(doc *document) []Image {
	out := []Image{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if src == "" {
			return
		}
		out = append(out, Image{
			URL:    doc.resolve(src),
			Alt:    strings.TrimSpace(s.AttrOr("alt", "")),
			Width:  s.AttrOr("width", ""),
			Height: s.AttrOr("height", ""),
		})
	})
	return out
}
