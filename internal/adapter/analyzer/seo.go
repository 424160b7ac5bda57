package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

const (
	minTitleLen       = 30
	maxTitleLen       = 60
	minDescriptionLen = 70
	maxDescriptionLen = 160
	thinContentWords  = 300
)

// SEOAnalyzer implements repository.SEOAnalyzer over goquery.
type SEOAnalyzer struct{}

func NewSEOAnalyzer() *SEOAnalyzer {
	return &SEOAnalyzer{}
}

var _ repository.SEOAnalyzer = (*SEOAnalyzer)(nil)

// Analyze audits the page and scores it from 100 down, one penalty per issue.
func (a *SEOAnalyzer) Analyze(ctx context.Context, pageURL, markup string) (*entity.SEOReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := parse(pageURL, markup)
	if err != nil {
		return nil, err
	}

	r := &entity.SEOReport{
		Title:           text(doc.Find("title").First()),
		MetaDescription: doc.meta("description"),
		Robots:          doc.meta("robots"),
		Lang:            strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
		HasViewport:     doc.meta("viewport") != "",
		Headings:        map[string]int{},
		OpenGraph:       doc.metaWithPrefix("og:"),
		Issues:          []string{},
	}
	r.TitleLength = utf8.RuneCountInString(r.Title)
	r.MetaDescriptionLen = utf8.RuneCountInString(r.MetaDescription)
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		r.Canonical = doc.resolve(href)
	}

	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("h%d", level)
		if n := doc.Find(tag).Length(); n > 0 {
			r.Headings[tag] = n
		}
	}
	r.H1Count = r.Headings["h1"]

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		r.ImageCount++
		if _, ok := s.Attr("alt"); !ok {
			r.ImagesMissingAlt++
		}
	})
	for _, l := range links(doc) {
		if l.Internal {
			r.InternalLinks++
		} else {
			r.ExternalLinks++
		}
	}
	r.WordCount = len(strings.Fields(doc.bodyText()))

	score := 100
	issue := func(penalty int, format string, args ...any) {
		r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
		score -= penalty
	}

	switch {
	case r.Title == "":
		issue(20, "Missing <title>.")
	case r.TitleLength < minTitleLen:
		issue(5, "Title is short (%d characters, recommended %d-%d).", r.TitleLength, minTitleLen, maxTitleLen)
	case r.TitleLength > maxTitleLen:
		issue(5, "Title is long (%d characters, recommended %d-%d).", r.TitleLength, minTitleLen, maxTitleLen)
	}
	switch {
	case r.MetaDescription == "":
		issue(15, "Missing meta description.")
	case r.MetaDescriptionLen < minDescriptionLen:
		issue(5, "Meta description is short (%d characters, recommended %d-%d).", r.MetaDescriptionLen, minDescriptionLen, maxDescriptionLen)
	case r.MetaDescriptionLen > maxDescriptionLen:
		issue(5, "Meta description is long (%d characters, recommended %d-%d).", r.MetaDescriptionLen, minDescriptionLen, maxDescriptionLen)
	}
	switch {
	case r.H1Count == 0:
		issue(10, "No <h1> heading.")
	case r.H1Count > 1:
		issue(5, "%d <h1> headings, expected one.", r.H1Count)
	}
	if r.Canonical == "" {
		issue(5, "No canonical link.")
	}
	if strings.Contains(strings.ToLower(r.Robots), "noindex") {
		issue(15, "Robots meta tag blocks indexing (%s).", r.Robots)
	}
	if r.Lang == "" {
		issue(5, "Missing lang attribute on <html>.")
	}
	if !r.HasViewport {
		issue(10, "Missing viewport meta tag.")
	}
	if r.ImagesMissingAlt > 0 {
		issue(min(10, 2*r.ImagesMissingAlt), "%d of %d images have no alt attribute.", r.ImagesMissingAlt, r.ImageCount)
	}
	if _, ok := r.OpenGraph["og:title"]; !ok {
		issue(5, "No Open Graph title.")
	}
	if r.WordCount < thinContentWords {
		issue(5, "Thin content (%d words).", r.WordCount)
	}

	r.Score = max(score, 0)
	return r, nil
}
