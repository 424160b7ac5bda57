package repository

import (
	"context"

	"github.com/user/crawl-pilot/internal/entity"
)

// StructuredDataExtractor pulls a named kind of structured data out of the
// markup of pageURL. The returned value is opaque to the caller and only
// needs to marshal to JSON.
type StructuredDataExtractor interface {
	Extract(ctx context.Context, pageURL, markup, dataType string) (any, error)
}

// SEOAnalyzer audits the on-page SEO of the markup of pageURL.
type SEOAnalyzer interface {
	Analyze(ctx context.Context, pageURL, markup string) (*entity.SEOReport, error)
}
