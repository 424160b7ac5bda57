package repository

import (
	"context"
	"errors"

	"github.com/user/crawl-pilot/internal/entity"
)

var (
	ErrScanTimeout       = errors.New("page load timed out")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrExtractionFailed  = errors.New("content extraction failed")
	ErrContentRestricted = errors.New("content is restricted or requires authentication")
)

// ScannerRepository fetches one page and extracts its content. A call either
// returns a complete result or an error; partial results are never reported.
type ScannerRepository interface {
	Scan(ctx context.Context, url string) (*entity.ScanResult, error)
}
