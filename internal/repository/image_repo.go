package repository

import (
	"context"

	"github.com/user/crawl-pilot/internal/entity"
)

// ImageFetcher downloads an image and returns it base64 encoded.
type ImageFetcher interface {
	FetchEncode(ctx context.Context, url string) (*entity.EncodedImage, error)
}
