package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
)

var ErrArchiveNotFound = errors.New("archive not found")

// FrontierArchiveRepository stores frontier snapshots of finished or ongoing sessions.
type FrontierArchiveRepository interface {
	// Save writes the snapshot under archiveID, replacing a previous copy.
	Save(ctx context.Context, archiveID string, snap *entity.SessionSnapshot) error
	// FindByID loads the session header and frontier of an archive.
	FindByID(ctx context.Context, archiveID string) (*entity.SessionSnapshot, error)
}

// TranscriptArchiveRepository stores transcripts for a limited time.
type TranscriptArchiveRepository interface {
	Save(ctx context.Context, archiveID string, turns []entity.Turn, ttl time.Duration) error
	Load(ctx context.Context, archiveID string) ([]entity.Turn, error)
}
