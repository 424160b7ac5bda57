package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

const transcriptPrefix = "crawlpilot:transcript:"

// TranscriptRepoImpl keeps archived transcripts in Redis as JSON blobs that
// expire after a TTL.
type TranscriptRepoImpl struct {
	client *redis.Client
}

func NewTranscriptRepo(client *redis.Client) *TranscriptRepoImpl {
	return &TranscriptRepoImpl{client: client}
}

var _ repository.TranscriptArchiveRepository = (*TranscriptRepoImpl)(nil)

func (r *TranscriptRepoImpl) generateKey(archiveID string) string {
	return transcriptPrefix + archiveID
}

// Save overwrites the transcript of archiveID. A ttl of zero keeps it forever.
func (r *TranscriptRepoImpl) Save(ctx context.Context, archiveID string, turns []entity.Turn, ttl time.Duration) error {
	if turns == nil {
		turns = []entity.Turn{}
	}
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return r.client.Set(ctx, r.generateKey(archiveID), payload, max(ttl, 0)).Err()
}

func (r *TranscriptRepoImpl) Load(ctx context.Context, archiveID string) ([]entity.Turn, error) {
	payload, err := r.client.Get(ctx, r.generateKey(archiveID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrArchiveNotFound
	}
	if err != nil {
		return nil, err
	}

	var turns []entity.Turn
	if err := json.Unmarshal(payload, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return turns, nil
}

// TTL reports how long the transcript of archiveID is kept. It is negative
// when the key has no expiry or does not exist.
func (r *TranscriptRepoImpl) TTL(ctx context.Context, archiveID string) (time.Duration, error) {
	return r.client.TTL(ctx, r.generateKey(archiveID)).Result()
}
