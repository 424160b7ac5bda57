package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTranscriptRoundTrip(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	repo := NewTranscriptRepo(client)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	turns := []entity.Turn{
		{ID: "t1", Kind: entity.TurnText, Sender: entity.SenderPlanner, Text: "Hello.", CreatedAt: created},
		{ID: "t2", Kind: entity.TurnToolCall, Sender: entity.SenderPlanner, CreatedAt: created, Proposal: &entity.ToolProposal{
			CallID:    "call_1",
			Name:      entity.ToolScanPages,
			Arguments: []byte(`{"urls":["https://example.com/a"]}`),
		}},
	}

	if err := repo.Save(ctx, "archive-1", turns, time.Hour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Load(ctx, "archive-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "Hello." || got[1].Proposal == nil || got[1].Proposal.CallID != "call_1" {
		t.Fatalf("Load() = %+v", got)
	}
	if !got[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}

	ttl, err := repo.TTL(ctx, "archive-1")
	if err != nil || ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL() = %v, %v", ttl, err)
	}

	if err := repo.Save(ctx, "archive-empty", nil, 0); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}
	if got, err := repo.Load(ctx, "archive-empty"); err != nil || len(got) != 0 {
		t.Errorf("Load(empty) = %+v, %v", got, err)
	}

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, repository.ErrArchiveNotFound) {
		t.Fatalf("Load(missing) error = %v", err)
	}
}
