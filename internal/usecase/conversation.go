package usecase

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/internal/tools"
	"github.com/user/crawl-pilot/pkg/metrics"
)

// Conversation drives the single planner session of a crawl session. Sends
// are serialized: a reply is fully consumed before the next message goes out.
type Conversation struct {
	mu      sync.Mutex
	session repository.PlannerSession
	now     func() time.Time
}

func NewConversation(session repository.PlannerSession) *Conversation {
	return &Conversation{session: session, now: time.Now}
}

// Send delivers msg and returns the finalized turns of the reply.
func (c *Conversation) Send(ctx context.Context, msg entity.PlannerMessage) ([]entity.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns, err := Accumulate(c.session.Send(ctx, msg), c.now)
	if err != nil {
		return nil, fmt.Errorf("planner reply failed: %w", err)
	}
	for _, turn := range turns {
		metrics.PlannerTurnsTotal.WithLabelValues(string(turn.Kind)).Inc()
	}
	return turns, nil
}

// Accumulate consumes the whole reply stream into finalized turns. Text
// fragments are concatenated in order; the last chunk carrying tool calls
// replaces any earlier ones and only its first call becomes a proposal. A
// completed stream always yields at least one turn.
func Accumulate(stream iter.Seq2[entity.ReplyChunk, error], now func() time.Time) ([]entity.Turn, error) {
	var (
		text  strings.Builder
		calls []entity.ProposedCall
	)
	for chunk, err := range stream {
		if err != nil {
			return nil, err
		}
		text.WriteString(chunk.Text)
		if len(chunk.ToolCalls) > 0 {
			calls = chunk.ToolCalls
		}
	}

	var turns []entity.Turn
	if reply := strings.TrimSpace(text.String()); reply != "" {
		turns = append(turns, entity.Turn{
			ID:        uuid.NewString(),
			Kind:      entity.TurnText,
			Sender:    entity.SenderPlanner,
			Text:      reply,
			CreatedAt: now(),
		})
	}
	if len(calls) > 0 {
		call := calls[0]
		turns = append(turns, entity.Turn{
			ID:     uuid.NewString(),
			Kind:   entity.TurnToolCall,
			Sender: entity.SenderPlanner,
			Proposal: &entity.ToolProposal{
				CallID:    call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				Tool:      tools.ParseOrUnknown(call.Name, call.Arguments),
			},
			CreatedAt: now(),
		})
	}
	if len(turns) == 0 {
		turns = append(turns, entity.Turn{
			ID:        uuid.NewString(),
			Kind:      entity.TurnText,
			Sender:    entity.SenderPlanner,
			Text:      entity.EmptyResponseNotice,
			CreatedAt: now(),
		})
	}
	return turns, nil
}
