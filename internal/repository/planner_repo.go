package repository

import (
	"context"
	"iter"

	"github.com/user/crawl-pilot/internal/entity"
)

// PlannerTransport opens conversations with the AI planner.
type PlannerTransport interface {
	CreateSession(ctx context.Context) (PlannerSession, error)
}

// PlannerSession is one ongoing conversation. Send returns a finite,
// non-restartable sequence of reply chunks; a non-nil error ends the sequence.
type PlannerSession interface {
	Send(ctx context.Context, msg entity.PlannerMessage) iter.Seq2[entity.ReplyChunk, error]
}
