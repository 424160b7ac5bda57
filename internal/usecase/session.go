package usecase

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/crawl-pilot/internal/entity"
)

// session is the explicit lifecycle object of one crawl: frontier, planner
// conversation, transcript and bulk scan belong to it and are discarded with it.
type session struct {
	id        string
	seedURL   string
	startedAt time.Time

	frontier     *Frontier
	conversation *Conversation
	dispatcher   *Dispatcher
	bulkCtrl     *BulkScanController

	// ctx outlives individual requests; background bulk scans run under it.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	transcript []entity.Turn
	bulk       *BulkScanHandle
	lastBulk   entity.BulkScanStatus
}

func (s *session) append(turns ...entity.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, turns...)
}

func (s *session) appendText(sender entity.Sender, text string, now time.Time) entity.Turn {
	turn := entity.Turn{
		ID:        uuid.NewString(),
		Kind:      entity.TurnText,
		Sender:    sender,
		Text:      text,
		CreatedAt: now,
	}
	s.append(turn)
	return turn
}

// takeProposal removes the proposal turn with the given id. Removal is by
// identity, so a stale id never takes an unrelated proposal.
func (s *session) takeProposal(turnID string) (*entity.ToolProposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.transcript, func(t entity.Turn) bool {
		return t.ID == turnID && t.Kind == entity.TurnToolCall && t.Proposal != nil
	})
	if idx < 0 {
		return nil, false
	}
	proposal := s.transcript[idx].Proposal
	s.transcript = slices.Delete(s.transcript, idx, idx+1)
	return proposal, true
}

func (s *session) turns() []entity.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// StartBulkScan starts a bulk scan unless one is already running, in which
// case the running scan's status is returned with started=false.
func (s *session) StartBulkScan(_ context.Context) (entity.BulkScanStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bulk != nil {
		select {
		case <-s.bulk.Done():
			s.lastBulk = s.bulk.Status()
			s.bulk = nil
		default:
			return s.bulk.Status(), false, nil
		}
	}
	s.bulk = s.bulkCtrl.Start(s.ctx, s.frontier)
	return s.bulk.Status(), true, nil
}

// stopBulkScan stops the running bulk scan, if any, and returns its status.
func (s *session) stopBulkScan() entity.BulkScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bulk == nil {
		return s.lastBulk
	}
	s.bulk.Stop()
	return s.bulk.Status()
}

func (s *session) bulkStatus() entity.BulkScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bulk == nil {
		return s.lastBulk
	}
	return s.bulk.Status()
}

func (s *session) snapshot() *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		ID:         s.id,
		SeedURL:    s.seedURL,
		StartedAt:  s.startedAt,
		Frontier:   s.frontier.Snapshot(),
		Transcript: s.turns(),
		BulkScan:   s.bulkStatus(),
	}
}
