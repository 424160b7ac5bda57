package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

type orchestratorFixture struct {
	scanner   *fakeScanner
	planner   *fakePlannerSession
	transport *fakeTransport
	o         *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	fx := &orchestratorFixture{
		scanner: newFakeScanner().page(seed, "Home", "https://example.com/a", "https://example.com/b"),
		planner: &fakePlannerSession{},
	}
	fx.transport = &fakeTransport{session: fx.planner}
	fx.o = NewOrchestrator(OrchestratorDeps{
		Scanner:   fx.scanner,
		Extractor: &fakeExtractor{},
		SEO:       &fakeSEO{},
		Images:    &fakeImages{},
		Transport: fx.transport,
	})
	return fx
}

func (fx *orchestratorFixture) open(t *testing.T) []entity.Turn {
	t.Helper()
	turns, err := fx.o.Open(context.Background(), seed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return turns
}

func proposalTurn(t *testing.T, turns []entity.Turn) entity.Turn {
	t.Helper()
	for _, turn := range turns {
		if turn.Kind == entity.TurnToolCall {
			return turn
		}
	}
	t.Fatalf("no proposal among %+v", turns)
	return entity.Turn{}
}

func TestOrchestratorOpen(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.planner.script(scriptedReply{chunks: []entity.ReplyChunk{textChunk("Nice site.")}})

	turns := fx.open(t)
	if len(turns) != 1 || turns[0].Text != "Nice site." {
		t.Fatalf("turns = %+v", turns)
	}

	snap, err := fx.o.Frontier()
	if err != nil {
		t.Fatalf("Frontier() error = %v", err)
	}
	counts := snap.Counts()
	if counts[entity.LinkScanned] != 1 || counts[entity.LinkPending] != 2 {
		t.Errorf("counts = %v, want seed scanned and two pending", counts)
	}

	sent := fx.planner.messages()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, seed) || !strings.Contains(sent[0].Text, "https://example.com/a") {
		t.Fatalf("seed description = %+v", sent)
	}

	if _, err := fx.o.Open(context.Background(), "https://other.example/"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Open() error = %v, want ErrSessionActive", err)
	}
}

func TestOrchestratorOpenSeedFailure(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.scanner.fail(seed, repository.ErrNavigationFailed)

	_, err := fx.o.Open(context.Background(), seed)
	if !errors.Is(err, ErrSeedScanFailed) || !errors.Is(err, repository.ErrNavigationFailed) {
		t.Fatalf("Open() error = %v", err)
	}
	if fx.transport.created != 0 {
		t.Error("planner session created despite failed seed scan")
	}
	if _, err := fx.o.Frontier(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Frontier() error = %v, want ErrNoSession", err)
	}
}

func TestOrchestratorOpenInvalidURL(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	for _, url := range []string{"", "example.com", "ftp://example.com/", "/path"} {
		if _, err := fx.o.Open(context.Background(), url); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Open(%q) error = %v, want ErrInvalidURL", url, err)
		}
	}
	if len(fx.scanner.scanned()) != 0 {
		t.Error("invalid URL reached the scanner")
	}
}

func TestOrchestratorApprove(t *testing.T) {
	t.Parallel()

	const target = "https://example.com/a"
	fx := newOrchestratorFixture()
	fx.scanner.page(target, "Page A")
	fx.planner.script(
		scriptedReply{chunks: []entity.ReplyChunk{
			textChunk("I will scan a."),
			callChunk("call-1", entity.ToolScanPages, `{"urls":["`+target+`"]}`),
		}},
		scriptedReply{chunks: []entity.ReplyChunk{textChunk("Page A is about A.")}},
	)

	proposal := proposalTurn(t, fx.open(t))
	if len(fx.scanner.scanned()) != 1 {
		t.Fatal("proposal executed before approval")
	}

	turns, err := fx.o.Approve(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "Page A is about A." {
		t.Fatalf("reply turns = %+v", turns)
	}

	sent := fx.planner.messages()
	last := sent[len(sent)-1]
	if last.ToolResult == nil || last.ToolResult.CallID != "call-1" || last.ToolResult.Name != entity.ToolScanPages {
		t.Fatalf("tool result message = %+v", last)
	}
	if !last.ToolResult.Result.Success {
		t.Errorf("tool result = %+v", last.ToolResult.Result)
	}

	snap, _ := fx.o.Frontier()
	if l, _ := snap.Link(target); l.Status != entity.LinkScanned {
		t.Errorf("target status = %s, want scanned", l.Status)
	}

	transcript, _ := fx.o.Transcript()
	for _, turn := range transcript {
		if turn.ID == proposal.ID {
			t.Fatal("approved proposal still in transcript")
		}
	}

	if _, err := fx.o.Approve(context.Background(), proposal.ID); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("second Approve() error = %v, want ErrProposalNotFound", err)
	}
}

func TestOrchestratorReject(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.planner.script(scriptedReply{chunks: []entity.ReplyChunk{
		callChunk("call-1", entity.ToolScanAllPendingPages, `{}`),
	}})
	proposal := proposalTurn(t, fx.open(t))

	turn, err := fx.o.Reject(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if turn.Text != entity.DeclineNotice {
		t.Errorf("decline turn = %+v", turn)
	}
	if got := len(fx.planner.messages()); got != 1 {
		t.Errorf("planner received %d messages, rejection must not reach it", got)
	}
	if status, _ := fx.o.BulkScanStatus(); status.Total != 0 || status.Running {
		t.Errorf("bulk scan ran after rejection: %+v", status)
	}

	transcript, _ := fx.o.Transcript()
	last := transcript[len(transcript)-1]
	if last.Kind == entity.TurnToolCall || last.Text != entity.DeclineNotice {
		t.Fatalf("transcript tail = %+v", last)
	}
}

func TestOrchestratorApproveBulkScan(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.scanner.page("https://example.com/a", "A").page("https://example.com/b", "B")
	fx.planner.script(
		scriptedReply{chunks: []entity.ReplyChunk{callChunk("call-1", entity.ToolScanAllPendingPages, `{}`)}},
		scriptedReply{chunks: []entity.ReplyChunk{textChunk("Scanning in the background.")}},
	)
	proposal := proposalTurn(t, fx.open(t))

	if _, err := fx.o.Approve(context.Background(), proposal.ID); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := fx.o.BulkScanStatus()
		if err != nil {
			t.Fatalf("BulkScanStatus() error = %v", err)
		}
		if !status.Running {
			if status.Scanned != 2 {
				t.Fatalf("status = %+v, want both pending pages scanned", status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("bulk scan did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap, _ := fx.o.Frontier()
	if counts := snap.Counts(); counts[entity.LinkPending] != 0 {
		t.Errorf("counts = %v, want nothing pending", counts)
	}
}

func TestOrchestratorTransportFailure(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.planner.script(
		scriptedReply{chunks: []entity.ReplyChunk{textChunk("Hello.")}},
		scriptedReply{err: errors.New("503 Service Unavailable")},
	)
	fx.open(t)

	turns, err := fx.o.SendText(context.Background(), "What next?")
	if !errors.Is(err, ErrPlannerFailed) {
		t.Fatalf("SendText() error = %v, want ErrPlannerFailed", err)
	}
	if len(turns) != 2 || turns[0].Sender != entity.SenderUser || turns[1].Sender != entity.SenderSystem {
		t.Fatalf("turns = %+v, want user turn and system notice", turns)
	}

	transcript, _ := fx.o.Transcript()
	if tail := transcript[len(transcript)-1]; !strings.Contains(tail.Text, "503") {
		t.Errorf("transcript tail = %+v", tail)
	}
}

func TestOrchestratorWithoutSession(t *testing.T) {
	t.Parallel()

	o := newOrchestratorFixture().o
	ctx := context.Background()

	if _, err := o.SendText(ctx, "hi"); !errors.Is(err, ErrNoSession) {
		t.Errorf("SendText() error = %v", err)
	}
	if _, err := o.Approve(ctx, "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Approve() error = %v", err)
	}
	if _, err := o.Reject(ctx, "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Reject() error = %v", err)
	}
	if _, _, err := o.StartBulkScan(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("StartBulkScan() error = %v", err)
	}
	if _, err := o.Snapshot(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Snapshot() error = %v", err)
	}
	o.Reset()
}

func TestOrchestratorResetAllowsNewSession(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	fx.open(t)

	if _, err := fx.o.SendText(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("SendText(blank) error = %v, want ErrEmptyMessage", err)
	}

	fx.o.Reset()
	if _, err := fx.o.Transcript(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Transcript() after Reset error = %v", err)
	}

	turns := fx.open(t)
	if len(turns) != 1 || turns[0].Text != entity.EmptyResponseNotice {
		t.Fatalf("turns = %+v", turns)
	}
	snap, err := fx.o.Snapshot()
	if err != nil || snap.SeedURL != seed || len(snap.Transcript) != 1 {
		t.Fatalf("Snapshot() = %+v, %v", snap, err)
	}
}

func TestOrchestratorArchive(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture()
	if _, err := fx.o.Archive(context.Background()); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("Archive() without stores error = %v, want ErrArchiveDisabled", err)
	}

	archive := newMemoryArchive()
	fx.o = NewOrchestrator(OrchestratorDeps{
		Scanner:           fx.scanner,
		Extractor:         &fakeExtractor{},
		SEO:               &fakeSEO{},
		Images:            &fakeImages{},
		Transport:         fx.transport,
		FrontierArchive:   archive.frontier(),
		TranscriptArchive: archive.transcript(),
		TranscriptTTL:     time.Hour,
	})
	fx.planner.script(scriptedReply{chunks: []entity.ReplyChunk{textChunk("Archived soon.")}})
	fx.open(t)

	id, err := fx.o.Archive(context.Background())
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if archive.ttl != time.Hour {
		t.Errorf("transcript ttl = %v, want 1h", archive.ttl)
	}

	fx.o.Reset()
	snap, err := fx.o.LoadArchive(context.Background(), id)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if snap.SeedURL != seed || len(snap.Frontier.Links) != 3 || len(snap.Transcript) != 1 {
		t.Fatalf("archived snapshot = %+v", snap)
	}

	archive.mu.Lock()
	delete(archive.transcripts, id)
	archive.mu.Unlock()
	snap, err = fx.o.LoadArchive(context.Background(), id)
	if err != nil || len(snap.Transcript) != 0 {
		t.Fatalf("expired transcript: snapshot = %+v, err = %v", snap, err)
	}

	if _, err := fx.o.LoadArchive(context.Background(), "missing"); !errors.Is(err, repository.ErrArchiveNotFound) {
		t.Fatalf("LoadArchive(missing) error = %v", err)
	}
}
