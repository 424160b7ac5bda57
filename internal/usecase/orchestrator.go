package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/pkg/metrics"
	"github.com/user/crawl-pilot/pkg/utils"
)

var (
	ErrNoSession        = errors.New("no crawl session is open")
	ErrSessionActive    = errors.New("a crawl session is already open")
	ErrProposalNotFound = errors.New("tool call proposal not found")
	ErrSeedScanFailed   = errors.New("seed page scan failed")
	ErrInvalidURL       = errors.New("URL must be an absolute http(s) URL")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrArchiveDisabled  = errors.New("session archiving is disabled")
	ErrPlannerFailed    = errors.New("planner exchange failed")
)

const (
	seedExcerptRunes = 2000
	seedLinkListCap  = 50
)

// OrchestratorDeps wires the collaborators of an Orchestrator. The archive
// repositories are optional.
type OrchestratorDeps struct {
	Scanner     repository.ScannerRepository
	Extractor   repository.StructuredDataExtractor
	SEO         repository.SEOAnalyzer
	Images      repository.ImageFetcher
	Transport   repository.PlannerTransport
	FanoutLimit int

	FrontierArchive   repository.FrontierArchiveRepository
	TranscriptArchive repository.TranscriptArchiveRepository
	TranscriptTTL     time.Duration
}

// SessionManager is the surface the delivery layer drives.
type SessionManager interface {
	Open(ctx context.Context, seedURL string) ([]entity.Turn, error)
	SendText(ctx context.Context, text string) ([]entity.Turn, error)
	Approve(ctx context.Context, turnID string) ([]entity.Turn, error)
	Reject(ctx context.Context, turnID string) (entity.Turn, error)
	StartBulkScan(ctx context.Context) (entity.BulkScanStatus, bool, error)
	StopBulkScan() (entity.BulkScanStatus, error)
	BulkScanStatus() (entity.BulkScanStatus, error)
	Frontier() (entity.FrontierSnapshot, error)
	Transcript() ([]entity.Turn, error)
	Snapshot() (*entity.SessionSnapshot, error)
	Archive(ctx context.Context) (string, error)
	LoadArchive(ctx context.Context, archiveID string) (*entity.SessionSnapshot, error)
	Reset()
}

var _ SessionManager = (*Orchestrator)(nil)

// Orchestrator owns the crawl session and routes planner proposals through
// the approval gate.
type Orchestrator struct {
	mu      sync.RWMutex
	current *session
	opening bool

	deps  OrchestratorDeps
	pages *PageScanner
	bulk  *BulkScanController
	now   func() time.Time
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	pages := NewPageScanner(deps.Scanner)
	return &Orchestrator{
		deps:  deps,
		pages: pages,
		bulk:  NewBulkScanController(pages),
		now:   time.Now,
	}
}

// Open scans seedURL and, only if that succeeds, starts a session seeded with
// the page and asks the planner for its first move. A failed seed scan leaves
// the orchestrator without a session.
func (o *Orchestrator) Open(ctx context.Context, seedURL string) ([]entity.Turn, error) {
	seedURL = strings.TrimSpace(seedURL)
	if !utils.IsAbsoluteHTTP(seedURL) {
		return nil, ErrInvalidURL
	}

	o.mu.Lock()
	if o.current != nil || o.opening {
		o.mu.Unlock()
		return nil, ErrSessionActive
	}
	o.opening = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.opening = false
		o.mu.Unlock()
	}()

	result, err := o.pages.Fetch(ctx, seedURL, TriggerSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedScanFailed, err)
	}
	planner, err := o.deps.Transport.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open planner session: %w", ErrPlannerFailed, err)
	}

	frontier := NewFrontier()
	frontier.RegisterSeed(seedURL, result.Title, result.Text, result.Markup)
	frontier.RegisterDiscoveredLinks(result.OutboundLinks)
	frontier.RegisterAssets(result.Assets)

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &session{
		id:           uuid.NewString(),
		seedURL:      seedURL,
		startedAt:    o.now(),
		frontier:     frontier,
		conversation: NewConversation(planner),
		bulkCtrl:     o.bulk,
		ctx:          sessCtx,
		cancel:       cancel,
	}
	sess.dispatcher = NewDispatcher(frontier, DispatcherDeps{
		Pages:       o.pages,
		Extractor:   o.deps.Extractor,
		SEO:         o.deps.SEO,
		Images:      o.deps.Images,
		FanoutLimit: o.deps.FanoutLimit,
	}, sess)

	o.mu.Lock()
	o.current = sess
	o.mu.Unlock()
	slog.Info("Crawl session opened", "session_id", sess.id, "seed", seedURL,
		"links", len(result.OutboundLinks), "assets", len(result.Assets))

	return o.exchange(ctx, sess, entity.PlannerMessage{Text: describeSeed(seedURL, result)})
}

// SendText sends a user message straight to the planner.
func (o *Orchestrator) SendText(ctx context.Context, text string) ([]entity.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	sess, err := o.active()
	if err != nil {
		return nil, err
	}
	user := sess.appendText(entity.SenderUser, text, o.now())
	turns, err := o.exchange(ctx, sess, entity.PlannerMessage{Text: text})
	return append([]entity.Turn{user}, turns...), err
}

// Approve removes the proposal, executes its tool and returns the planner's
// reply to the result.
func (o *Orchestrator) Approve(ctx context.Context, turnID string) ([]entity.Turn, error) {
	sess, err := o.active()
	if err != nil {
		return nil, err
	}
	proposal, ok := sess.takeProposal(turnID)
	if !ok {
		return nil, ErrProposalNotFound
	}
	metrics.ToolCallsTotal.WithLabelValues(proposal.Name, "approved").Inc()
	slog.Info("Tool call approved", "session_id", sess.id, "tool", proposal.Name, "call_id", proposal.CallID)

	tool := proposal.Tool
	if tool == nil {
		tool = entity.UnknownTool{Name: proposal.Name, Reason: "arguments were not parsed"}
	}
	result, err := sess.dispatcher.Dispatch(ctx, tool)
	if err != nil {
		slog.Error("Tool call failed", "session_id", sess.id, "tool", proposal.Name, "error", err)
		result = entity.Failure(err.Error())
	}

	return o.exchange(ctx, sess, entity.PlannerMessage{
		ToolResult: &entity.ToolResultMessage{
			CallID: proposal.CallID,
			Name:   proposal.Name,
			Result: result,
		},
	})
}

// Reject removes the proposal and appends a decline notice. Nothing is
// executed and nothing is sent to the planner.
func (o *Orchestrator) Reject(_ context.Context, turnID string) (entity.Turn, error) {
	sess, err := o.active()
	if err != nil {
		return entity.Turn{}, err
	}
	proposal, ok := sess.takeProposal(turnID)
	if !ok {
		return entity.Turn{}, ErrProposalNotFound
	}
	metrics.ToolCallsTotal.WithLabelValues(proposal.Name, "rejected").Inc()
	slog.Info("Tool call rejected", "session_id", sess.id, "tool", proposal.Name, "call_id", proposal.CallID)
	return sess.appendText(entity.SenderSystem, entity.DeclineNotice, o.now()), nil
}

// StartBulkScan scans every pending link in the background.
func (o *Orchestrator) StartBulkScan(ctx context.Context) (entity.BulkScanStatus, bool, error) {
	sess, err := o.active()
	if err != nil {
		return entity.BulkScanStatus{}, false, err
	}
	return sess.StartBulkScan(ctx)
}

// StopBulkScan stops the running bulk scan at its next iteration boundary.
func (o *Orchestrator) StopBulkScan() (entity.BulkScanStatus, error) {
	sess, err := o.active()
	if err != nil {
		return entity.BulkScanStatus{}, err
	}
	return sess.stopBulkScan(), nil
}

func (o *Orchestrator) BulkScanStatus() (entity.BulkScanStatus, error) {
	sess, err := o.active()
	if err != nil {
		return entity.BulkScanStatus{}, err
	}
	return sess.bulkStatus(), nil
}

func (o *Orchestrator) Frontier() (entity.FrontierSnapshot, error) {
	sess, err := o.active()
	if err != nil {
		return entity.FrontierSnapshot{}, err
	}
	return sess.frontier.Snapshot(), nil
}

func (o *Orchestrator) Transcript() ([]entity.Turn, error) {
	sess, err := o.active()
	if err != nil {
		return nil, err
	}
	return sess.turns(), nil
}

// Snapshot returns the complete state of the open session.
func (o *Orchestrator) Snapshot() (*entity.SessionSnapshot, error) {
	sess, err := o.active()
	if err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

// Archive stores the open session under its id, the frontier in the frontier
// archive and the transcript in the transcript archive. Archiving again
// replaces the earlier copy.
func (o *Orchestrator) Archive(ctx context.Context) (string, error) {
	if !o.archiving() {
		return "", ErrArchiveDisabled
	}
	sess, err := o.active()
	if err != nil {
		return "", err
	}

	snap := sess.snapshot()
	if err := o.deps.FrontierArchive.Save(ctx, snap.ID, snap); err != nil {
		return "", fmt.Errorf("failed to archive frontier: %w", err)
	}
	if err := o.deps.TranscriptArchive.Save(ctx, snap.ID, snap.Transcript, o.deps.TranscriptTTL); err != nil {
		return "", fmt.Errorf("failed to archive transcript: %w", err)
	}
	slog.Info("Crawl session archived", "session_id", snap.ID, "links", len(snap.Frontier.Links), "turns", len(snap.Transcript))
	return snap.ID, nil
}

// LoadArchive reads an archived session back. An expired transcript leaves
// the frontier readable with an empty transcript.
func (o *Orchestrator) LoadArchive(ctx context.Context, archiveID string) (*entity.SessionSnapshot, error) {
	if !o.archiving() {
		return nil, ErrArchiveDisabled
	}
	snap, err := o.deps.FrontierArchive.FindByID(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	turns, err := o.deps.TranscriptArchive.Load(ctx, archiveID)
	switch {
	case errors.Is(err, repository.ErrArchiveNotFound):
		slog.Info("Archived transcript expired", "archive_id", archiveID)
	case err != nil:
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	default:
		snap.Transcript = turns
	}
	return snap, nil
}

func (o *Orchestrator) archiving() bool {
	return o.deps.FrontierArchive != nil && o.deps.TranscriptArchive != nil
}

// Reset discards the session. A running bulk scan is stopped; a scan in
// flight finishes against the discarded frontier.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	sess := o.current
	o.current = nil
	o.mu.Unlock()

	if sess == nil {
		return
	}
	sess.stopBulkScan()
	sess.cancel()
	metrics.FrontierLinks.Reset()
	metrics.FrontierAssets.Set(0)
	slog.Info("Crawl session reset", "session_id", sess.id)
}

func (o *Orchestrator) active() (*session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return nil, ErrNoSession
	}
	return o.current, nil
}

// exchange sends msg and appends the reply turns. A transport failure is
// recorded as a system notice so the transcript shows why no reply came.
func (o *Orchestrator) exchange(ctx context.Context, sess *session, msg entity.PlannerMessage) ([]entity.Turn, error) {
	turns, err := sess.conversation.Send(ctx, msg)
	if err != nil {
		slog.Error("Planner exchange failed", "session_id", sess.id, "error", err)
		notice := sess.appendText(entity.SenderSystem, "The planner could not be reached: "+err.Error(), o.now())
		return []entity.Turn{notice}, fmt.Errorf("%w: %w", ErrPlannerFailed, err)
	}
	sess.append(turns...)
	return turns, nil
}

func describeSeed(seedURL string, result *entity.ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I scanned the seed page %s", seedURL)
	if result.Title != "" {
		fmt.Fprintf(&b, " titled %q", result.Title)
	}
	fmt.Fprintf(&b, ". It links to %d pages and embeds %d assets.\n\n", len(result.OutboundLinks), len(result.Assets))

	if excerpt := utils.Excerpt(result.Text, seedExcerptRunes); excerpt != "" {
		b.WriteString("Page content excerpt:\n")
		b.WriteString(excerpt)
		b.WriteString("\n\n")
	}

	if len(result.OutboundLinks) > 0 {
		b.WriteString("Discovered links:\n")
		for i, link := range result.OutboundLinks {
			if i == seedLinkListCap {
				fmt.Fprintf(&b, "... and %d more\n", len(result.OutboundLinks)-seedLinkListCap)
				break
			}
			b.WriteString("- ")
			b.WriteString(link)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(result.Assets) > 0 {
		kinds := map[entity.AssetKind]int{}
		for _, a := range result.Assets {
			kinds[a.Kind]++
		}
		fmt.Fprintf(&b, "Assets: %d images, %d documents, %d videos.\n\n",
			kinds[entity.AssetImage], kinds[entity.AssetDocument], kinds[entity.AssetVideo])
	}

	b.WriteString("Suggest what to explore next and use the available tools when you need more data.")
	return b.String()
}
