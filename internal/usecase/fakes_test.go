package usecase

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

type fakeScanner struct {
	mu    sync.Mutex
	pages map[string]*entity.ScanResult
	errs  map[string]error
	calls []string
	// hook runs before the scan returns and may block.
	hook func(url string)
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{
		pages: make(map[string]*entity.ScanResult),
		errs:  make(map[string]error),
	}
}

func (f *fakeScanner) page(url, title string, links ...string) *fakeScanner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = &entity.ScanResult{
		URL:           url,
		Title:         title,
		Text:          title + " body text",
		Markup:        "<html><head><title>" + title + "</title></head><body></body></html>",
		OutboundLinks: links,
		StatusCode:    200,
	}
	return f
}

func (f *fakeScanner) fail(url string, err error) *fakeScanner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

func (f *fakeScanner) Scan(_ context.Context, url string) (*entity.ScanResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		copied := *page
		return &copied, nil
	}
	return nil, repository.ErrNavigationFailed
}

func (f *fakeScanner) scanned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type scriptedReply struct {
	chunks []entity.ReplyChunk
	err    error
}

type fakePlannerSession struct {
	mu      sync.Mutex
	sent    []entity.PlannerMessage
	replies []scriptedReply
}

func (s *fakePlannerSession) script(replies ...scriptedReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

func (s *fakePlannerSession) Send(_ context.Context, msg entity.PlannerMessage) iter.Seq2[entity.ReplyChunk, error] {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	var reply scriptedReply
	if len(s.replies) > 0 {
		reply = s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	return func(yield func(entity.ReplyChunk, error) bool) {
		for _, chunk := range reply.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if reply.err != nil {
			yield(entity.ReplyChunk{}, reply.err)
		}
	}
}

func (s *fakePlannerSession) messages() []entity.PlannerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

type fakeTransport struct {
	session *fakePlannerSession
	created int
	err     error
}

func (t *fakeTransport) CreateSession(context.Context) (repository.PlannerSession, error) {
	if t.err != nil {
		return nil, t.err
	}
	t.created++
	return t.session, nil
}

type fakeExtractor struct {
	data     any
	err      error
	markup   string
	dataType string
}

func (f *fakeExtractor) Extract(_ context.Context, _, markup, dataType string) (any, error) {
	f.markup = markup
	f.dataType = dataType
	return f.data, f.err
}

type fakeSEO struct {
	report *entity.SEOReport
	err    error
	calls  int
}

func (f *fakeSEO) Analyze(context.Context, string, string) (*entity.SEOReport, error) {
	f.calls++
	return f.report, f.err
}

type fakeImages struct {
	image *entity.EncodedImage
	err   error
}

func (f *fakeImages) FetchEncode(context.Context, string) (*entity.EncodedImage, error) {
	return f.image, f.err
}

type fakeStarter struct {
	status  entity.BulkScanStatus
	started bool
	err     error
	calls   int
}

func (f *fakeStarter) StartBulkScan(context.Context) (entity.BulkScanStatus, bool, error) {
	f.calls++
	return f.status, f.started, f.err
}

func textChunk(s string) entity.ReplyChunk {
	return entity.ReplyChunk{Text: s}
}

func callChunk(id, name, args string) entity.ReplyChunk {
	return entity.ReplyChunk{ToolCalls: []entity.ProposedCall{{ID: id, Name: name, Arguments: []byte(args)}}}
}

type memoryArchive struct {
	mu          sync.Mutex
	snapshots   map[string]entity.SessionSnapshot
	transcripts map[string][]entity.Turn
	ttl         time.Duration
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{
		snapshots:   make(map[string]entity.SessionSnapshot),
		transcripts: make(map[string][]entity.Turn),
	}
}

func (m *memoryArchive) frontier() repository.FrontierArchiveRepository { return frontierArchive{m} }

func (m *memoryArchive) transcript() repository.TranscriptArchiveRepository {
	return transcriptArchive{m}
}

type frontierArchive struct{ m *memoryArchive }

func (a frontierArchive) Save(_ context.Context, id string, snap *entity.SessionSnapshot) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	stored := *snap
	stored.Transcript = nil
	a.m.snapshots[id] = stored
	return nil
}

func (a frontierArchive) FindByID(_ context.Context, id string) (*entity.SessionSnapshot, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	snap, ok := a.m.snapshots[id]
	if !ok {
		return nil, repository.ErrArchiveNotFound
	}
	return &snap, nil
}

type transcriptArchive struct{ m *memoryArchive }

func (a transcriptArchive) Save(_ context.Context, id string, turns []entity.Turn, ttl time.Duration) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.transcripts[id] = slices.Clone(turns)
	a.m.ttl = ttl
	return nil
}

func (a transcriptArchive) Load(_ context.Context, id string) ([]entity.Turn, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	turns, ok := a.m.transcripts[id]
	if !ok {
		return nil, repository.ErrArchiveNotFound
	}
	return turns, nil
}
