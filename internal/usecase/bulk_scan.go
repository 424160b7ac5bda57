package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/pkg/metrics"
)

// BulkScanController drains the pending links of a frontier one URL at a time.
type BulkScanController struct {
	pages *PageScanner
}

func NewBulkScanController(pages *PageScanner) *BulkScanController {
	return &BulkScanController{pages: pages}
}

// BulkScanHandle controls one running bulk scan.
type BulkScanHandle struct {
	mu      sync.Mutex
	status  entity.BulkScanStatus
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Start snapshots the pending URLs of frontier and scans them sequentially in
// the background. Links discovered during the run stay pending for a later
// run. Cancelling ctx has the same effect as Stop.
func (c *BulkScanController) Start(ctx context.Context, frontier *Frontier) *BulkScanHandle {
	work := frontier.PendingURLs()
	runCtx, cancel := context.WithCancel(ctx)
	h := &BulkScanHandle{
		status: entity.BulkScanStatus{Running: true, Total: len(work)},
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	slog.Info("Bulk scan started", "pending", len(work))
	metrics.BulkScanRunning.Inc()
	go c.run(h, frontier, work)
	return h
}

func (c *BulkScanController) run(h *BulkScanHandle, frontier *Frontier, work []string) {
	defer close(h.done)
	defer h.cancel()
	defer metrics.BulkScanRunning.Dec()

	// A scan that has begun runs to completion even if the run is stopped.
	scanCtx := context.WithoutCancel(h.ctx)
	for _, target := range work {
		claimed, stopped := h.claim(frontier, target)
		if stopped {
			break
		}
		if !claimed {
			h.record(nil, true)
			continue
		}
		_, err := c.pages.ScanInto(scanCtx, frontier, target, TriggerBulk)
		h.record(err, false)
	}

	status := h.finish()
	outcome := "completed"
	if status.Stopped {
		outcome = "stopped"
	}
	metrics.BulkScanRunsTotal.WithLabelValues(outcome).Inc()
	slog.Info("Bulk scan finished", "outcome", outcome, "processed", status.Processed,
		"scanned", status.Scanned, "failed", status.Failed, "skipped", status.Skipped)
}

// claim moves target from pending to scanning unless the run has been
// stopped. It shares the lock with Stop, so once Stop has returned no further
// link is claimed. A target that is no longer pending is not claimed.
func (h *BulkScanHandle) claim(frontier *Frontier, target string) (claimed, stopped bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.ctx.Err() != nil {
		h.status.Stopped = true
		return false, true
	}
	if link, ok := frontier.Link(target); !ok || link.Status != entity.LinkPending {
		return false, false
	}
	return frontier.SetStatus(target, entity.LinkScanning, entity.LinkPatch{}), false
}

func (h *BulkScanHandle) record(err error, skipped bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Processed++
	switch {
	case skipped:
		h.status.Skipped++
	case err != nil:
		h.status.Failed++
	default:
		h.status.Scanned++
	}
}

func (h *BulkScanHandle) finish() entity.BulkScanStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Running = false
	return h.status
}

// Stop asks the run to end at the next iteration boundary. A scan already in
// flight finishes and its result is applied.
func (h *BulkScanHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed when the run has ended.
func (h *BulkScanHandle) Done() <-chan struct{} {
	return h.done
}

// Status returns a copy of the current progress.
func (h *BulkScanHandle) Status() entity.BulkScanStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}
