package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/pkg/metrics"
)

// Scan triggers, used as the metrics label.
const (
	TriggerSeed = "seed"
	TriggerTool = "tool"
	TriggerBulk = "bulk"
)

// PageScanner runs one Scan Executor call for a URL and reconciles the
// outcome into a frontier.
type PageScanner struct {
	scanner repository.ScannerRepository
}

func NewPageScanner(scanner repository.ScannerRepository) *PageScanner {
	return &PageScanner{scanner: scanner}
}

// ScanInto marks url scanning, awaits the scan and applies the result: on
// success the link becomes scanned and its outbound links and assets are
// registered, on failure it becomes failed. The scan error is returned for
// reporting only; it has already been recorded in the frontier.
func (s *PageScanner) ScanInto(ctx context.Context, frontier *Frontier, target, trigger string) (*entity.ScanResult, error) {
	frontier.RegisterDiscoveredLinks([]string{target})
	frontier.SetStatus(target, entity.LinkScanning, entity.LinkPatch{})

	result, err := s.Fetch(ctx, target, trigger)
	if err != nil {
		frontier.SetStatus(target, entity.LinkFailed, entity.LinkPatch{Error: err.Error()})
		return nil, err
	}

	frontier.SetStatus(target, entity.LinkScanned, entity.LinkPatch{
		Title:  result.Title,
		Text:   result.Text,
		Markup: result.Markup,
	})
	frontier.RegisterDiscoveredLinks(result.OutboundLinks)
	frontier.RegisterAssets(result.Assets)
	return result, nil
}

// Fetch runs the Scan Executor without touching any frontier.
func (s *PageScanner) Fetch(ctx context.Context, target, trigger string) (*entity.ScanResult, error) {
	startTime := time.Now()
	result, err := s.scanner.Scan(ctx, target)
	duration := time.Since(startTime)
	metrics.ScanDuration.WithLabelValues(trigger).Observe(duration.Seconds())

	if err != nil {
		metrics.ScansTotal.WithLabelValues(trigger, "failure", errorType(err)).Inc()
		slog.Warn("Page scan failed", "url", target, "trigger", trigger, "error", err)
		return nil, err
	}
	if result == nil {
		err := repository.ErrExtractionFailed
		metrics.ScansTotal.WithLabelValues(trigger, "failure", errorType(err)).Inc()
		return nil, err
	}

	metrics.ScansTotal.WithLabelValues(trigger, "success", "").Inc()
	slog.Info("Page scanned", "url", target, "trigger", trigger,
		"links", len(result.OutboundLinks), "assets", len(result.Assets), "duration_ms", duration.Milliseconds())
	return result, nil
}

func errorType(err error) string {
	var urlErr *url.Error
	switch {
	case errors.Is(err, repository.ErrScanTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed), errors.As(err, &urlErr):
		return "navigation"
	case errors.Is(err, repository.ErrExtractionFailed):
		return "extraction"
	case errors.Is(err, repository.ErrContentRestricted):
		return "restricted"
	default:
		return "unknown"
	}
}
