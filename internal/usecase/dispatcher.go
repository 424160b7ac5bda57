package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/pkg/metrics"
	"github.com/user/crawl-pilot/pkg/utils"
)

const excerptRunes = 500

// BulkScanStarter launches a bulk scan without waiting for it.
type BulkScanStarter interface {
	StartBulkScan(ctx context.Context) (entity.BulkScanStatus, bool, error)
}

// Dispatcher executes approved tool calls against one session's frontier.
type Dispatcher struct {
	frontier    *Frontier
	pages       *PageScanner
	extractor   repository.StructuredDataExtractor
	seo         repository.SEOAnalyzer
	images      repository.ImageFetcher
	bulk        BulkScanStarter
	fanoutLimit int
}

// DispatcherDeps groups the collaborators of a Dispatcher.
type DispatcherDeps struct {
	Pages       *PageScanner
	Extractor   repository.StructuredDataExtractor
	SEO         repository.SEOAnalyzer
	Images      repository.ImageFetcher
	FanoutLimit int
}

func NewDispatcher(frontier *Frontier, deps DispatcherDeps, bulk BulkScanStarter) *Dispatcher {
	return &Dispatcher{
		frontier:    frontier,
		pages:       deps.Pages,
		extractor:   deps.Extractor,
		seo:         deps.SEO,
		images:      deps.Images,
		bulk:        bulk,
		fanoutLimit: deps.FanoutLimit,
	}
}

// Dispatch runs tool and returns the payload for the planner. Expected
// failures are reported inside the payload; the returned error is reserved
// for conditions that should abort the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, tool entity.Tool) (entity.ToolResult, error) {
	var (
		result entity.ToolResult
		err    error
	)
	switch t := tool.(type) {
	case entity.ScanPages:
		result = d.scanPages(ctx, t)
	case entity.ExtractDataFromPage:
		result = d.extractData(ctx, t)
	case entity.PerformSEOAnalysis:
		result = d.seoAnalysis(ctx, t)
	case entity.AnalyzeImageFromURL:
		result = d.analyzeImage(ctx, t)
	case entity.ScanAllPendingPages:
		result, err = d.scanAllPending(ctx)
	case entity.UnknownTool:
		slog.Warn("Unrecognized tool call skipped", "tool", t.Name, "reason", t.Reason)
		result = entity.Failure(fmt.Sprintf("Unrecognized or malformed tool call %q: %s", t.Name, t.Reason))
	default:
		result = entity.Failure(fmt.Sprintf("Unsupported tool %T", tool))
	}
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(tool.ToolName(), "error").Inc()
		return entity.ToolResult{}, err
	}

	outcome := "succeeded"
	if !result.Success {
		outcome = "failed"
	}
	metrics.ToolCallsTotal.WithLabelValues(tool.ToolName(), outcome).Inc()
	return result, nil
}

func (d *Dispatcher) scanPages(ctx context.Context, t entity.ScanPages) entity.ToolResult {
	outcomes := make([]entity.PageScanOutcome, len(t.URLs))

	g, gctx := errgroup.WithContext(ctx)
	if d.fanoutLimit > 0 {
		g.SetLimit(d.fanoutLimit)
	}
	for i, target := range t.URLs {
		g.Go(func() error {
			outcome := entity.PageScanOutcome{URL: target}
			if !utils.IsAbsoluteHTTP(target) {
				outcome.Error = "not an absolute http(s) URL"
				outcomes[i] = outcome
				return nil
			}
			result, err := d.pages.ScanInto(gctx, d.frontier, target, TriggerTool)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Success = true
				outcome.Title = result.Title
				outcome.Excerpt = utils.Excerpt(result.Text, excerptRunes)
				outcome.DiscoveredLinks = len(result.OutboundLinks)
			}
			outcomes[i] = outcome
			// Per-URL failures never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	return entity.ToolResult{
		Success: succeeded > 0,
		Message: fmt.Sprintf("Scanned %d of %d pages successfully.", succeeded, len(outcomes)),
		Pages:   outcomes,
	}
}

// scannedMarkup enforces the scanned-with-markup precondition shared by the
// analyzer tools.
func (d *Dispatcher) scannedMarkup(target string) (string, *entity.ToolResult) {
	link, ok := d.frontier.Link(target)
	if !ok || !link.HasMarkup() {
		failure := entity.Failure(fmt.Sprintf("Page %s has not been scanned yet. Scan it with scanPages first.", target))
		failure.URL = target
		return "", &failure
	}
	return link.Markup, nil
}

func (d *Dispatcher) extractData(ctx context.Context, t entity.ExtractDataFromPage) entity.ToolResult {
	markup, failure := d.scannedMarkup(t.URL)
	if failure != nil {
		failure.DataType = t.DataType
		return *failure
	}
	data, err := d.extractor.Extract(ctx, t.URL, markup, t.DataType)
	if err != nil {
		slog.Warn("Structured data extraction failed", "url", t.URL, "data_type", t.DataType, "error", err)
		failure := entity.Failure(fmt.Sprintf("Extraction failed: %v", err))
		failure.URL = t.URL
		failure.DataType = t.DataType
		return failure
	}
	return entity.ToolResult{Success: true, URL: t.URL, DataType: t.DataType, Data: data}
}

func (d *Dispatcher) seoAnalysis(ctx context.Context, t entity.PerformSEOAnalysis) entity.ToolResult {
	markup, failure := d.scannedMarkup(t.URL)
	if failure != nil {
		return *failure
	}
	report, err := d.seo.Analyze(ctx, t.URL, markup)
	if err != nil {
		slog.Warn("SEO analysis failed", "url", t.URL, "error", err)
		failure := entity.Failure(fmt.Sprintf("SEO analysis failed: %v", err))
		failure.URL = t.URL
		return failure
	}
	return entity.ToolResult{Success: true, URL: t.URL, Data: report}
}

func (d *Dispatcher) analyzeImage(ctx context.Context, t entity.AnalyzeImageFromURL) entity.ToolResult {
	image, err := d.images.FetchEncode(ctx, t.URL)
	if err != nil {
		slog.Warn("Image fetch failed", "url", t.URL, "error", err)
		failure := entity.Failure(fmt.Sprintf("Could not load image: %v", err))
		failure.URL = t.URL
		return failure
	}
	return entity.ToolResult{Success: true, URL: t.URL, Prompt: t.Prompt, InlineData: image}
}

func (d *Dispatcher) scanAllPending(ctx context.Context) (entity.ToolResult, error) {
	status, started, err := d.bulk.StartBulkScan(ctx)
	if err != nil {
		return entity.ToolResult{}, fmt.Errorf("failed to start bulk scan: %w", err)
	}
	msg := fmt.Sprintf("Started scanning %d pending pages in the background.", status.Total)
	if !started {
		msg = fmt.Sprintf("A bulk scan is already running (%d of %d pages processed).", status.Processed, status.Total)
	}
	return entity.ToolResult{Success: true, Message: msg, Pending: status.Total - status.Processed}, nil
}
