package chromedp_scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36`

type ChromedpScanner struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabs        chan struct{}
	timeout     time.Duration
}

// NewChromedpScanner starts one headless browser shared by all scans. At
// most maxConcurrency tabs are open at a time.
func NewChromedpScanner(maxConcurrency int, pageLoadTimeout time.Duration) (*ChromedpScanner, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpScanner{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		tabs:        make(chan struct{}, maxConcurrency),
		timeout:     pageLoadTimeout,
	}, nil
}

var _ repository.ScannerRepository = (*ChromedpScanner)(nil)

// Scan loads url in a fresh tab and extracts the rendered page.
func (c *ChromedpScanner) Scan(ctx context.Context, url string) (*entity.ScanResult, error) {
	select {
	case c.tabs <- struct{}{}:
		defer func() { <-c.tabs }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tabCtx, cancelTab := chromedp.NewContext(c.allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...), "url", url)
	}))
	defer cancelTab()

	taskCtx, cancel := context.WithTimeout(tabCtx, c.timeout)
	defer cancel()
	// The tab hangs off the shared browser, so follow the caller's cancellation by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu         sync.Mutex
		statusCode int
	)
	chromedp.ListenTarget(taskCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			if statusCode == 0 {
				statusCode = int(e.Response.Status)
			}
			mu.Unlock()
		}
	})

	var html, finalURL string
	startTime := time.Now()
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	responseTime := time.Since(startTime)

	if err != nil {
		slog.Error("Failed to scan URL", "url", url, "error", err)
		return nil, classifyRunError(ctx, taskCtx, err)
	}

	mu.Lock()
	status := statusCode
	mu.Unlock()
	if err := checkStatus(status); err != nil {
		slog.Warn("Page returned an error status", "url", url, "status", status)
		return nil, err
	}
	if html == "" {
		return nil, fmt.Errorf("%w: empty document", repository.ErrExtractionFailed)
	}

	base := url
	if finalURL != "" {
		base = finalURL
	}
	result, err := ExtractPage(base, html)
	if err != nil {
		return nil, err
	}
	result.URL = url
	for i := range result.Assets {
		result.Assets[i].SourcePage = url
	}
	if status == 0 {
		status = http.StatusOK
	}
	result.StatusCode = status
	result.ResponseTime = responseTime

	slog.Debug("Successfully scanned URL", "url", url, "final_url", finalURL, "title", result.Title)
	return result, nil
}

// Close shuts the browser down.
func (c *ChromedpScanner) Close() {
	c.cancelAlloc()
}

func classifyRunError(parent, task context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(task.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", repository.ErrScanTimeout, err)
	default:
		return fmt.Errorf("%w: %w", repository.ErrNavigationFailed, err)
	}
}

func checkStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusProxyAuthRequired:
		return fmt.Errorf("%w: HTTP %d", repository.ErrContentRestricted, status)
	case status >= http.StatusBadRequest:
		return fmt.Errorf("%w: HTTP %d %s", repository.ErrNavigationFailed, status, http.StatusText(status))
	default:
		return nil
	}
}
