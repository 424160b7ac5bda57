package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/pkg/metrics"
)

// Frontier is the authoritative record of discovered links and assets of one
// session. Every method is a single atomic merge; no operation spans more
// than one mutation.
type Frontier struct {
	mu        sync.RWMutex
	links     map[string]*entity.DiscoveredLink
	linkOrder []string
	assets    map[string]entity.DiscoveredAsset
	assetKeys []string
	now       func() time.Time
}

func NewFrontier() *Frontier {
	return &Frontier{
		links:  make(map[string]*entity.DiscoveredLink),
		assets: make(map[string]entity.DiscoveredAsset),
		now:    time.Now,
	}
}

// RegisterSeed inserts or overwrites url as scanned.
func (f *Frontier) RegisterSeed(url, title, text, markup string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[url]
	if !ok {
		link = &entity.DiscoveredLink{URL: url}
		f.links[url] = link
		f.linkOrder = append(f.linkOrder, url)
	}
	link.Status = entity.LinkScanned
	link.Title = title
	link.Text = text
	link.Markup = markup
	link.Error = ""
	link.UpdatedAt = f.now()
	f.publishLocked()
}

// RegisterDiscoveredLinks inserts unseen URLs as pending and leaves known
// ones untouched. It returns how many were new.
func (f *Frontier) RegisterDiscoveredLinks(urls []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := f.links[url]; ok {
			continue
		}
		f.links[url] = &entity.DiscoveredLink{
			URL:       url,
			Status:    entity.LinkPending,
			Title:     entity.PendingTitle,
			UpdatedAt: f.now(),
		}
		f.linkOrder = append(f.linkOrder, url)
		added++
	}
	if added > 0 {
		f.publishLocked()
	}
	return added
}

// RegisterAssets inserts assets whose URL is not yet known. The first source
// page recorded for a URL is kept.
func (f *Frontier) RegisterAssets(assets []entity.DiscoveredAsset) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, asset := range assets {
		if asset.URL == "" {
			continue
		}
		if _, ok := f.assets[asset.URL]; ok {
			continue
		}
		f.assets[asset.URL] = asset
		f.assetKeys = append(f.assetKeys, asset.URL)
		added++
	}
	if added > 0 {
		f.publishLocked()
	}
	return added
}

// SetStatus moves url to status and merges patch into the record. It returns
// false without changing anything when the URL is unknown or the transition
// is not allowed by the link state machine.
func (f *Frontier) SetStatus(url string, status entity.LinkStatus, patch entity.LinkPatch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[url]
	if !ok {
		slog.Debug("Status update for unknown link ignored", "url", url, "status", status)
		return false
	}
	if !link.Status.CanTransition(status) {
		slog.Debug("Link status transition refused", "url", url, "from", link.Status, "to", status)
		return false
	}

	link.Status = status
	if patch.Title != "" {
		link.Title = patch.Title
	}
	if patch.Text != "" {
		link.Text = patch.Text
	}
	if patch.Markup != "" {
		link.Markup = patch.Markup
	}
	switch status {
	case entity.LinkFailed:
		link.Error = patch.Error
	case entity.LinkScanned:
		link.Error = ""
	}
	link.UpdatedAt = f.now()
	f.publishLocked()
	return true
}

// Link returns a copy of the record for url.
func (f *Frontier) Link(url string) (entity.DiscoveredLink, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	link, ok := f.links[url]
	if !ok {
		return entity.DiscoveredLink{}, false
	}
	return *link, true
}

// PendingURLs lists pending links in insertion order.
func (f *Frontier) PendingURLs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []string
	for _, url := range f.linkOrder {
		if f.links[url].Status == entity.LinkPending {
			out = append(out, url)
		}
	}
	return out
}

// Snapshot copies the frontier in insertion order.
func (f *Frontier) Snapshot() entity.FrontierSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap := entity.FrontierSnapshot{
		Links:  make([]entity.DiscoveredLink, 0, len(f.linkOrder)),
		Assets: make([]entity.DiscoveredAsset, 0, len(f.assetKeys)),
	}
	for _, url := range f.linkOrder {
		snap.Links = append(snap.Links, *f.links[url])
	}
	for _, url := range f.assetKeys {
		snap.Assets = append(snap.Assets, f.assets[url])
	}
	return snap
}

func (f *Frontier) publishLocked() {
	counts := make(map[entity.LinkStatus]int, len(entity.AllLinkStatuses))
	for _, link := range f.links {
		counts[link.Status]++
	}
	for _, status := range entity.AllLinkStatuses {
		metrics.FrontierLinks.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	metrics.FrontierAssets.Set(float64(len(f.assets)))
}
