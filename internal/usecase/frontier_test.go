package usecase

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/user/crawl-pilot/internal/entity"
)

const seed = "https://example.com/"

func seededFrontier(links ...string) *Frontier {
	f := NewFrontier()
	f.RegisterSeed(seed, "Home", "Welcome home", "<html><title>Home</title></html>")
	f.RegisterDiscoveredLinks(links)
	return f
}

func TestFrontierRegisterDiscoveredLinks(t *testing.T) {
	t.Parallel()

	f := seededFrontier()
	added := f.RegisterDiscoveredLinks([]string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/a",
		seed,
		"",
	})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	home, _ := f.Link(seed)
	if home.Status != entity.LinkScanned || home.Title != "Home" {
		t.Errorf("seed was modified: %+v", home)
	}
	a, ok := f.Link("https://example.com/a")
	if !ok {
		t.Fatal("link a not registered")
	}
	if a.Status != entity.LinkPending || a.Title != entity.PendingTitle {
		t.Errorf("link a = %+v, want pending placeholder", a)
	}

	if again := f.RegisterDiscoveredLinks([]string{"https://example.com/a"}); again != 0 {
		t.Errorf("re-registering a known link added %d", again)
	}
}

func TestFrontierSetStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup []entity.LinkStatus
		to    entity.LinkStatus
		want  bool
		final entity.LinkStatus
	}{
		{name: "pending to scanning", to: entity.LinkScanning, want: true, final: entity.LinkScanning},
		{name: "pending straight to scanned", to: entity.LinkScanned, want: false, final: entity.LinkPending},
		{name: "pending straight to failed", to: entity.LinkFailed, want: false, final: entity.LinkPending},
		{name: "scanning to scanned", setup: []entity.LinkStatus{entity.LinkScanning}, to: entity.LinkScanned, want: true, final: entity.LinkScanned},
		{name: "scanning again is a no-op", setup: []entity.LinkStatus{entity.LinkScanning}, to: entity.LinkScanning, want: true, final: entity.LinkScanning},
		{name: "failed can be retried", setup: []entity.LinkStatus{entity.LinkScanning, entity.LinkFailed}, to: entity.LinkScanning, want: true, final: entity.LinkScanning},
		{name: "scanned never returns to pending", setup: []entity.LinkStatus{entity.LinkScanning, entity.LinkScanned}, to: entity.LinkPending, want: false, final: entity.LinkScanned},
		{name: "scanned does not become failed", setup: []entity.LinkStatus{entity.LinkScanning, entity.LinkScanned}, to: entity.LinkFailed, want: false, final: entity.LinkScanned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			const target = "https://example.com/page"
			f := seededFrontier(target)
			for _, s := range tt.setup {
				if !f.SetStatus(target, s, entity.LinkPatch{}) {
					t.Fatalf("setup transition to %s refused", s)
				}
			}
			if got := f.SetStatus(target, tt.to, entity.LinkPatch{}); got != tt.want {
				t.Errorf("SetStatus(%s) = %v, want %v", tt.to, got, tt.want)
			}
			link, _ := f.Link(target)
			if link.Status != tt.final {
				t.Errorf("status = %s, want %s", link.Status, tt.final)
			}
		})
	}
}

func TestFrontierSetStatusUnknownURL(t *testing.T) {
	t.Parallel()

	f := seededFrontier()
	if f.SetStatus("https://example.com/ghost", entity.LinkScanning, entity.LinkPatch{}) {
		t.Fatal("SetStatus accepted an unknown URL")
	}
	if _, ok := f.Link("https://example.com/ghost"); ok {
		t.Fatal("unknown URL was inserted")
	}
}

func TestFrontierErrorFollowsStatus(t *testing.T) {
	t.Parallel()

	const target = "https://example.com/flaky"
	f := seededFrontier(target)
	f.SetStatus(target, entity.LinkScanning, entity.LinkPatch{})
	f.SetStatus(target, entity.LinkFailed, entity.LinkPatch{Error: "timeout"})

	link, _ := f.Link(target)
	if link.Error != "timeout" {
		t.Fatalf("error = %q, want timeout", link.Error)
	}

	f.SetStatus(target, entity.LinkScanning, entity.LinkPatch{})
	f.SetStatus(target, entity.LinkScanned, entity.LinkPatch{Title: "Flaky", Markup: "<html></html>"})

	link, _ = f.Link(target)
	if link.Error != "" || link.Title != "Flaky" || !link.HasMarkup() {
		t.Fatalf("after retry link = %+v", link)
	}
}

func TestFrontierAssetsFirstWriteWins(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	added := f.RegisterAssets([]entity.DiscoveredAsset{
		{URL: "https://example.com/logo.png", Kind: entity.AssetImage, SourcePage: "https://example.com/"},
		{URL: "https://example.com/doc.pdf", Kind: entity.AssetDocument, SourcePage: "https://example.com/"},
	})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	f.RegisterAssets([]entity.DiscoveredAsset{
		{URL: "https://example.com/logo.png", Kind: entity.AssetImage, SourcePage: "https://example.com/about"},
	})

	snap := f.Snapshot()
	if len(snap.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(snap.Assets))
	}
	if snap.Assets[0].SourcePage != "https://example.com/" {
		t.Errorf("source page = %q, first registration should win", snap.Assets[0].SourcePage)
	}
}

func TestFrontierPendingURLsKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	f := seededFrontier("https://example.com/c", "https://example.com/a", "https://example.com/b")
	f.SetStatus("https://example.com/a", entity.LinkScanning, entity.LinkPatch{})

	got := f.PendingURLs()
	want := []string{"https://example.com/c", "https://example.com/b"}
	if !slices.Equal(got, want) {
		t.Fatalf("PendingURLs() = %v, want %v", got, want)
	}
}

func TestFrontierConcurrentMerges(t *testing.T) {
	t.Parallel()

	f := seededFrontier()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				url := fmt.Sprintf("https://example.com/p%d", i)
				f.RegisterDiscoveredLinks([]string{url})
				if w%2 == 0 {
					f.SetStatus(url, entity.LinkScanning, entity.LinkPatch{})
				}
				_ = f.Snapshot()
			}
		}()
	}
	wg.Wait()

	counts := f.Snapshot().Counts()
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 51 {
		t.Fatalf("links = %d, want 51", total)
	}
	if counts[entity.LinkScanned] != 1 {
		t.Errorf("scanned = %d, want only the seed", counts[entity.LinkScanned])
	}
}
