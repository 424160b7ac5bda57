package entity

import "time"

// FrontierSnapshot is an insertion-ordered copy of the frontier.
type FrontierSnapshot struct {
	Links  []DiscoveredLink  `json:"links"`
	Assets []DiscoveredAsset `json:"assets"`
}

// Counts tallies links per status.
func (s FrontierSnapshot) Counts() map[LinkStatus]int {
	counts := make(map[LinkStatus]int, len(AllLinkStatuses))
	for _, status := range AllLinkStatuses {
		counts[status] = 0
	}
	for _, l := range s.Links {
		counts[l.Status]++
	}
	return counts
}

// Link returns the link stored for url, if any.
func (s FrontierSnapshot) Link(url string) (DiscoveredLink, bool) {
	for _, l := range s.Links {
		if l.URL == url {
			return l, true
		}
	}
	return DiscoveredLink{}, false
}

// BulkScanStatus reports the progress of the current or last bulk scan.
type BulkScanStatus struct {
	Running   bool `json:"running"`
	Stopped   bool `json:"stopped"`
	Total     int  `json:"total"`
	Processed int  `json:"processed"`
	Scanned   int  `json:"scanned"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
}

// SessionSnapshot is the full state of one crawl session.
type SessionSnapshot struct {
	ID         string           `json:"id"`
	SeedURL    string           `json:"seed_url"`
	StartedAt  time.Time        `json:"started_at"`
	Frontier   FrontierSnapshot `json:"frontier"`
	Transcript []Turn           `json:"transcript"`
	BulkScan   BulkScanStatus   `json:"bulk_scan"`
}
