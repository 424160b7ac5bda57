package entity

import "time"

// ScanResult is what the page fetcher reports for one URL.
type ScanResult struct {
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	Text          string            `json:"text"`
	Markup        string            `json:"-"`
	OutboundLinks []string          `json:"outbound_links"`
	Assets        []DiscoveredAsset `json:"assets"`
	StatusCode    int               `json:"status_code,omitempty"`
	ResponseTime  time.Duration     `json:"response_time,omitempty"`
}
