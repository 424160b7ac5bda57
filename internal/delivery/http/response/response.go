package response

import "github.com/user/crawl-pilot/internal/entity"

// TurnsResponse carries the transcript turns produced by one exchange.
type TurnsResponse struct {
	Turns []entity.Turn `json:"turns"`
}

type TranscriptResponse struct {
	Turns []entity.Turn `json:"turns"`
}

// FrontierResponse is the frontier snapshot plus a per-status tally.
type FrontierResponse struct {
	Links  []entity.DiscoveredLink   `json:"links"`
	Assets []entity.DiscoveredAsset  `json:"assets"`
	Counts map[entity.LinkStatus]int `json:"counts"`
}

type BulkScanResponse struct {
	Started bool                  `json:"started"`
	Status  entity.BulkScanStatus `json:"status"`
}

type ArchiveResponse struct {
	ArchiveID string `json:"archive_id"`
}

// ErrorResponse may carry the turns appended before the failure, such as the
// system notice left when the planner could not be reached.
type ErrorResponse struct {
	Error string        `json:"error"`
	Turns []entity.Turn `json:"turns,omitempty"`
}
