package entity

import "time"

// PendingTitle is the placeholder title of a link that has not been scanned.
const PendingTitle = "Not scanned yet"

// DiscoveredLink is a URL observed during the crawl and what has been done with it.
type DiscoveredLink struct {
	URL       string     `json:"url"`
	Status    LinkStatus `json:"status"`
	Title     string     `json:"title"`
	Text      string     `json:"text,omitempty"`
	Markup    string     `json:"-"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasMarkup reports whether the link was scanned and its raw markup kept.
func (l DiscoveredLink) HasMarkup() bool {
	return l.Status == LinkScanned && l.Markup != ""
}

// LinkPatch is a partial update merged into a DiscoveredLink. Empty fields
// leave the current value untouched.
type LinkPatch struct {
	Title  string
	Text   string
	Markup string
	Error  string
}
