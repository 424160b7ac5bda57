package entity

// LinkStatus is the scan state of a discovered link.
type LinkStatus string

const (
	LinkPending  LinkStatus = "pending"
	LinkScanning LinkStatus = "scanning"
	LinkScanned  LinkStatus = "scanned"
	LinkFailed   LinkStatus = "failed"
)

// AllLinkStatuses lists every status in state machine order.
var AllLinkStatuses = []LinkStatus{LinkPending, LinkScanning, LinkScanned, LinkFailed}

// transitions holds the allowed forward moves. A failed link may be retried,
// a scanned link never goes back to pending.
var transitions = map[LinkStatus]map[LinkStatus]bool{
	LinkPending:  {LinkScanning: true},
	LinkScanning: {LinkScanning: true, LinkScanned: true, LinkFailed: true},
	LinkScanned:  {LinkScanned: true},
	LinkFailed:   {LinkScanning: true},
}

// CanTransition reports whether a link in status s may move to next.
func (s LinkStatus) CanTransition(next LinkStatus) bool {
	return transitions[s][next]
}

// Terminal reports whether the status ends a scan attempt.
func (s LinkStatus) Terminal() bool {
	return s == LinkScanned || s == LinkFailed
}

func (s LinkStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}
