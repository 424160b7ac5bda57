package entity

// AssetKind classifies a non-page resource found on a scanned page.
type AssetKind string

const (
	AssetImage    AssetKind = "image"
	AssetDocument AssetKind = "document"
	AssetVideo    AssetKind = "video"
)

// DiscoveredAsset is immutable once registered; the first source page wins.
type DiscoveredAsset struct {
	URL        string    `json:"url"`
	Kind       AssetKind `json:"kind"`
	SourcePage string    `json:"source_page"`
	Alt        string    `json:"alt,omitempty"`
}
