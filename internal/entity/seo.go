package entity

// SEOReport summarises on-page SEO signals of one document.
type SEOReport struct {
	Title              string            `json:"title"`
	TitleLength        int               `json:"titleLength"`
	MetaDescription    string            `json:"metaDescription"`
	MetaDescriptionLen int               `json:"metaDescriptionLength"`
	Canonical          string            `json:"canonical,omitempty"`
	Robots             string            `json:"robots,omitempty"`
	Lang               string            `json:"lang,omitempty"`
	HasViewport        bool              `json:"hasViewport"`
	H1Count            int               `json:"h1Count"`
	Headings           map[string]int    `json:"headings"`
	ImageCount         int               `json:"imageCount"`
	ImagesMissingAlt   int               `json:"imagesMissingAlt"`
	InternalLinks      int               `json:"internalLinks"`
	ExternalLinks      int               `json:"externalLinks"`
	OpenGraph          map[string]string `json:"openGraph,omitempty"`
	WordCount          int               `json:"wordCount"`
	Issues             []string          `json:"issues"`
	Score              int               `json:"score"`
}
