package entity

// ToolResult is the JSON payload returned to the planner for one tool call.
// Expected failures (unscanned page, bad image) set Success=false rather than
// surfacing as errors.
type ToolResult struct {
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Message    string            `json:"message,omitempty"`
	URL        string            `json:"url,omitempty"`
	DataType   string            `json:"dataType,omitempty"`
	Pages      []PageScanOutcome `json:"pages,omitempty"`
	Data       any               `json:"data,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
	InlineData *EncodedImage     `json:"inlineData,omitempty"`
	Pending    int               `json:"pending,omitempty"`
}

// PageScanOutcome reports one URL of a scanPages call.
type PageScanOutcome struct {
	URL             string `json:"url"`
	Success         bool   `json:"success"`
	Title           string `json:"title,omitempty"`
	Excerpt         string `json:"excerpt,omitempty"`
	DiscoveredLinks int    `json:"discoveredLinks,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Failure builds an unsuccessful result carrying msg.
func Failure(msg string) ToolResult {
	return ToolResult{Success: false, Error: msg}
}

// EncodedImage is base64 image data with its mime type.
type EncodedImage struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}
