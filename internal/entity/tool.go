package entity

// Tool names as the planner knows them.
const (
	ToolScanPages           = "scanPages"
	ToolExtractDataFromPage = "extractDataFromPage"
	ToolPerformSEOAnalysis  = "performSeoAnalysis"
	ToolAnalyzeImageFromURL = "analyzeImageFromUrl"
	ToolScanAllPendingPages = "scanAllPendingPages"
)

// Tool is one planner action with typed arguments. The set of
// implementations is closed; dispatchers switch over it exhaustively.
type Tool interface {
	ToolName() string
	isTool()
}

type ScanPages struct {
	URLs []string `json:"urls"`
}

type ExtractDataFromPage struct {
	URL      string `json:"url"`
	DataType string `json:"dataType"`
}

type PerformSEOAnalysis struct {
	URL string `json:"url"`
}

type AnalyzeImageFromURL struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

type ScanAllPendingPages struct{}

// UnknownTool stands in for a call whose name is not recognised or whose
// arguments failed validation.
type UnknownTool struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (ScanPages) ToolName() string           { return ToolScanPages }
func (ExtractDataFromPage) ToolName() string { return ToolExtractDataFromPage }
func (PerformSEOAnalysis) ToolName() string  { return ToolPerformSEOAnalysis }
func (AnalyzeImageFromURL) ToolName() string { return ToolAnalyzeImageFromURL }
func (ScanAllPendingPages) ToolName() string { return ToolScanAllPendingPages }
func (t UnknownTool) ToolName() string       { return t.Name }

func (ScanPages) isTool()           {}
func (ExtractDataFromPage) isTool() {}
func (PerformSEOAnalysis) isTool()  {}
func (AnalyzeImageFromURL) isTool() {}
func (ScanAllPendingPages) isTool() {}
func (UnknownTool) isTool()         {}
