package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/crawl-pilot/internal/entity"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Parse validates args against the schema of the named tool and decodes them
// into its typed variant.
func Parse(name string, args json.RawMessage) (entity.Tool, error) {
	schemas, err := compiled()
	if err != nil {
		return nil, err
	}
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	args = bytes.TrimSpace(args)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrInvalidArguments, name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}

	switch name {
	case entity.ToolScanPages:
		return decode[entity.ScanPages](name, args)
	case entity.ToolExtractDataFromPage:
		return decode[entity.ExtractDataFromPage](name, args)
	case entity.ToolPerformSEOAnalysis:
		return decode[entity.PerformSEOAnalysis](name, args)
	case entity.ToolAnalyzeImageFromURL:
		return decode[entity.AnalyzeImageFromURL](name, args)
	case entity.ToolScanAllPendingPages:
		return entity.ScanAllPendingPages{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// ParseOrUnknown is Parse for proposals: failures become an UnknownTool
// carrying the reason so the call can still be answered.
func ParseOrUnknown(name string, args json.RawMessage) entity.Tool {
	tool, err := Parse(name, args)
	if err != nil {
		return entity.UnknownTool{Name: name, Reason: err.Error()}
	}
	return tool
}

func decode[T entity.Tool](name string, args json.RawMessage) (entity.Tool, error) {
	var v T
	if err := json.Unmarshal(args, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	return v, nil
}
