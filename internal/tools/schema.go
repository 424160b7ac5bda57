package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/user/crawl-pilot/internal/entity"
)

// Definition describes one tool to the planner.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

var definitions = []Definition{
	{
		Name:        entity.ToolScanPages,
		Description: "Scan one or more discovered pages to read their content and discover further links and assets.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"urls": {
					"type": "array",
					"description": "Absolute URLs of the pages to scan.",
					"items": {"type": "string", "minLength": 1},
					"minItems": 1
				}
			},
			"required": ["urls"]
		}`),
	},
	{
		Name:        entity.ToolExtractDataFromPage,
		Description: "Extract structured data from a page that has already been scanned.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "minLength": 1},
				"dataType": {
					"type": "string",
					"description": "Kind of data to extract: jsonld, opengraph, twitter, meta, headings, tables, contacts, links or images."
				}
			},
			"required": ["url", "dataType"]
		}`),
	},
	{
		Name:        entity.ToolPerformSEOAnalysis,
		Description: "Run an on-page SEO audit of a page that has already been scanned.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "minLength": 1}
			},
			"required": ["url"]
		}`),
	},
	{
		Name:        entity.ToolAnalyzeImageFromURL,
		Description: "Fetch an image and look at it to answer a question about it.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "minLength": 1},
				"prompt": {"type": "string", "description": "What to look for in the image."}
			},
			"required": ["url", "prompt"]
		}`),
	},
	{
		Name:        entity.ToolScanAllPendingPages,
		Description: "Start scanning every page that is still pending, one at a time, in the background.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
}

// Definitions returns the fixed tool set.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

var (
	compileOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	compileErr  error
)

func compiled() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		out := make(map[string]*jsonschema.Schema, len(definitions))
		for _, def := range definitions {
			resource := def.Name + ".json"
			if err := compiler.AddResource(resource, strings.NewReader(string(def.Parameters))); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", def.Name, err)
				return
			}
			schema, err := compiler.Compile(resource)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", def.Name, err)
				return
			}
			out[def.Name] = schema
		}
		schemas = out
	})
	return schemas, compileErr
}
