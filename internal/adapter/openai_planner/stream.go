package openai_planner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/user/crawl-pilot/internal/entity"
)

// errStopped reports that the consumer stopped iterating.
var errStopped = errors.New("reply consumer stopped")

// assistantReply is what the stream said, kept for the history.
type assistantReply struct {
	text  string
	calls []toolCall
}

// decodeStream reads server-sent events from r. Text deltas are emitted as
// they arrive; tool call fragments are assembled by index and emitted once,
// in a single chunk, after the stream ends.
func decodeStream(r io.Reader, emit func(entity.ReplyChunk) bool) (assistantReply, error) {
	var (
		reply   assistantReply
		text    strings.Builder
		calls   = map[int]*toolCall{}
		indexes []int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return reply, fmt.Errorf("malformed stream event: %w", err)
		}
		if chunk.Error != nil {
			return reply, fmt.Errorf("planner stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			text.WriteString(delta.Content)
			if !emit(entity.ReplyChunk{Text: delta.Content}) {
				return reply, errStopped
			}
		}
		for _, d := range delta.ToolCalls {
			call, ok := calls[d.Index]
			if !ok {
				call = &toolCall{Type: "function"}
				calls[d.Index] = call
				indexes = append(indexes, d.Index)
			}
			if d.ID != "" {
				call.ID = d.ID
			}
			call.Function.Name += d.Function.Name
			call.Function.Arguments += d.Function.Arguments
		}
	}
	if err := scanner.Err(); err != nil {
		return reply, fmt.Errorf("read planner stream: %w", err)
	}

	reply.text = text.String()
	slices.Sort(indexes)
	for _, i := range indexes {
		reply.calls = append(reply.calls, *calls[i])
	}
	if len(reply.calls) > 0 {
		proposed := make([]entity.ProposedCall, len(reply.calls))
		for i, c := range reply.calls {
			proposed[i] = entity.ProposedCall{ID: c.ID, Name: c.Function.Name, Arguments: rawArguments(c.Function.Arguments)}
		}
		if !emit(entity.ReplyChunk{ToolCalls: proposed}) {
			return reply, errStopped
		}
	}
	return reply, nil
}

// rawArguments keeps argument text usable as json.RawMessage. Invalid JSON is
// carried as a JSON string so it still marshals and later fails validation.
func rawArguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}
