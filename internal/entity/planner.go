package entity

import "encoding/json"

// PlannerMessage is sent to the planner: either user text or a tool result.
type PlannerMessage struct {
	Text       string
	ToolResult *ToolResultMessage
}

// ToolResultMessage answers one proposed call.
type ToolResultMessage struct {
	CallID string
	Name   string
	Result ToolResult
}

// ReplyChunk is one streamed fragment of a planner reply.
type ReplyChunk struct {
	Text      string
	ToolCalls []ProposedCall
}

// ProposedCall is a raw tool call as emitted by the planner.
type ProposedCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}
