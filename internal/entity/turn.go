package entity

import (
	"encoding/json"
	"time"
)

// EmptyResponseNotice is shown when the planner finished a reply with neither
// text nor a tool call.
const EmptyResponseNotice = "The planner returned an empty response."

// DeclineNotice is appended when the user rejects a proposed tool call.
const DeclineNotice = "Tool call declined. Let me know what you would like to do next."

type TurnKind string

const (
	TurnText     TurnKind = "text"
	TurnToolCall TurnKind = "tool_call"
)

type Sender string

const (
	SenderUser    Sender = "user"
	SenderPlanner Sender = "planner"
	SenderSystem  Sender = "system"
)

// Turn is one entry of the append-only transcript.
type Turn struct {
	ID        string        `json:"id"`
	Kind      TurnKind      `json:"kind"`
	Sender    Sender        `json:"sender"`
	Text      string        `json:"text,omitempty"`
	Proposal  *ToolProposal `json:"proposal,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ToolProposal is a planner tool call awaiting approval.
type ToolProposal struct {
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Tool      Tool            `json:"-"`
}
