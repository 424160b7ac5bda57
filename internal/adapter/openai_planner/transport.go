package openai_planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/internal/tools"
)

const systemPrompt = `You are a web crawl planner. A human explores a website with you one step at a time.
You receive descriptions of scanned pages and the results of tools you asked for.
Propose at most one tool call per reply and explain briefly why. Every call waits for the human to approve it.
Only run extractDataFromPage or performSeoAnalysis on pages that have already been scanned.
When a tool fails, read the error and suggest a different next step instead of repeating the same call.`

const declinedResult = `{"success":false,"error":"The user declined this tool call."}`

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Transport talks to an OpenAI compatible chat completions endpoint.
type Transport struct {
	cfg        Config
	httpClient *http.Client
	tools      []toolSpec
}

func NewTransport(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	defs := tools.Definitions()
	specs := make([]toolSpec, len(defs))
	for i, d := range defs {
		specs[i] = toolSpec{
			Type:     "function",
			Function: functionSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters},
		}
	}
	return &Transport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tools:      specs,
	}
}

var _ repository.PlannerTransport = (*Transport)(nil)

// CreateSession starts an empty conversation. No request is made until the
// first Send.
func (t *Transport) CreateSession(context.Context) (repository.PlannerSession, error) {
	if t.cfg.BaseURL == "" || t.cfg.Model == "" {
		return nil, errors.New("planner base URL and model must be configured")
	}
	return &session{
		transport: t,
		history:   []chatMessage{{Role: "system", Content: systemPrompt}},
	}, nil
}

// session keeps the full history client side and resends it on every turn.
type session struct {
	transport *Transport

	mu      sync.Mutex
	history []chatMessage
	// pending is the tool call of the last reply that has not been answered.
	pending *toolCall
}

func (s *session) Send(ctx context.Context, msg entity.PlannerMessage) iter.Seq2[entity.ReplyChunk, error] {
	return func(yield func(entity.ReplyChunk, error) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.appendInput(msg); err != nil {
			yield(entity.ReplyChunk{}, err)
			return
		}
		reply, err := s.transport.complete(ctx, s.history, func(c entity.ReplyChunk) bool {
			return yield(c, nil)
		})
		if errors.Is(err, errStopped) {
			return
		}
		if err != nil {
			yield(entity.ReplyChunk{}, err)
			return
		}
		s.appendReply(reply)
	}
}

func (s *session) appendInput(msg entity.PlannerMessage) error {
	if res := msg.ToolResult; res != nil {
		if s.pending == nil || s.pending.ID != res.CallID {
			// The call was already answered (declined) and the model moved on.
			s.declinePending()
			body, err := json.Marshal(withoutImage(res.Result))
			if err != nil {
				return fmt.Errorf("failed to encode tool result: %w", err)
			}
			s.history = append(s.history, chatMessage{
				Role:    "user",
				Content: fmt.Sprintf("Result of the earlier %s call: %s", res.Name, body),
			})
		} else {
			body, err := json.Marshal(withoutImage(res.Result))
			if err != nil {
				return fmt.Errorf("failed to encode tool result: %w", err)
			}
			s.history = append(s.history, chatMessage{Role: "tool", ToolCallID: res.CallID, Content: string(body)})
			s.pending = nil
		}
		if img := res.Result.InlineData; img != nil {
			prompt := res.Result.Prompt
			if prompt == "" {
				prompt = "Describe this image."
			}
			s.history = append(s.history, chatMessage{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: fmt.Sprintf("Image from %s. %s", res.Result.URL, prompt)},
					{Type: "image_url", ImageURL: &imageURL{URL: "data:" + img.MimeType + ";base64," + img.Data}},
				},
			})
		}
	}

	if msg.Text != "" {
		s.declinePending()
		s.history = append(s.history, chatMessage{Role: "user", Content: msg.Text})
	}
	return nil
}

// declinePending answers an open tool call so the history stays valid.
func (s *session) declinePending() {
	if s.pending == nil {
		return
	}
	s.history = append(s.history, chatMessage{Role: "tool", ToolCallID: s.pending.ID, Content: declinedResult})
	s.pending = nil
}

// appendReply records the assistant turn. Only the first tool call is kept
// because only that one is ever proposed.
func (s *session) appendReply(reply assistantReply) {
	msg := chatMessage{Role: "assistant"}
	if reply.text != "" {
		msg.Content = reply.text
	}
	if len(reply.calls) > 0 {
		first := reply.calls[0]
		msg.ToolCalls = []toolCall{first}
		s.pending = &first
	}
	if msg.Content == nil && msg.ToolCalls == nil {
		msg.Content = ""
	}
	s.history = append(s.history, msg)
}

func (t *Transport) complete(ctx context.Context, history []chatMessage, emit func(entity.ReplyChunk) bool) (assistantReply, error) {
	body, err := json.Marshal(chatRequest{
		Model:       t.cfg.Model,
		Messages:    history,
		Tools:       t.tools,
		ToolChoice:  "auto",
		Temperature: t.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return assistantReply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return assistantReply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	startTime := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return assistantReply{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return assistantReply{}, apiStatusError(resp)
	}

	reply, err := decodeStream(resp.Body, emit)
	if err != nil {
		return reply, err
	}
	slog.Debug("Planner reply received", "model", t.cfg.Model, "chars", len(reply.text),
		"tool_calls", len(reply.calls), "duration_ms", time.Since(startTime).Milliseconds())
	return reply, nil
}

func apiStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("planner API returned status %d: %s", resp.StatusCode, e.Error.Message)
	}
	return fmt.Errorf("planner API returned status %d", resp.StatusCode)
}

// withoutImage drops the inline image; it travels as a separate user message.
func withoutImage(r entity.ToolResult) entity.ToolResult {
	if r.InlineData != nil {
		r.InlineData = nil
		r.Message = strings.TrimSpace(r.Message + " The image is attached in the next message.")
	}
	return r
}
