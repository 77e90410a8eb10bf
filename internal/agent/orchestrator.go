// Package agent runs one command-generation turn: it snapshots the UI
// context, assembles the prompt, invokes the model, and turns the reply into
// validated actions.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/domain"
	"github.com/soyeahso/caselink/internal/hooks"
	"github.com/soyeahso/caselink/internal/llm"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/uicontext"
)

// DefaultHistoryLimit is how many prior messages are sent with a turn.
const DefaultHistoryLimit = 20

// InputError is returned for a request the orchestrator refuses before
// calling the model.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

// ErrAnswerRequired is the input error for a missing or blank answer.
var ErrAnswerRequired = &InputError{Field: "answer", Message: "answer is required"}

// Validate reports the input error Turn would return for r, so transports
// can reject a request before checking anything else.
func (r TurnRequest) Validate() error {
	if strings.TrimSpace(r.Answer) == "" {
		return ErrAnswerRequired
	}
	return nil
}

// ContextBuilder produces the snapshot sent alongside the user's answer.
type ContextBuilder interface {
	Build(ctx context.Context, ui uicontext.UIContext) uicontext.Snapshot
}

// Config configures the orchestrator.
type Config struct {
	MaxActions   int
	HistoryLimit int
	MaxTokens    int
	Temperature  *float64
	Timeout      time.Duration
}

// TurnRequest is one user instruction with its client-held context.
type TurnRequest struct {
	SessionID string               `json:"sessionId,omitempty"`
	History   []domain.Message     `json:"history,omitempty"`
	UIContext *uicontext.UIContext `json:"uiContext,omitempty"`
	Answer    string               `json:"answer"`
}

// TurnResult is the outcome of a turn.
type TurnResult struct {
	SessionID        string          `json:"sessionId,omitempty"`
	AssistantMessage string          `json:"assistantMessage"`
	Actions          []action.Action `json:"actions"`
	RawModelResponse json.RawMessage `json:"rawModelResponse"`
	Duration         time.Duration   `json:"-"`
}

// Orchestrator sequences one request/response cycle against the model.
type Orchestrator struct {
	cfg     Config
	client  llm.Client
	context ContextBuilder
	hooks   *hooks.Manager
	log     *logging.Logger
}

// New creates an orchestrator. hooks may be nil.
func New(cfg Config, client llm.Client, cb ContextBuilder, hm *hooks.Manager, log *logging.Logger) *Orchestrator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxActions < 0 {
		cfg.MaxActions = 0
	}
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		context: cb,
		hooks:   hm,
		log:     log.Sub("agent"),
	}
}

// MaxActions returns the action cap applied to every turn.
func (o *Orchestrator) MaxActions() int { return o.cfg.MaxActions }

// Turn processes one instruction. A blank answer fails with
// ErrAnswerRequired before anything else runs. Model output that holds no
// JSON is not an error: it becomes the assistant message with no actions.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	answer := strings.TrimSpace(req.Answer)

	var ui uicontext.UIContext
	if req.UIContext != nil {
		ui = *req.UIContext
	}

	o.log.Info().
		Str("sessionId", req.SessionID).
		Str("path", ui.Path).
		Int("historyLen", len(req.History)).
		Msg("processing turn")
	o.emit(ctx, hooks.EventTurnReceived, map[string]any{
		"sessionId": req.SessionID,
		"path":      ui.Path,
	})

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	snap := o.context.Build(ctx, ui)
	messages, err := o.Messages(snap, req.History, answer)
	if err != nil {
		return nil, o.fail(ctx, req.SessionID, err)
	}

	resp, err := o.client.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return nil, o.fail(ctx, req.SessionID, err)
	}

	reply := ParseReply(resp.Content)
	actions := action.Sanitize(reply.RawActions, o.cfg.MaxActions)

	raw := resp.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(resp.Content)
	}

	result := &TurnResult{
		SessionID:        req.SessionID,
		AssistantMessage: reply.AssistantMessage,
		Actions:          actions,
		RawModelResponse: raw,
		Duration:         time.Since(start),
	}

	o.log.Info().
		Str("sessionId", req.SessionID).
		Bool("structured", reply.Structured).
		Int("actions", len(actions)).
		Str("invocationPath", resp.Path).
		Dur("duration", result.Duration).
		Msg("turn complete")
	o.emit(ctx, hooks.EventTurnCompleted, map[string]any{
		"sessionId":  req.SessionID,
		"structured": reply.Structured,
		"actions":    len(actions),
		"durationMs": result.Duration.Milliseconds(),
	})

	return result, nil
}

// Messages assembles the model input: the system prompt, the context
// snapshot, the conversational messages among the last HistoryLimit of history, then
// the answer.
func (o *Orchestrator) Messages(snap uicontext.Snapshot, history []domain.Message, answer string) ([]llm.Message, error) {
	ctxJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}

	var convo []domain.Message
	for _, m := range domain.Tail(history, o.cfg.HistoryLimit) {
		if m.Conversational() {
			convo = append(convo, m)
		}
	}

	msgs := make([]llm.Message, 0, len(convo)+3)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: BuildSystemPrompt(o.cfg.MaxActions)},
		llm.Message{Role: llm.RoleSystem, Content: "Application context (JSON):\n" + string(ctxJSON)},
	)
	for _, m := range convo {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: answer})
	return msgs, nil
}

func (o *Orchestrator) fail(ctx context.Context, sessionID string, err error) error {
	kind := "invocation"
	var authErr *llm.AuthError
	if errors.As(err, &authErr) {
		kind = "auth"
	}
	o.log.Error().Err(err).Str("sessionId", sessionID).Str("kind", kind).Msg("turn failed")
	o.emit(ctx, hooks.EventTurnFailed, map[string]any{
		"sessionId": sessionID,
		"kind":      kind,
		"error":     err.Error(),
	})
	return err
}

func (o *Orchestrator) emit(ctx context.Context, event string, data map[string]any) {
	if o.hooks == nil {
		return
	}
	o.hooks.Emit(ctx, event, data)
}
