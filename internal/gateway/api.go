package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/llm"
	"github.com/soyeahso/caselink/internal/store"
)

// TurnResponse is the success body of a turn.
type TurnResponse struct {
	Success          bool            `json:"success"`
	SessionID        string          `json:"sessionId,omitempty"`
	AssistantMessage string          `json:"assistantMessage"`
	Actions          []action.Action `json:"actions"`
	RawModelResponse json.RawMessage `json:"rawModelResponse,omitempty"`
}

// EvidenceResponse is the success body of an evidence card request.
type EvidenceResponse struct {
	Success      bool                `json:"success"`
	EvidenceCard *store.EvidenceCard `json:"evidenceCard"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func newTurnResponse(res *agent.TurnResult) TurnResponse {
	return TurnResponse{
		Success:          true,
		SessionID:        res.SessionID,
		AssistantMessage: res.AssistantMessage,
		Actions:          res.Actions,
		RawModelResponse: res.RawModelResponse,
	}
}

// classify maps a turn error to an HTTP status and an RPC error code.
func classify(err error) (int, string) {
	var (
		inputErr    *agent.InputError
		authErr     *llm.AuthError
		providerErr *llm.ProviderError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, CodeInvalidParams
	case errors.As(err, &authErr):
		return http.StatusBadGateway, CodeAuthError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, CodeUpstreamError
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
