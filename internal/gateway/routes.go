package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/uicontext"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /api/agent/turn", s.requireAuth(s.handleTurn))
	mux.HandleFunc("GET /api/evidence-card", s.requireAuth(s.handleEvidenceCard))

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle(MethodHealth, s.rpcHealth)
	s.Handle(MethodAgentTurn, s.rpcAgentTurn)
	s.Handle(MethodEvidenceCard, s.rpcEvidenceCard)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(s.health())
}

func (s *Server) rpcAgentTurn(rc *RequestContext) {
	var req agent.TurnRequest
	if err := rc.Params(&req); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	if s.agent == nil {
		rc.RespondError(CodeUnavailable, "agent is not configured")
		return
	}

	res, err := s.agent.Turn(s.requestContext(), req)
	if err != nil {
		_, code := classify(err)
		rc.RespondError(code, err.Error())
		return
	}
	rc.Respond(newTurnResponse(res))
}

func (s *Server) rpcEvidenceCard(rc *RequestContext) {
	if s.evidence == nil {
		rc.RespondError(CodeUnavailable, "evidence store is not configured")
		return
	}

	var p EvidenceParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	ids := uicontext.SplitIDs(strings.Join(p.PersonIDs, ","))
	if len(ids) == 0 {
		rc.RespondError(CodeInvalidParams, "personIds is required")
		return
	}

	card, err := s.evidence.EvidenceCard(s.requestContext(), ids)
	if err != nil {
		s.log.Error().Err(err).Strs("personIds", ids).Msg("evidence card failed")
		rc.RespondError(CodeInternal, "evidence card unavailable")
		return
	}
	rc.Respond(EvidenceResponse{Success: true, EvidenceCard: card})
}

// requestContext is the parent context for RPC work; it ends when the
// server shuts down.
func (s *Server) requestContext() context.Context {
	return s.baseCtx
}
