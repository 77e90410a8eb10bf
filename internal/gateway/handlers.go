package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/uicontext"
	"github.com/soyeahso/caselink/internal/version"
)

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the authenticated RPC handler populates all fields.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Clients    int    `json:"clients,omitempty"`
	Agent      bool   `json:"agent,omitempty"`
	MaxActions int    `json:"maxActions,omitempty"`
	UptimeMs   int64  `json:"uptimeMs,omitempty"`

	Connections []ClientSummary `json:"connections,omitempty"`
}

// handleHealth returns the server health status. Only status is exposed
// publicly; detailed info is available via the authenticated RPC health method.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleTurn runs one agent turn. A bad body or blank answer is a 400 even
// when no agent is wired.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req agent.TurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayload)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "agent is not configured")
		return
	}

	res, err := s.agent.Turn(r.Context(), req)
	if err != nil {
		status, _ := classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Warn().Err(err).Int("status", status).Str("requestId", requestIDFrom(r.Context())).Msg("turn failed")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newTurnResponse(res))
}

// handleEvidenceCard returns the evidence card for ?personIds=a,b.
func (s *Server) handleEvidenceCard(w http.ResponseWriter, r *http.Request) {
	if s.evidence == nil {
		writeError(w, http.StatusServiceUnavailable, "evidence store is not configured")
		return
	}
	ids := uicontext.SplitIDs(r.URL.Query().Get("personIds"))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "personIds is required")
		return
	}
	card, err := s.evidence.EvidenceCard(r.Context(), ids)
	if err != nil {
		s.log.Error().Err(err).Strs("personIds", ids).Str("requestId", requestIDFrom(r.Context())).Msg("evidence card failed")
		writeError(w, http.StatusInternalServerError, "evidence card unavailable")
		return
	}
	writeJSON(w, http.StatusOK, EvidenceResponse{Success: true, EvidenceCard: card})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// requireAuth guards API routes with the same credentials as the WebSocket
// handshake, sent as a bearer header.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth.Mode == AuthNone {
			next(w, r)
			return
		}
		if !s.authLimiter.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		if res := Authorize(s.auth, authFromRequest(s.auth, r)); !res.OK {
			s.authLimiter.recordFailure(r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) health() HealthResponse {
	h := HealthResponse{
		Status:     "ok",
		Version:    version.Current().Version,
		Clients:    s.clients.Count(),
		Agent:      s.agent != nil,
		MaxActions: s.maxActions(),

		Connections: s.clients.Summaries(),
	}
	if !s.startedAt.IsZero() {
		h.UptimeMs = time.Since(s.startedAt).Milliseconds()
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(ctx *RequestContext)

// RequestContext carries everything a handler needs.
type RequestContext struct {
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// Params unmarshals the request params into target.
func (rc *RequestContext) Params(target any) error {
	return rc.Frame.DecodeParams(target)
}
