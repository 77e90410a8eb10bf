package gateway

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the only frame protocol this build speaks.
const ProtocolVersion = 1

// Frame kinds.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// RPC methods served over /ws.
const (
	MethodConnect      = "connect"
	MethodHealth       = "health"
	MethodAgentTurn    = "agent.turn"
	MethodEvidenceCard = "evidence.card"
)

// EventConnectChallenge opens every WebSocket handshake.
const EventConnectChallenge = "connect.challenge"

// Error codes carried in ErrorShape.Code. The HTTP API uses the same codes
// in its logs.
const (
	CodeProtocolError  = "protocol_error"
	CodeInvalidParams  = "invalid_params"
	CodeUnauthorized   = "unauthorized"
	CodeMethodNotFound = "method_not_found"
	CodeUnavailable    = "unavailable"
	CodeRateLimited    = "rate_limited"
	CodeAuthError      = "auth_error"
	CodeUpstreamError  = "upstream_error"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal_error"
)

// Frame is the single envelope for requests, responses and events on the
// socket. Type says which of the field groups is populated.
type Frame struct {
	Type string `json:"type"`

	// req and res
	ID string `json:"id,omitempty"`

	// req
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// res
	OK    *bool       `json:"ok,omitempty"`
	Error *ErrorShape `json:"error,omitempty"`

	// res and event
	Payload json.RawMessage `json:"payload,omitempty"`

	// event
	Event string `json:"event,omitempty"`
}

// DecodeParams unmarshals a request's params. Absent params leave v
// untouched.
func (f Frame) DecodeParams(v any) error {
	if len(f.Params) == 0 || string(f.Params) == "null" {
		return nil
	}
	return json.Unmarshal(f.Params, v)
}

// Result turns a response frame into an error or decodes its payload into
// out. out may be nil when the caller only needs success.
func (f Frame) Result(out any) error {
	if f.Type != FrameTypeResponse {
		return fmt.Errorf("expected response frame, got %q", f.Type)
	}
	if f.Error != nil {
		return f.Error
	}
	if f.OK == nil || !*f.OK {
		return &ErrorShape{Code: CodeProtocolError, Message: "response without ok or error"}
	}
	if out == nil || len(f.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(f.Payload, out)
}

// ErrorShape is the error body of a failed response. It is also the error
// a Remote returns for it.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *ErrorShape) Error() string { return e.Code + ": " + e.Message }

// ChallengePayload is the body of the connect.challenge event.
type ChallengePayload struct {
	Nonce string `json:"nonce"`
	TS    int64  `json:"ts"`
}

// ConnectParams open a session after the challenge.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
}

// negotiate picks the protocol version for a client's supported range.
// Zero bounds are treated as "version 1 only" for older clients.
func (p ConnectParams) negotiate() (int, bool) {
	lo, hi := p.MinProtocol, p.MaxProtocol
	if lo == 0 && hi == 0 {
		lo, hi = 1, 1
	}
	if lo <= ProtocolVersion && ProtocolVersion <= hi {
		return ProtocolVersion, true
	}
	return 0, false
}

// ClientInfo identifies the connecting program.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
}

// ConnectAuth carries the client's secret.
type ConnectAuth struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// HelloOK answers a successful connect.
type HelloOK struct {
	Protocol int          `json:"protocol"`
	Server   ServerInfo   `json:"server"`
	Features Features     `json:"features"`
	Policy   ServerPolicy `json:"policy"`
}

// ServerInfo identifies the gateway build and the connection.
type ServerInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	ConnID  string `json:"connId"`
}

// Features lists what the client may call and expect.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// ServerPolicy carries the limits a client must honor. MaxActions is the
// cap it applies when re-validating the actions it receives.
type ServerPolicy struct {
	MaxPayload int `json:"maxPayload"`
	MaxActions int `json:"maxActions"`
}

// EvidenceParams selects the persons for an evidence card.
type EvidenceParams struct {
	PersonIDs []string `json:"personIds"`
}

// NewRequest builds a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s params: %w", method, err)
	}
	return Frame{Type: FrameTypeRequest, ID: id, Method: method, Params: raw}, nil
}

// NewResponse builds a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding response %s: %w", id, err)
	}
	ok := true
	return Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Payload: raw}, nil
}

// NewErrorResponse builds a failed response frame.
func NewErrorResponse(id string, shape ErrorShape) Frame {
	ok := false
	return Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Error: &shape}
}

// NewEvent builds an event frame.
func NewEvent(event string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s event: %w", event, err)
	}
	return Frame{Type: FrameTypeEvent, Event: event, Payload: raw}, nil
}
