package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/store"
	"github.com/soyeahso/caselink/internal/version"
)

// RemoteOptions configures a connection to a running gateway.
type RemoteOptions struct {
	URL      string // ws://host:port/ws
	Token    string
	Password string
	ClientID string
}

// RemoteTurn is a turn result received over the wire, with its actions
// re-validated locally.
type RemoteTurn struct {
	SessionID        string
	AssistantMessage string
	Actions          []action.Action
	RawModelResponse json.RawMessage
}

// Remote is a WebSocket RPC client for the gateway. It implements the
// evidence fetcher the UI executor needs, so a terminal client can run the
// full loop against a remote server. Calls are safe for concurrent use.
type Remote struct {
	conn  *websocket.Conn
	hello HelloOK
	log   *logging.Logger

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[string]chan Frame
	err     error
	done    chan struct{}
}

// Dial connects and authenticates against the gateway.
func Dial(ctx context.Context, opts RemoteOptions, log *logging.Logger) (*Remote, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	conn.SetReadLimit(maxPayload)

	r := &Remote{
		conn:    conn,
		log:     log.Sub("remote"),
		pending: make(map[string]chan Frame),
		done:    make(chan struct{}),
	}
	if err := r.handshake(opts); err != nil {
		conn.Close()
		return nil, err
	}
	go r.readLoop()
	return r, nil
}

func (r *Remote) handshake(opts RemoteOptions) error {
	var challenge Frame
	if err := r.conn.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("reading challenge: %w", err)
	}
	if challenge.Type != FrameTypeEvent || challenge.Event != EventConnectChallenge {
		return fmt.Errorf("expected %s, got %s %s", EventConnectChallenge, challenge.Type, challenge.Event)
	}

	params := ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client: ClientInfo{
			ID:       opts.ClientID,
			Version:  version.Current().Version,
			Platform: runtime.GOOS,
		},
	}
	if opts.Token != "" || opts.Password != "" {
		params.Auth = &ConnectAuth{Token: opts.Token, Password: opts.Password}
	}
	req, err := NewRequest(r.newID(), MethodConnect, params)
	if err != nil {
		return err
	}
	if err := r.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending connect: %w", err)
	}

	var res Frame
	if err := r.conn.ReadJSON(&res); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if err := res.Result(&r.hello); err != nil {
		var shape *ErrorShape
		if errors.As(err, &shape) {
			return shape
		}
		return fmt.Errorf("parsing hello: %w", err)
	}
	return nil
}

// Hello returns the server's handshake reply.
func (r *Remote) Hello() HelloOK { return r.hello }

// MaxActions is the action cap advertised by the server.
func (r *Remote) MaxActions() int { return r.hello.Policy.MaxActions }

func (r *Remote) newID() string {
	return "c" + strconv.FormatInt(r.nextID.Add(1), 10)
}

func (r *Remote) readLoop() {
	defer close(r.done)
	for {
		var f Frame
		if err := r.conn.ReadJSON(&f); err != nil {
			r.failAll(err)
			return
		}
		if f.Type != FrameTypeResponse {
			r.log.Debug().Str("type", f.Type).Str("event", f.Event).Msg("ignoring frame")
			continue
		}
		r.mu.Lock()
		ch, ok := r.pending[f.ID]
		delete(r.pending, f.ID)
		r.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (r *Remote) failAll(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
		err = ErrClientClosed
	}
	r.err = err
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

// Call sends one request and decodes the response payload into out.
// Error responses are returned as *ErrorShape.
func (r *Remote) Call(ctx context.Context, method string, params, out any) error {
	id := r.newID()
	req, err := NewRequest(id, method, params)
	if err != nil {
		return err
	}

	ch := make(chan Frame, 1)
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.pending[id] = ch
	r.mu.Unlock()

	r.writeMu.Lock()
	err = r.conn.WriteJSON(req)
	r.writeMu.Unlock()
	if err != nil {
		r.forget(id)
		return fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		r.forget(id)
		return ctx.Err()
	case f, ok := <-ch:
		if !ok {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.err
		}
		return f.Result(out)
	}
}

func (r *Remote) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// Turn runs a turn on the server. The returned actions are decoded and
// sanitized again against the advertised cap; the client never trusts
// the wire.
func (r *Remote) Turn(ctx context.Context, req agent.TurnRequest) (*RemoteTurn, error) {
	var wire struct {
		SessionID        string          `json:"sessionId"`
		AssistantMessage string          `json:"assistantMessage"`
		Actions          json.RawMessage `json:"actions"`
		RawModelResponse json.RawMessage `json:"rawModelResponse"`
	}
	if err := r.Call(ctx, MethodAgentTurn, req, &wire); err != nil {
		return nil, err
	}
	return &RemoteTurn{
		SessionID:        wire.SessionID,
		AssistantMessage: wire.AssistantMessage,
		Actions:          action.Decode(wire.Actions, r.MaxActions()),
		RawModelResponse: wire.RawModelResponse,
	}, nil
}

// EvidenceCard fetches an evidence card from the server.
func (r *Remote) EvidenceCard(ctx context.Context, personIDs []string) (*store.EvidenceCard, error) {
	var res EvidenceResponse
	if err := r.Call(ctx, MethodEvidenceCard, EvidenceParams{PersonIDs: personIDs}, &res); err != nil {
		return nil, err
	}
	if res.EvidenceCard == nil {
		return nil, errors.New("empty evidence card")
	}
	return res.EvidenceCard, nil
}

// Health returns the authenticated health report.
func (r *Remote) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	err := r.Call(ctx, MethodHealth, nil, &h)
	return h, err
}

// Close sends a close frame and waits for the read loop to stop.
func (r *Remote) Close() error {
	r.writeMu.Lock()
	err := r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	closeErr := r.conn.Close()
	<-r.done
	if err != nil {
		return err
	}
	return closeErr
}
