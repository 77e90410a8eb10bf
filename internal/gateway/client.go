package gateway

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/caselink/internal/logging"
	"golang.org/x/time/rate"
)

// Per-connection request budget. Turns are expensive, so a single UI
// connection may not flood the model endpoint.
const (
	clientRequestRate  = 5 // per second
	clientRequestBurst = 10
)

// Liveness: the server pings every pingPeriod and drops a connection whose
// pong is later than pongWait. Browser tabs closed without a close frame
// would otherwise hold a registry slot forever.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Client represents an authenticated WebSocket connection.
type Client struct {
	ConnID      string
	Info        ClientInfo
	Socket      *websocket.Conn
	AuthResult  AuthResult
	ConnectedAt time.Time

	requests atomic.Int64
	limiter  *rate.Limiter

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	log    *logging.Logger
}

// ClientSummary is a snapshot of one connection, used by health output.
type ClientSummary struct {
	ConnID      string    `json:"connId"`
	ClientID    string    `json:"clientId,omitempty"`
	Version     string    `json:"version,omitempty"`
	AuthMethod  string    `json:"authMethod"`
	ConnectedAt time.Time `json:"connectedAt"`
	Requests    int64     `json:"requests"`
}

// NewClient creates a Client for a newly authenticated WebSocket connection.
func NewClient(conn *websocket.Conn, info ClientInfo, authResult AuthResult, log *logging.Logger) *Client {
	connID := uuid.New().String()
	return &Client{
		ConnID:      connID,
		Info:        info,
		Socket:      conn,
		AuthResult:  authResult,
		ConnectedAt: time.Now(),
		limiter:     rate.NewLimiter(clientRequestRate, clientRequestBurst),
		done:        make(chan struct{}),
		log:         log.With("connId", connID),
	}
}

// Send sends a frame to the client. Thread-safe.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Socket.WriteJSON(frame)
}

// startKeepAlive arms the pong deadline and pings until Close. A missed
// pong surfaces as a read timeout in the server's read loop.
func (c *Client) startKeepAlive(period, wait time.Duration) {
	c.Socket.SetReadDeadline(time.Now().Add(wait))
	c.Socket.SetPongHandler(func(string) error {
		return c.Socket.SetReadDeadline(time.Now().Add(wait))
	})

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				if err := c.Socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					c.log.Debug().Err(err).Msg("ping failed")
					return
				}
			}
		}
	}()
}

// Respond sends a success response for the given request ID.
func (c *Client) Respond(reqID string, payload any) error {
	f, err := NewResponse(reqID, payload)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// RespondError sends an error response for the given request ID.
func (c *Client) RespondError(reqID string, errShape ErrorShape) error {
	return c.Send(NewErrorResponse(reqID, errShape))
}

// ReadFrame reads the next frame from the WebSocket.
func (c *Client) ReadFrame() (Frame, error) {
	_, msg, err := c.Socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// admit counts a request and reports whether it fits the connection's budget.
func (c *Client) admit() bool {
	c.requests.Add(1)
	return c.limiter.Allow()
}

// Summary returns a point-in-time description of the connection.
func (c *Client) Summary() ClientSummary {
	return ClientSummary{
		ConnID:      c.ConnID,
		ClientID:    c.Info.ID,
		Version:     c.Info.Version,
		AuthMethod:  c.AuthResult.Method,
		ConnectedAt: c.ConnectedAt,
		Requests:    c.requests.Load(),
	}
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.Socket.Close()
}

// ClientRegistry manages connected clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client // connID → Client
	log     *logging.Logger
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a connected client.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ConnID] = c
	r.log.Info().Str("connId", c.ConnID).Str("client", c.Info.ID).Msg("client connected")
}

// Remove unregisters a client by connection ID.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, connID)
	r.log.Info().Str("connId", connID).Msg("client disconnected")
}

// Get returns a client by connection ID.
func (r *ClientRegistry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connID]
	return c, ok
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Summaries lists connected clients, oldest first.
func (r *ClientRegistry) Summaries() []ClientSummary {
	r.mu.RLock()
	out := make([]ClientSummary, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c.Summary())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// CloseAll closes all connected clients.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
