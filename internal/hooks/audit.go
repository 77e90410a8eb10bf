package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// AuditLog appends one JSON line per turn event. Only the fields the
// orchestrator puts in the payload are written; answers and model text
// are never part of it.
type AuditLog struct {
	c   io.Closer
	out zerolog.Logger
}

// NewAuditLog writes audit lines to w.
func NewAuditLog(w io.Writer) *AuditLog {
	sw := zerolog.SyncWriter(w)
	return &AuditLog{out: zerolog.New(sw)}
}

// OpenAuditFile opens (or creates) path for appending.
func OpenAuditFile(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	a := NewAuditLog(f)
	a.c = f
	return a, nil
}

// Register attaches the audit handler to every turn event.
func (a *AuditLog) Register(m *Manager) {
	for _, ev := range TurnEvents {
		m.On(ev, "audit", a.Handle)
	}
}

// Handle writes p as one line.
func (a *AuditLog) Handle(_ context.Context, p Payload) error {
	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	a.out.Log().Time(zerolog.TimestampFieldName, ts).Str("event", p.Event).Fields(p.Data).Send()
	return nil
}

// Close closes the underlying file, if any.
func (a *AuditLog) Close() error {
	if a.c == nil {
		return nil
	}
	return a.c.Close()
}
