package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/caselink/internal/domain"
	"github.com/soyeahso/caselink/internal/logging"
)

// HistoryLimit is how many messages History returns.
const HistoryLimit = 20

// NewSessionNotice is the system message appended when a session is
// regenerated.
const NewSessionNotice = "New session started."

// Manager owns the current session. Every mutation is saved to the store.
type Manager struct {
	mu    sync.Mutex
	store Store
	cur   *domain.Session
	now   func() time.Time
	log   *logging.Logger
}

// NewManager creates a manager over store. The session is loaded lazily.
func NewManager(store Store, log *logging.Logger) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		log:   log.Sub("session"),
	}
}

// NewID returns a fresh id of the form sess_<random>_<unix millis>.
func NewID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("sess_%s_%d", random, now.UnixMilli())
}

// Current returns the session id, creating and persisting one on first use.
func (m *Manager) Current() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadLocked()
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// NewSession replaces the id and records a system notice. The message log
// is kept.
func (m *Manager) NewSession() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadLocked()
	if err != nil {
		return "", err
	}
	now := m.now()
	prev := s.ID
	for s.ID == prev {
		s.ID = NewID(now)
	}
	s.Messages = append(s.Messages, domain.Message{
		Role:      domain.RoleSystem,
		Content:   NewSessionNotice,
		Timestamp: now,
	})
	s.UpdatedAt = now
	if err := m.store.Save(s); err != nil {
		return "", err
	}
	m.log.Info().Str("previous", prev).Str("sessionId", s.ID).Msg("new session")
	return s.ID, nil
}

// Append records a message in the current session.
func (m *Manager) Append(role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadLocked()
	if err != nil {
		return err
	}
	now := m.now()
	s.Messages = append(s.Messages, domain.Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
	return m.store.Save(s)
}

// Messages returns a copy of the full message log.
func (m *Manager) Messages() ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	return append([]domain.Message(nil), s.Messages...), nil
}

// History returns the last HistoryLimit messages for the next turn.
func (m *Manager) History() ([]domain.Message, error) {
	msgs, err := m.Messages()
	if err != nil {
		return nil, err
	}
	return domain.Tail(msgs, HistoryLimit), nil
}

// Reset discards the session and its log. The next call creates a new one.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Reset(); err != nil {
		return err
	}
	m.cur = nil
	return nil
}

func (m *Manager) loadLocked() (*domain.Session, error) {
	if m.cur != nil {
		return m.cur, nil
	}
	s, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if s == nil || s.ID == "" {
		now := m.now()
		if s == nil {
			s = &domain.Session{CreatedAt: now}
		}
		s.ID = NewID(now)
		s.UpdatedAt = now
		if err := m.store.Save(s); err != nil {
			return nil, err
		}
		m.log.Debug().Str("sessionId", s.ID).Msg("session created")
	}
	m.cur = s
	return s, nil
}
