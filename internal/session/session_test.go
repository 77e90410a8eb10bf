package session

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/soyeahso/caselink/internal/domain"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

var idPattern = regexp.MustCompile(`^sess_[0-9a-f]{12}_\d+$`)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "sessions", "chat.json")),
		"memory": NewMemoryStore(),
	}
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1767225600000)
	id := NewID(now)
	assert.Regexp(t, idPattern, id)
	assert.Contains(t, id, "_1767225600000")
	assert.NotEqual(t, id, NewID(now))
}

func TestStore_LoadEmpty(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s, err := st.Load()
			require.NoError(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestStore_SaveLoadReset(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Second)
			in := &domain.Session{
				ID:        "sess_abc_1",
				CreatedAt: now,
				UpdatedAt: now,
				Messages:  []domain.Message{{Role: domain.RoleUser, Content: "hi", Timestamp: now}},
			}
			require.NoError(t, st.Save(in))

			out, err := st.Load()
			require.NoError(t, err)
			require.NotNil(t, out)
			assert.Equal(t, in, out)

			require.NoError(t, st.Reset())
			out, err = st.Load()
			require.NoError(t, err)
			assert.Nil(t, out)

			require.NoError(t, st.Reset())
		})
	}
}

func TestMemoryStore_Isolated(t *testing.T) {
	st := NewMemoryStore()
	in := &domain.Session{ID: "sess_1", Messages: []domain.Message{{Role: domain.RoleUser, Content: "a"}}}
	require.NoError(t, st.Save(in))

	in.Messages[0].Content = "mutated"
	out, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", out.Messages[0].Content)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode session")
}

func TestManager_CurrentCreatesOnce(t *testing.T) {
	st := NewMemoryStore()
	m := NewManager(st, silentLog())

	id, err := m.Current()
	require.NoError(t, err)
	assert.Regexp(t, idPattern, id)

	again, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	saved, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
}

func TestManager_PersistsAcrossInstances(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "chat.json"))

	m := NewManager(st, silentLog())
	id, err := m.Current()
	require.NoError(t, err)
	require.NoError(t, m.Append(domain.RoleUser, "open case CASE_TN_005"))

	m2 := NewManager(st, silentLog())
	id2, err := m2.Current()
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	msgs, err := m2.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "open case CASE_TN_005", msgs[0].Content)
}

func TestManager_NewSessionTwice(t *testing.T) {
	m := NewManager(NewMemoryStore(), silentLog())
	require.NoError(t, m.Append(domain.RoleUser, "first"))
	require.NoError(t, m.Append(domain.RoleAssistant, "reply"))
	before, err := m.Messages()
	require.NoError(t, err)
	orig, err := m.Current()
	require.NoError(t, err)

	a, err := m.NewSession()
	require.NoError(t, err)
	b, err := m.NewSession()
	require.NoError(t, err)

	assert.NotEqual(t, orig, a)
	assert.NotEqual(t, a, b)

	after, err := m.Messages()
	require.NoError(t, err)
	require.Len(t, after, len(before)+2)
	assert.Equal(t, before, after[:len(before)])
	for _, msg := range after[len(before):] {
		assert.Equal(t, domain.RoleSystem, msg.Role)
		assert.Equal(t, NewSessionNotice, msg.Content)
	}
}

func TestManager_HistoryLastTwenty(t *testing.T) {
	m := NewManager(NewMemoryStore(), silentLog())
	for i := 0; i < 30; i++ {
		require.NoError(t, m.Append(domain.RoleUser, string(rune('A'+i))))
	}

	h, err := m.History()
	require.NoError(t, err)
	require.Len(t, h, HistoryLimit)
	assert.Equal(t, string(rune('A'+10)), h[0].Content)
	assert.Equal(t, string(rune('A'+29)), h[HistoryLimit-1].Content)

	all, err := m.Messages()
	require.NoError(t, err)
	assert.Len(t, all, 30)
}

func TestManager_Reset(t *testing.T) {
	st := NewMemoryStore()
	m := NewManager(st, silentLog())
	id, err := m.Current()
	require.NoError(t, err)
	require.NoError(t, m.Append(domain.RoleUser, "x"))

	require.NoError(t, m.Reset())

	msgs, err := m.Messages()
	require.NoError(t, err)
	assert.Empty(t, msgs)
	next, err := m.Current()
	require.NoError(t, err)
	assert.NotEqual(t, id, next)
}
