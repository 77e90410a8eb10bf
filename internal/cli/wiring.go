package cli

import (
	"context"
	"fmt"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/auth"
	"github.com/soyeahso/caselink/internal/config"
	"github.com/soyeahso/caselink/internal/hooks"
	"github.com/soyeahso/caselink/internal/llm"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/session"
	"github.com/soyeahso/caselink/internal/store"
	"github.com/soyeahso/caselink/internal/uicontext"
)

// databasePath is the configured store path, resolved against the base
// directory, or the default under data/.
func databasePath(c config.Config, p config.Paths) string {
	if c.Store.Path != "" {
		return p.Resolve(c.Store.Path)
	}
	return p.Database
}

// openStore opens the projection database, seeding the bundled demo data
// when every projection is empty.
func openStore(ctx context.Context, c config.Config, p config.Paths, l *logging.Logger) (*store.DB, error) {
	db, err := store.Open(databasePath(c, p), l)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if counts.Empty() {
		ds, err := store.DemoDataset()
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := db.Seed(ctx, ds); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
		l.Info().Int("suspects", len(ds.Suspects)).Int("cases", len(ds.Cases)).Msg("seeded demo projections")
	}
	return db, nil
}

// newModelClient builds the serving client with its token cache and the
// optional per-minute limiter.
func newModelClient(c config.Config, l *logging.Logger) llm.Client {
	tokens := auth.NewTokenCache(l)
	serving := llm.NewServingClient(llm.ServingConfig{
		Host:         c.Databricks.Host,
		Token:        c.Databricks.Token,
		ClientID:     c.Databricks.ClientID,
		ClientSecret: c.Databricks.ClientSecret,
		Scope:        c.Databricks.Scope,
		Endpoint:     c.Agent.Endpoint,
		Temperature:  c.Agent.Temperature,
		MaxTokens:    c.Agent.MaxTokens,
	}, tokens, l)
	return llm.WithRateLimit(serving, c.Agent.RequestsPerMinute)
}

// newOrchestrator wires the context builder and model client into an
// orchestrator.
func newOrchestrator(c config.Config, src uicontext.Source, client llm.Client, hm *hooks.Manager, l *logging.Logger) *agent.Orchestrator {
	builder := uicontext.NewBuilder(src, uicontext.BuilderConfig{
		SuspectLimit: c.Context.SuspectLimit,
		CaseLimit:    c.Context.CaseLimit,
		CacheTTL:     c.Context.CacheTTL(),
	}, l)
	return agent.New(agent.Config{
		MaxActions:   c.Agent.EffectiveMaxActions(),
		HistoryLimit: c.Agent.HistoryLimit,
		MaxTokens:    c.Agent.MaxTokens,
		Temperature:  c.Agent.Temperature,
		Timeout:      c.Agent.Timeout(),
	}, client, builder, hm, l)
}

// newHooks creates the hook manager and attaches the audit log when one is
// configured. The returned close func is never nil.
func newHooks(c config.Config, p config.Paths, l *logging.Logger) (*hooks.Manager, func() error, error) {
	hm := hooks.NewManager(l)
	if c.Hooks.AuditFile == "" {
		return hm, func() error { return nil }, nil
	}
	audit, err := hooks.OpenAuditFile(p.Resolve(c.Hooks.AuditFile))
	if err != nil {
		return nil, nil, err
	}
	audit.Register(hm)
	return hm, audit.Close, nil
}

// newSessionStore picks the chat client's session store.
func newSessionStore(c config.Config, p config.Paths) session.Store {
	if c.Session.Store == "memory" {
		return session.NewMemoryStore()
	}
	path := p.Resolve(c.Session.Path)
	if path == "" {
		path = p.SessionFile()
	}
	return session.NewFileStore(path)
}
