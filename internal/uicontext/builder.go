package uicontext

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/store"
	"golang.org/x/sync/errgroup"
)

// Source supplies the projections a snapshot is built from.
type Source interface {
	TopSuspects(ctx context.Context, limit int) ([]store.Suspect, error)
	CasesByCity(ctx context.Context, city string) ([]store.Case, error)
}

// TimelineCase is a case placed on the 72-slot timeline.
type TimelineCase struct {
	CaseID        string    `json:"caseId"`
	CaseType      string    `json:"caseType,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state,omitempty"`
	IncidentTime  time.Time `json:"incidentTime"`
	MethodOfEntry string    `json:"methodOfEntry,omitempty"`
	Slot          int       `json:"slot"`
}

// DataContext is the domain half of the snapshot. A projection whose fetch
// failed is left nil.
type DataContext struct {
	SuspectsTop []store.Suspect `json:"suspectsTop,omitempty"`
	CasesTop    []TimelineCase  `json:"casesTop,omitempty"`
}

// Snapshot is everything the model is told about the user's current view.
type Snapshot struct {
	UI      UIContext   `json:"uiContext"`
	Derived Derived     `json:"derived"`
	Data    DataContext `json:"data"`
}

// BuilderConfig sets projection sizes and cache lifetime.
type BuilderConfig struct {
	SuspectLimit int
	CaseLimit    int
	CacheTTL     time.Duration
}

// Builder assembles snapshots, caching each projection by its filter.
type Builder struct {
	src      Source
	cfg      BuilderConfig
	suspects *expirable.LRU[string, []store.Suspect]
	cases    *expirable.LRU[string, []TimelineCase]
	log      *logging.Logger
}

// NewBuilder creates a snapshot builder over src.
func NewBuilder(src Source, cfg BuilderConfig, log *logging.Logger) *Builder {
	if cfg.SuspectLimit <= 0 {
		cfg.SuspectLimit = 12
	}
	if cfg.CaseLimit <= 0 {
		cfg.CaseLimit = 12
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	return &Builder{
		src:      src,
		cfg:      cfg,
		suspects: expirable.NewLRU[string, []store.Suspect](4, nil, cfg.CacheTTL),
		cases:    expirable.NewLRU[string, []TimelineCase](64, nil, cfg.CacheTTL),
		log:      log.Sub("uicontext"),
	}
}

// Build derives the UI values and fetches both projections concurrently.
// A failing fetch is logged and its projection omitted; Build itself does
// not fail.
func (b *Builder) Build(ctx context.Context, ui UIContext) Snapshot {
	snap := Snapshot{UI: ui, Derived: Derive(ui)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		suspects, err := b.topSuspects(gctx)
		if err != nil {
			b.log.Warn().Err(err).Msg("suspect projection unavailable")
			return nil
		}
		snap.Data.SuspectsTop = suspects
		return nil
	})
	g.Go(func() error {
		cases, err := b.timelineCases(gctx, snap.Derived.City)
		if err != nil {
			b.log.Warn().Err(err).Str("city", snap.Derived.City).Msg("case projection unavailable")
			return nil
		}
		snap.Data.CasesTop = cases
		return nil
	})
	_ = g.Wait()
	return snap
}

func (b *Builder) topSuspects(ctx context.Context) ([]store.Suspect, error) {
	const key = "top"
	if v, ok := b.suspects.Get(key); ok {
		return v, nil
	}
	v, err := b.src.TopSuspects(ctx, b.cfg.SuspectLimit)
	if err != nil {
		return nil, err
	}
	b.suspects.Add(key, v)
	return v, nil
}

func (b *Builder) timelineCases(ctx context.Context, city string) ([]TimelineCase, error) {
	key := strings.ToLower(city)
	if v, ok := b.cases.Get(key); ok {
		return v, nil
	}
	all, err := b.src.CasesByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	v := SpreadTimeline(all, b.cfg.CaseLimit)
	b.cases.Add(key, v)
	return v, nil
}

// SpreadTimeline assigns each case (already in incident order) a slot in
// proportion to its position, then keeps at most limit cases evenly spaced
// across the timeline.
func SpreadTimeline(cases []store.Case, limit int) []TimelineCase {
	n := len(cases)
	if n == 0 || limit <= 0 {
		return []TimelineCase{}
	}

	placed := make([]TimelineCase, n)
	for i, c := range cases {
		placed[i] = TimelineCase{
			CaseID:        c.CaseID,
			CaseType:      c.CaseType,
			City:          c.City,
			State:         c.State,
			IncidentTime:  c.IncidentTime,
			MethodOfEntry: c.MethodOfEntry,
			Slot:          i * TimelineSlots / n,
		}
	}
	if n <= limit {
		return placed
	}

	out := make([]TimelineCase, limit)
	for i := range out {
		out[i] = placed[i*n/limit]
	}
	return out
}
