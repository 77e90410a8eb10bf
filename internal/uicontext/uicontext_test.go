package uicontext

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

type fakeSource struct {
	suspects     []store.Suspect
	cases        []store.Case
	suspectErr   error
	caseErr      error
	suspectCalls atomic.Int32
	caseCalls    atomic.Int32
	lastCity     atomic.Value
}

func (f *fakeSource) TopSuspects(ctx context.Context, limit int) ([]store.Suspect, error) {
	f.suspectCalls.Add(1)
	if f.suspectErr != nil {
		return nil, f.suspectErr
	}
	return f.suspects[:min(limit, len(f.suspects))], nil
}

func (f *fakeSource) CasesByCity(ctx context.Context, city string) ([]store.Case, error) {
	f.caseCalls.Add(1)
	f.lastCity.Store(city)
	if f.caseErr != nil {
		return nil, f.caseErr
	}
	return f.cases, nil
}

func makeCases(n int) []store.Case {
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	out := make([]store.Case, n)
	for i := range out {
		out[i] = store.Case{
			CaseID:       fmt.Sprintf("CASE_TN_%03d", i+1),
			City:         "Nashville",
			IncidentTime: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestParseSearch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"leading question mark", "?city=Nashville&hour=5", map[string]string{"city": "Nashville", "hour": "5"}},
		{"no question mark", "city=Memphis", map[string]string{"city": "Memphis"}},
		{"first value wins", "city=A&city=B", map[string]string{"city": "A"}},
		{"encoded", "?entity_ids=a%2Cb", map[string]string{"entity_ids": "a,b"}},
		{"malformed escape", "?city=%zz", map[string]string{}},
		{"semicolon", "a=1;b=2", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSearch(tt.in))
		})
	}
}

func TestDerive(t *testing.T) {
	d := Derive(UIContext{Path: "/heatmap", Search: "?city=%20Nashville%20&hour=-1&caseId=CASE_TN_005&entityIds=a,%20b,,c"})
	assert.Equal(t, "/heatmap", d.Path)
	assert.Equal(t, "Nashville", d.City)
	require.NotNil(t, d.Hour)
	assert.Equal(t, 71, *d.Hour)
	assert.Equal(t, "CASE_TN_005", d.CaseID)
	assert.Equal(t, []string{"a", "b", "c"}, d.EntityIDs)
}

func TestDerive_CaseKeyPrecedence(t *testing.T) {
	assert.Equal(t, "A", Derive(UIContext{Search: "case=C&caseId=B&case_id=A"}).CaseID)
	assert.Equal(t, "B", Derive(UIContext{Search: "case=C&caseId=B"}).CaseID)
	assert.Equal(t, "C", Derive(UIContext{Search: "case=C"}).CaseID)
	assert.Equal(t, "B", Derive(UIContext{Search: "case_id=%20&caseId=B"}).CaseID)
}

func TestDerive_BadHourOmitted(t *testing.T) {
	assert.Nil(t, Derive(UIContext{Search: "hour=noon"}).Hour)
	assert.Nil(t, Derive(UIContext{Search: ""}).Hour)
}

func TestDerive_EntityIDsCapped(t *testing.T) {
	ids := ""
	for i := 0; i < 80; i++ {
		ids += fmt.Sprintf("e%d,", i)
	}
	d := Derive(UIContext{Search: "entity_ids=" + ids})
	assert.Len(t, d.EntityIDs, MaxEntityIDs)
	assert.Equal(t, "e0", d.EntityIDs[0])
}

func TestNormalizeHour(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {71, 71}, {72, 0}, {73, 1}, {-1, 71}, {-72, 0}, {-145, 71}, {1000, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHour(tt.in), "hour %d", tt.in)
	}
}

func TestSpreadTimeline(t *testing.T) {
	assert.Empty(t, SpreadTimeline(nil, 12))

	few := SpreadTimeline(makeCases(4), 12)
	require.Len(t, few, 4)
	assert.Equal(t, []int{0, 18, 36, 54}, []int{few[0].Slot, few[1].Slot, few[2].Slot, few[3].Slot})

	many := SpreadTimeline(makeCases(30), 12)
	require.Len(t, many, 12)
	assert.Equal(t, "CASE_TN_001", many[0].CaseID)
	for i := 1; i < len(many); i++ {
		assert.Greater(t, many[i].Slot, many[i-1].Slot)
		assert.True(t, many[i].IncidentTime.After(many[i-1].IncidentTime))
	}
	for _, c := range many {
		assert.GreaterOrEqual(t, c.Slot, 0)
		assert.Less(t, c.Slot, TimelineSlots)
	}
}

func TestBuild(t *testing.T) {
	src := &fakeSource{
		suspects: []store.Suspect{{EntityID: "E_1", Rank: 1}, {EntityID: "E_2", Rank: 2}},
		cases:    makeCases(3),
	}
	b := NewBuilder(src, BuilderConfig{}, silentLog())

	snap := b.Build(context.Background(), UIContext{Path: "/heatmap", Search: "?city=Nashville"})
	assert.Equal(t, "/heatmap", snap.UI.Path)
	assert.Equal(t, "Nashville", snap.Derived.City)
	assert.Len(t, snap.Data.SuspectsTop, 2)
	assert.Len(t, snap.Data.CasesTop, 3)
	assert.Equal(t, "Nashville", src.lastCity.Load())
}

func TestBuild_FailureIsolated(t *testing.T) {
	src := &fakeSource{
		suspectErr: errors.New("warehouse offline"),
		cases:      makeCases(2),
	}
	b := NewBuilder(src, BuilderConfig{}, silentLog())

	snap := b.Build(context.Background(), UIContext{Path: "/"})
	assert.Nil(t, snap.Data.SuspectsTop)
	assert.Len(t, snap.Data.CasesTop, 2)

	src = &fakeSource{
		suspects: []store.Suspect{{EntityID: "E_1"}},
		caseErr:  errors.New("timeout"),
	}
	b = NewBuilder(src, BuilderConfig{}, silentLog())
	snap = b.Build(context.Background(), UIContext{Path: "/"})
	assert.Len(t, snap.Data.SuspectsTop, 1)
	assert.Nil(t, snap.Data.CasesTop)
}

func TestBuild_CachesByFilter(t *testing.T) {
	src := &fakeSource{
		suspects: []store.Suspect{{EntityID: "E_1"}},
		cases:    makeCases(2),
	}
	b := NewBuilder(src, BuilderConfig{CacheTTL: time.Minute}, silentLog())
	ctx := context.Background()

	b.Build(ctx, UIContext{Search: "city=Nashville"})
	b.Build(ctx, UIContext{Search: "city=nashville"})
	assert.Equal(t, int32(1), src.suspectCalls.Load())
	assert.Equal(t, int32(1), src.caseCalls.Load())

	b.Build(ctx, UIContext{Search: "city=Memphis"})
	assert.Equal(t, int32(1), src.suspectCalls.Load())
	assert.Equal(t, int32(2), src.caseCalls.Load())
}

func TestBuild_CacheExpires(t *testing.T) {
	src := &fakeSource{suspects: []store.Suspect{{EntityID: "E_1"}}}
	b := NewBuilder(src, BuilderConfig{CacheTTL: 20 * time.Millisecond}, silentLog())
	ctx := context.Background()

	b.Build(ctx, UIContext{})
	require.Eventually(t, func() bool {
		b.Build(ctx, UIContext{})
		return src.suspectCalls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestBuild_FailuresNotCached(t *testing.T) {
	src := &fakeSource{suspectErr: errors.New("boom")}
	b := NewBuilder(src, BuilderConfig{}, silentLog())
	ctx := context.Background()

	b.Build(ctx, UIContext{})
	b.Build(ctx, UIContext{})
	assert.Equal(t, int32(2), src.suspectCalls.Load())
}
