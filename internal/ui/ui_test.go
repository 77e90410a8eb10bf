package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

type fakeEvidence struct {
	calls [][]string
	err   error
}

func (f *fakeEvidence) EvidenceCard(_ context.Context, ids []string) (*store.EvidenceCard, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	return &store.EvidenceCard{Title: "CaseLink Evidence Card", Entities: ids}, nil
}

func ptr[T any](v T) *T { return &v }

var stateOpts = cmpopts.EquateEmpty()

func TestNewStateAndSearch(t *testing.T) {
	s := NewState("/heatmap", "?hour=5&city=Nashville")
	want := State{Path: "/heatmap", Params: map[string]string{"city": "Nashville", "hour": "5"}}
	if diff := cmp.Diff(want, s, stateOpts); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "?city=Nashville&hour=5", s.Search())
	assert.Equal(t, "/heatmap?city=Nashville&hour=5", s.URL())

	assert.Equal(t, "/", NewState("", "").URL())
	assert.Equal(t, "/cases", NewState("/cases", "%zz").URL())
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		start   State
		actions []action.Action
		want    State
	}{
		{
			name:    "navigate to new path replaces params",
			start:   NewState("/heatmap", "?city=Nashville&hour=4"),
			actions: []action.Action{action.Navigate{Path: "/graph-explorer", SearchParams: map[string]string{"case_id": "CASE_TN_001"}}},
			want:    State{Path: "/graph-explorer", Params: map[string]string{"case_id": "CASE_TN_001"}},
		},
		{
			name:    "navigate to same path merges params",
			start:   NewState("/heatmap", "?city=Nashville&hour=4"),
			actions: []action.Action{action.Navigate{Path: "/heatmap", SearchParams: map[string]string{"hour": "9"}}},
			want:    State{Path: "/heatmap", Params: map[string]string{"city": "Nashville", "hour": "9"}},
		},
		{
			name:  "set search params with deletion",
			start: NewState("/heatmap", "?city=Nashville&hour=4"),
			actions: []action.Action{action.SetSearchParams{SearchParams: map[string]*string{
				"hour": nil,
				"city": ptr("DC"),
			}}},
			want: State{Path: "/heatmap", Params: map[string]string{"city": "DC"}},
		},
		{
			name:    "set search params on empty query",
			start:   NewState("/", ""),
			actions: []action.Action{action.SetSearchParams{SearchParams: map[string]*string{"hour": ptr("12"), "city": nil}}},
			want:    State{Path: "/", Params: map[string]string{"hour": "12"}},
		},
		{
			name:    "select entities replaces selection",
			start:   State{Path: "/", Selected: []string{"E_1"}},
			actions: []action.Action{action.SelectEntities{EntityIDs: []string{"E_0142", "E_0077"}}},
			want:    State{Path: "/", Selected: []string{"E_0142", "E_0077"}},
		},
		{
			name:    "select nothing clears selection",
			start:   State{Path: "/", Selected: []string{"E_1"}},
			actions: []action.Action{action.SelectEntities{}},
			want:    State{Path: "/"},
		},
		{
			name:    "focus linked suspects opens graph",
			start:   NewState("/heatmap", "?city=Nashville"),
			actions: []action.Action{action.FocusLinkedSuspects{EntityIDs: []string{"E_0142", "E_0311"}}},
			want: State{
				Path:    "/graph-explorer",
				Params:  map[string]string{"entity_ids": "E_0142,E_0311"},
				Focused: []string{"E_0142", "E_0311"},
			},
		},
		{
			name:  "actions run in order",
			start: NewState("/", ""),
			actions: []action.Action{
				action.Navigate{Path: "/heatmap", SearchParams: map[string]string{"city": "Nashville"}},
				action.SetSearchParams{SearchParams: map[string]*string{"hour": ptr("3")}},
				action.Navigate{Path: "/heatmap", SearchParams: map[string]string{"city": "DC"}},
			},
			want: State{Path: "/heatmap", Params: map[string]string{"city": "DC", "hour": "3"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExecutor(nil, silentLog())
			res := ex.Apply(context.Background(), tt.start, tt.actions, "ignored")
			if diff := cmp.Diff(tt.want, res.State, stateOpts); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			assert.False(t, res.Fallback)
			assert.Len(t, res.Applied, len(tt.actions))
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	start := NewState("/heatmap", "?city=Nashville")
	start.Selected = []string{"E_1"}
	before := start.Clone()

	ex := NewExecutor(nil, silentLog())
	ex.Apply(context.Background(), start, []action.Action{
		action.SetSearchParams{SearchParams: map[string]*string{"city": nil}},
		action.SelectEntities{EntityIDs: []string{"E_2"}},
	}, "")

	if diff := cmp.Diff(before, start); diff != "" {
		t.Errorf("input state changed (-before +after):\n%s", diff)
	}
}

func TestApply_EvidenceCard(t *testing.T) {
	fe := &fakeEvidence{}
	ex := NewExecutor(fe, silentLog())

	res := ex.Apply(context.Background(), NewState("/heatmap", "?city=Nashville"), []action.Action{
		action.GenerateEvidenceCard{PersonIDs: []string{"E_0142", "E_0077"}},
	}, "")
	require.Len(t, fe.calls, 1)
	assert.Equal(t, []string{"E_0142", "E_0077"}, fe.calls[0])
	require.NotNil(t, res.State.Evidence)
	assert.Equal(t, "/heatmap", res.State.Path)
	assert.Empty(t, res.Errors)

	res = ex.Apply(context.Background(), NewState("/heatmap", ""), []action.Action{
		action.GenerateEvidenceCard{PersonIDs: []string{"E_0142"}, NavigateToEvidenceCard: ptr(true)},
	}, "")
	assert.Equal(t, "/evidence-card?entity_ids=E_0142", res.State.URL())

	res = ex.Apply(context.Background(), NewState("/heatmap", ""), []action.Action{
		action.GenerateEvidenceCard{PersonIDs: []string{"E_0142"}, NavigateToEvidenceCard: ptr(false)},
	}, "")
	assert.Equal(t, "/heatmap", res.State.URL())
}

func TestApply_EvidenceFailureContinues(t *testing.T) {
	fe := &fakeEvidence{err: errors.New("store offline")}
	ex := NewExecutor(fe, silentLog())

	res := ex.Apply(context.Background(), NewState("/", ""), []action.Action{
		action.GenerateEvidenceCard{PersonIDs: []string{"E_1"}, NavigateToEvidenceCard: ptr(true)},
		action.SelectEntities{EntityIDs: []string{"E_1"}},
	}, "")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "store offline")
	assert.Nil(t, res.State.Evidence)
	assert.Equal(t, "/evidence-card", res.State.Path)
	assert.Equal(t, []string{"E_1"}, res.State.Selected)
	assert.Len(t, res.Applied, 2)
}

func TestApply_FallbackOnlyWhenEmpty(t *testing.T) {
	ex := NewExecutor(nil, silentLog())

	res := ex.Apply(context.Background(), NewState("/", ""), nil, "Open case CASE_TN_005")
	assert.True(t, res.Fallback)
	assert.Equal(t, "/evidence-card?case_id=CASE_TN_005", res.State.URL())
	assert.Equal(t, []action.Action{action.Navigate{Path: "/evidence-card", SearchParams: map[string]string{"case_id": "CASE_TN_005"}}}, res.Applied)

	res = ex.Apply(context.Background(), NewState("/", ""), []action.Action{action.Navigate{Path: "/cases"}}, "Open case CASE_TN_005")
	assert.False(t, res.Fallback)
	assert.Equal(t, "/cases", res.State.URL())

	res = ex.Apply(context.Background(), NewState("/cases", ""), []action.Action{}, "hello there")
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Applied)
	assert.Equal(t, "/cases", res.State.URL())
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		params map[string]string
		want   []action.Action
	}{
		{
			name:   "case id",
			answer: "Open case CASE_TN_005",
			want:   []action.Action{action.Navigate{Path: "/evidence-card", SearchParams: map[string]string{"case_id": "CASE_TN_005"}}},
		},
		{
			name:   "lowercase case id",
			answer: "show me case_ga_002 please",
			want:   []action.Action{action.Navigate{Path: "/evidence-card", SearchParams: map[string]string{"case_id": "CASE_GA_002"}}},
		},
		{
			name:   "two letter prefix id",
			answer: "what about DC_BURGLARY_12?",
			want:   []action.Action{action.Navigate{Path: "/evidence-card", SearchParams: map[string]string{"case_id": "DC_BURGLARY_12"}}},
		},
		{
			name:   "focus with case in params",
			answer: "Focus on this case",
			params: map[string]string{"case_id": "CASE_TN_003", "city": "Nashville"},
			want:   []action.Action{action.Navigate{Path: "/graph-explorer", SearchParams: map[string]string{"case_id": "CASE_TN_003"}}},
		},
		{
			name:   "focus without case",
			answer: "focus on the case",
			params: map[string]string{"city": "Nashville"},
		},
		{
			name:   "explicit id wins over focus",
			answer: "focus on the case CASE_TN_008",
			params: map[string]string{"case_id": "CASE_TN_001"},
			want:   []action.Action{action.Navigate{Path: "/evidence-card", SearchParams: map[string]string{"case_id": "CASE_TN_008"}}},
		},
		{
			name:   "too many digits",
			answer: "CASE_TN_1234567",
		},
		{
			name:   "nothing actionable",
			answer: "what does the heatmap show?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.answer, tt.params)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("fallback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallback_OnlyAllowlisted(t *testing.T) {
	for _, answer := range []string{"Open case CASE_TN_005", "focus on this case", "CASE_X_1", "DC_ROBBERY_77"} {
		for _, a := range Fallback(answer, map[string]string{"case_id": "CASE_TN_001"}) {
			nav, ok := a.(action.Navigate)
			require.True(t, ok)
			assert.True(t, action.IsAllowedPath(nav.Path))
			for k := range nav.SearchParams {
				assert.True(t, action.IsAllowedQueryKey(k))
			}
		}
	}
}
