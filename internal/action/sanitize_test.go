package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode mirrors how the orchestrator hands model output to Sanitize.
func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func marshal(t *testing.T, actions []Action) string {
	t.Helper()
	data, err := json.Marshal(actions)
	require.NoError(t, err)
	return string(data)
}

func TestSanitize_NavigateDropsUnknownKey(t *testing.T) {
	raw := decode(t, `[{"type":"navigate","path":"/heatmap","searchParams":{"city":"Nashville","invalidKey":"x"}}]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 1)
	assert.Equal(t, Navigate{Path: "/heatmap", SearchParams: map[string]string{"city": "Nashville"}}, got[0])
	assert.JSONEq(t, `[{"type":"navigate","path":"/heatmap","searchParams":{"city":"Nashville"}}]`, marshal(t, got))
}

func TestSanitize_NavigateDisallowedPath(t *testing.T) {
	raw := decode(t, `[{"type":"navigate","path":"/admin"},{"type":"navigate","path":"/graph-explorer"}]`)

	got := Sanitize(raw, 5)
	assert.Equal(t, []Action{Navigate{Path: "/graph-explorer"}}, got)
	assert.JSONEq(t, `[{"type":"navigate","path":"/graph-explorer"}]`, marshal(t, got))
}

func TestSanitize_StopsAtMaxActions(t *testing.T) {
	raw := decode(t, `[
		{"type":"navigate","path":"/"},
		{"type":"navigate","path":"/heatmap"},
		{"type":"navigate","path":"/graph-explorer"},
		{"type":"navigate","path":"/evidence-card"},
		{"type":"navigate","path":"/cases"},
		{"type":"navigate","path":"/heatmap"},
		{"type":"navigate","path":"/"}
	]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "/cases", got[4].(Navigate).Path)
}

func TestSanitize_FailsClosedOnNonArray(t *testing.T) {
	for _, raw := range []any{
		nil,
		"navigate",
		3.0,
		true,
		map[string]any{"type": "navigate", "path": "/"},
	} {
		assert.Empty(t, Sanitize(raw, 5), "input %#v", raw)
	}
}

func TestSanitize_ZeroMaxActions(t *testing.T) {
	raw := decode(t, `[{"type":"navigate","path":"/"}]`)
	assert.Empty(t, Sanitize(raw, 0))
	assert.Empty(t, Sanitize(raw, -1))
}

func TestSanitize_DropsJunkEntries(t *testing.T) {
	raw := decode(t, `[
		null,
		1,
		"navigate",
		true,
		[{"type":"navigate","path":"/"}],
		{"path":"/"},
		{"type":"deleteEverything"},
		{"type":"NAVIGATE","path":"/"},
		{"type":"navigate","path":"/ "},
		{"type":"navigate","path":7},
		{"type":"navigate","path":"/cases"}
	]`)

	got := Sanitize(raw, 10)
	assert.Equal(t, []Action{Navigate{Path: "/cases"}}, got)
}

func TestSanitize_NavigateSearchParams(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Navigate
	}{
		{
			name: "non-string value dropped individually",
			in:   `{"type":"navigate","path":"/heatmap","searchParams":{"city":"Memphis","hour":12}}`,
			want: Navigate{Path: "/heatmap", SearchParams: map[string]string{"city": "Memphis"}},
		},
		{
			name: "all params dropped omits field",
			in:   `{"type":"navigate","path":"/heatmap","searchParams":{"hour":12,"other":"x"}}`,
			want: Navigate{Path: "/heatmap"},
		},
		{
			name: "non-object params ignored",
			in:   `{"type":"navigate","path":"/cases","searchParams":"city=Memphis"}`,
			want: Navigate{Path: "/cases"},
		},
		{
			name: "null value dropped",
			in:   `{"type":"navigate","path":"/cases","searchParams":{"city":null,"case_id":"CASE_TN_001"}}`,
			want: Navigate{Path: "/cases", SearchParams: map[string]string{"case_id": "CASE_TN_001"}},
		},
		{
			name: "extra fields ignored",
			in:   `{"type":"navigate","path":"/","url":"https://evil.example","script":"alert(1)"}`,
			want: Navigate{Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(decode(t, "["+tt.in+"]"), 5)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestSanitize_SetSearchParamsPreservesNull(t *testing.T) {
	raw := decode(t, `[{"type":"setSearchParams","searchParams":{"case_id":null,"city":"Nashville","hour":3,"bogus":"x"}}]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 1)
	ssp := got[0].(SetSearchParams)
	require.Len(t, ssp.SearchParams, 2)

	v, ok := ssp.SearchParams["case_id"]
	assert.True(t, ok)
	assert.Nil(t, v)
	require.NotNil(t, ssp.SearchParams["city"])
	assert.Equal(t, "Nashville", *ssp.SearchParams["city"])

	assert.JSONEq(t, `[{"type":"setSearchParams","searchParams":{"case_id":null,"city":"Nashville"}}]`, marshal(t, got))
}

func TestSanitize_SetSearchParamsRequiresParams(t *testing.T) {
	raw := decode(t, `[
		{"type":"setSearchParams"},
		{"type":"setSearchParams","searchParams":[]},
		{"type":"setSearchParams","searchParams":{"bogus":"x"}}
	]`)
	assert.Empty(t, Sanitize(raw, 5))
}

func TestSanitize_SelectEntities(t *testing.T) {
	raw := decode(t, `[
		{"type":"selectEntities","entityIds":["p1"," ",2,null,"  p2  ",""]},
		{"type":"selectEntities","entityIds":"p1"},
		{"type":"selectEntities"},
		{"type":"selectEntities","entityIds":[]}
	]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 2)
	assert.Equal(t, SelectEntities{EntityIDs: []string{"p1", "  p2  "}}, got[0], "ids are not rewritten")
	assert.Equal(t, SelectEntities{EntityIDs: []string{}}, got[1])
}

func TestSanitize_IDListsCapped(t *testing.T) {
	ids := make([]any, 80)
	for i := range ids {
		ids[i] = "id"
	}
	raw := []any{
		map[string]any{"type": "selectEntities", "entityIds": ids},
		map[string]any{"type": "generateEvidenceCard", "personIds": ids},
		map[string]any{"type": "focusLinkedSuspects", "entityIds": ids},
	}

	got := Sanitize(raw, 5)
	require.Len(t, got, 3)
	assert.Len(t, got[0].(SelectEntities).EntityIDs, MaxIDs)
	assert.Len(t, got[1].(GenerateEvidenceCard).PersonIDs, MaxIDs)
	assert.Len(t, got[2].(FocusLinkedSuspects).EntityIDs, MaxIDs)
}

func TestSanitize_GenerateEvidenceCard(t *testing.T) {
	raw := decode(t, `[
		{"type":"generateEvidenceCard","personIds":["p1","p2"],"navigateToEvidenceCard":true},
		{"type":"generateEvidenceCard","personIds":["p3"],"navigateToEvidenceCard":"yes"},
		{"type":"generateEvidenceCard","personIds":[" ",4]},
		{"type":"generateEvidenceCard"}
	]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 2)

	first := got[0].(GenerateEvidenceCard)
	assert.Equal(t, []string{"p1", "p2"}, first.PersonIDs)
	require.NotNil(t, first.NavigateToEvidenceCard)
	assert.True(t, *first.NavigateToEvidenceCard)

	second := got[1].(GenerateEvidenceCard)
	assert.Equal(t, []string{"p3"}, second.PersonIDs)
	assert.Nil(t, second.NavigateToEvidenceCard)

	assert.JSONEq(t, `[
		{"type":"generateEvidenceCard","personIds":["p1","p2"],"navigateToEvidenceCard":true},
		{"type":"generateEvidenceCard","personIds":["p3"]}
	]`, marshal(t, got))
}

func TestSanitize_EmptyIDLists(t *testing.T) {
	raw := decode(t, `[
		{"type":"generateEvidenceCard","personIds":[]},
		{"type":"selectEntities","entityIds":[]},
		{"type":"generateEvidenceCard","personIds":["  ",""]}
	]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 1, "an empty selection clears state; an empty card is dropped")
	assert.Equal(t, SelectEntities{EntityIDs: []string{}}, got[0])
}

func TestSanitize_IDsKeptVerbatim(t *testing.T) {
	raw := decode(t, `[{"type":"generateEvidenceCard","personIds":["  E_1  ","E_2"]}]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"  E_1  ", "E_2"}, got[0].(GenerateEvidenceCard).PersonIDs)
}

func TestSanitize_FocusLinkedSuspects(t *testing.T) {
	raw := decode(t, `[
		{"type":"focusLinkedSuspects","entityIds":["p1"]},
		{"type":"focusLinkedSuspects","entityIds":[]},
		{"type":"focusLinkedSuspects","entityIds":"p1"}
	]`)

	got := Sanitize(raw, 5)
	assert.Equal(t, []Action{FocusLinkedSuspects{EntityIDs: []string{"p1"}}}, got)
}

func TestSanitize_PreservesOrderAcrossTypes(t *testing.T) {
	raw := decode(t, `[
		{"type":"selectEntities","entityIds":["a"]},
		{"type":"navigate","path":"/graph-explorer"},
		{"type":"bogus"},
		{"type":"setSearchParams","searchParams":{"hour":"4"}}
	]`)

	got := Sanitize(raw, 5)
	require.Len(t, got, 3)
	assert.Equal(t, TypeSelectEntities, got[0].Type())
	assert.Equal(t, TypeNavigate, got[1].Type())
	assert.Equal(t, TypeSetSearchParams, got[2].Type())
}

func TestDecode(t *testing.T) {
	got := Decode([]byte(`[{"type":"navigate","path":"/cases"},{"type":"navigate","path":"/admin"}]`), 5)
	assert.Equal(t, []Action{Navigate{Path: "/cases"}}, got)

	assert.Empty(t, Decode([]byte(`not json`), 5))
	assert.Empty(t, Decode([]byte(`{"type":"navigate","path":"/"}`), 5))
}

func TestDecodeRoundTripsMarshaledActions(t *testing.T) {
	yes := true
	hour := "5"
	in := []Action{
		Navigate{Path: "/heatmap", SearchParams: map[string]string{"city": "Nashville"}},
		SetSearchParams{SearchParams: map[string]*string{"hour": &hour, "case_id": nil}},
		SelectEntities{EntityIDs: []string{"e1"}},
		GenerateEvidenceCard{PersonIDs: []string{"p1"}, NavigateToEvidenceCard: &yes},
		FocusLinkedSuspects{EntityIDs: []string{"e2"}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	assert.Equal(t, in, Decode(data, 10))
}

func TestNavigateTo(t *testing.T) {
	n, ok := NavigateTo("/evidence-card", map[string]string{"case_id": "CASE_TN_005"})
	require.True(t, ok)
	assert.Equal(t, "CASE_TN_005", n.SearchParams["case_id"])

	_, ok = NavigateTo("/admin", nil)
	assert.False(t, ok)

	_, ok = NavigateTo("/cases", map[string]string{"token": "x"})
	assert.False(t, ok)

	n, ok = NavigateTo("/", nil)
	require.True(t, ok)
	assert.Nil(t, n.SearchParams)
}
