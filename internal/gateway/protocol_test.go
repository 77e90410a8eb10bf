package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	frame, err := NewRequest("req-2", MethodEvidenceCard, EvidenceParams{PersonIDs: []string{"P1", "P2"}})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeRequest, frame.Type)
	assert.Equal(t, "req-2", frame.ID)
	assert.Equal(t, "evidence.card", frame.Method)
	assert.JSONEq(t, `{"personIds":["P1","P2"]}`, string(frame.Params))
}

func TestNewResponse(t *testing.T) {
	frame, err := NewResponse("req-1", map[string]string{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeResponse, frame.Type)
	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
	assert.Nil(t, frame.Error)
	assert.JSONEq(t, `{"status":"ok"}`, string(frame.Payload))
}

func TestNewResponse_Unmarshalable(t *testing.T) {
	_, err := NewResponse("req-1", make(chan int))
	assert.Error(t, err)
}

func TestNewErrorResponse(t *testing.T) {
	frame := NewErrorResponse("req-1", ErrorShape{Code: CodeTimeout, Message: "model timed out", Retryable: true})

	require.NotNil(t, frame.OK)
	assert.False(t, *frame.OK)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "timeout: model timed out", frame.Error.Error())

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"res","id":"req-1","ok":false,"error":{"code":"timeout","message":"model timed out","retryable":true}}`, string(data))
}

func TestNewEvent(t *testing.T) {
	frame, err := NewEvent(EventConnectChallenge, ChallengePayload{Nonce: "n", TS: 7})
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"connect.challenge","payload":{"nonce":"n","ts":7}}`, string(data))
}

func TestHelloOKWireShape(t *testing.T) {
	hello := HelloOK{
		Protocol: ProtocolVersion,
		Server:   ServerInfo{Version: "dev", ConnID: "c1"},
		Features: Features{Methods: []string{MethodAgentTurn}, Events: []string{}},
		Policy:   ServerPolicy{MaxPayload: maxPayload, MaxActions: 5},
	}
	data, err := json.Marshal(hello)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"protocol": 1,
		"server": {"version": "dev", "connId": "c1"},
		"features": {"methods": ["agent.turn"], "events": []},
		"policy": {"maxPayload": 1048576, "maxActions": 5}
	}`, string(data))
}

func TestDecodeParams(t *testing.T) {
	var p EvidenceParams
	require.NoError(t, Frame{Params: json.RawMessage(`{"personIds":["P1"]}`)}.DecodeParams(&p))
	assert.Equal(t, []string{"P1"}, p.PersonIDs)

	p = EvidenceParams{PersonIDs: []string{"kept"}}
	require.NoError(t, Frame{}.DecodeParams(&p))
	require.NoError(t, Frame{Params: json.RawMessage(`null`)}.DecodeParams(&p))
	assert.Equal(t, []string{"kept"}, p.PersonIDs)

	assert.Error(t, Frame{Params: json.RawMessage(`[1,2]`)}.DecodeParams(&p))
}

func TestFrameResult(t *testing.T) {
	ok, err := NewResponse("1", EvidenceParams{PersonIDs: []string{"P9"}})
	require.NoError(t, err)
	var p EvidenceParams
	require.NoError(t, ok.Result(&p))
	assert.Equal(t, []string{"P9"}, p.PersonIDs)
	require.NoError(t, ok.Result(nil))

	failed := NewErrorResponse("2", ErrorShape{Code: CodeUnavailable, Message: "no agent"})
	var shape *ErrorShape
	require.ErrorAs(t, failed.Result(&p), &shape)
	assert.Equal(t, CodeUnavailable, shape.Code)

	assert.Error(t, Frame{Type: FrameTypeResponse}.Result(nil), "neither ok nor error")
	assert.Error(t, Frame{Type: FrameTypeEvent}.Result(nil))
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		min, max int
		ok       bool
	}{
		{1, 1, true},
		{1, 3, true},
		{0, 0, true},
		{2, 3, false},
	}
	for _, tt := range tests {
		v, ok := ConnectParams{MinProtocol: tt.min, MaxProtocol: tt.max}.negotiate()
		assert.Equal(t, tt.ok, ok, "range %d-%d", tt.min, tt.max)
		if ok {
			assert.Equal(t, ProtocolVersion, v)
		}
	}
}
