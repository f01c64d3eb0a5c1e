package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomi-sm6250/powerhal/internal/modeext"
	"github.com/xiaomi-sm6250/powerhal/internal/power"
	"github.com/xiaomi-sm6250/powerhal/internal/protocol"
)

type call struct {
	method string
	arg    interface{}
	flag   bool
}

type fakePower struct {
	mu    sync.Mutex
	calls []call
	ready bool
}

func (f *fakePower) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakePower) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakePower) Ready() bool             { return f.ready }
func (f *fakePower) SustainedPerfMode() bool { return false }
func (f *fakePower) UpdateHint(name string, enable bool) {
	f.record(call{"UpdateHint", name, enable})
}
func (f *fakePower) SetInteractive(interactive bool) {
	f.record(call{"SetInteractive", nil, interactive})
}
func (f *fakePower) PowerHintAsync(h power.Hint, data int32) {
	f.record(call{"PowerHintAsync", h, data != 0})
}
func (f *fakePower) PowerHintAsync12(h power.Hint, data int32) {
	f.record(call{"PowerHintAsync12", h, data != 0})
}
func (f *fakePower) PowerHintAsync13(h power.Hint, data int32) {
	f.record(call{"PowerHintAsync13", h, data != 0})
}
func (f *fakePower) SetFeature(feat power.Feature, activate bool) {
	f.record(call{"SetFeature", feat, activate})
}
func (f *fakePower) GetPlatformLowPowerStats() ([]power.PlatformSleepState, power.Status) {
	return []power.PlatformSleepState{}, power.StatusSuccess
}
func (f *fakePower) GetSubsystemLowPowerStats() ([]power.SubsystemStats, power.Status) {
	return []power.SubsystemStats{}, power.StatusSuccess
}

type fakeModes struct {
	supported map[modeext.Mode]bool
	set       []modeext.Mode
}

func (f *fakeModes) IsModeSupported(m modeext.Mode) bool { return f.supported[m] }
func (f *fakeModes) SetMode(m modeext.Mode, enabled bool) bool {
	if !f.supported[m] {
		return false
	}
	f.set = append(f.set, m)
	return true
}

func newTestServer() (*Server, *fakePower, *fakeModes) {
	p := &fakePower{ready: true}
	m := &fakeModes{supported: map[modeext.Mode]bool{
		modeext.ModeDoubleTapToWake: true,
		modeext.ModeLaunch:          true,
	}}
	return New(p, m, "/power/v1"), p, m
}

func request(t *testing.T, id, typ string, payload interface{}) protocol.Request {
	t.Helper()
	req := protocol.Request{ID: id, Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		req.Payload = raw
	}
	return req
}

func TestHandlePowerHintVersions(t *testing.T) {
	s, p, _ := newTestServer()

	tests := []struct {
		version string
		method  string
	}{
		{"1.0", "PowerHintAsync"},
		{"1.2", "PowerHintAsync12"},
		{"1.3", "PowerHintAsync13"},
		{"", "PowerHintAsync13"},
	}
	for _, tt := range tests {
		resp := s.Handle(request(t, "1", protocol.TypePowerHint, map[string]interface{}{
			"hint": "LAUNCH", "data": 1, "version": tt.version,
		}))
		require.True(t, resp.Success, "version %q", tt.version)
		require.Equal(t, "power_hint_result", resp.Type)
	}

	calls := p.Calls()
	require.Len(t, calls, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.method, calls[i].method)
		assert.Equal(t, power.HintLaunch, calls[i].arg)
		assert.True(t, calls[i].flag)
	}

	resp := s.Handle(request(t, "2", protocol.TypePowerHint, map[string]interface{}{
		"hint": "LAUNCH", "version": "2.0",
	}))
	assert.False(t, resp.Success)
}

func TestHandlePowerHintByNumber(t *testing.T) {
	s, p, _ := newTestServer()

	resp := s.Handle(request(t, "1", protocol.TypePowerHint, map[string]interface{}{"hint": 2, "data": 0}))
	require.True(t, resp.Success)
	require.Equal(t, power.HintInteraction, p.Calls()[0].arg)
}

func TestHandleRejectsBadRequests(t *testing.T) {
	s, p, _ := newTestServer()

	tests := []protocol.Request{
		{ID: "a", Type: "reboot"},
		{ID: "b", Type: protocol.TypePowerHint},
		request(t, "c", protocol.TypePowerHint, map[string]interface{}{"hint": "WARP_DRIVE"}),
		request(t, "d", protocol.TypeUpdateHint, map[string]interface{}{"enable": true}),
		request(t, "e", protocol.TypeSetMode, map[string]interface{}{"mode": "NOPE"}),
		{ID: "f", Type: protocol.TypeSetInteractive, Payload: json.RawMessage(`{"interactive":"yes"}`)},
	}
	for _, req := range tests {
		resp := s.Handle(req)
		assert.False(t, resp.Success, req.ID)
		assert.Equal(t, req.ID, resp.ID)

		var e protocol.ErrorPayload
		require.NoError(t, json.Unmarshal(resp.Payload, &e))
		assert.NotEmpty(t, e.Error, req.ID)
	}
	assert.Empty(t, p.Calls())
}

func TestHandleModes(t *testing.T) {
	s, _, m := newTestServer()

	resp := s.Handle(request(t, "1", protocol.TypeIsModeSupported, map[string]interface{}{"mode": "DOUBLE_TAP_TO_WAKE"}))
	require.True(t, resp.Success)
	var res protocol.ModeResult
	require.NoError(t, json.Unmarshal(resp.Payload, &res))
	assert.True(t, res.Supported)

	resp = s.Handle(request(t, "2", protocol.TypeSetMode, map[string]interface{}{"mode": "LAUNCH", "enabled": true}))
	require.True(t, resp.Success)
	assert.Equal(t, []modeext.Mode{modeext.ModeLaunch}, m.set)

	// Unsupported modes are acknowledged as unhandled.
	resp = s.Handle(request(t, "3", protocol.TypeSetMode, map[string]interface{}{"mode": "FIXED_PERFORMANCE", "enabled": true}))
	assert.False(t, resp.Success)
	res = protocol.ModeResult{}
	require.NoError(t, json.Unmarshal(resp.Payload, &res))
	assert.False(t, res.Handled)
}

func TestHandleStatusAndStats(t *testing.T) {
	s, _, _ := newTestServer()

	resp := s.Handle(protocol.Request{ID: "1", Type: protocol.TypeStatus})
	require.True(t, resp.Success)
	var st protocol.StatusResult
	require.NoError(t, json.Unmarshal(resp.Payload, &st))
	assert.True(t, st.Ready)

	resp = s.Handle(protocol.Request{ID: "2", Type: protocol.TypeGetPlatformLowPowerStats})
	require.True(t, resp.Success)
	assert.JSONEq(t, `{"status":0,"states":[]}`, string(resp.Payload))

	resp = s.Handle(protocol.Request{ID: "3", Type: protocol.TypeGetSubsystemLowPowerStats})
	require.True(t, resp.Success)
	assert.JSONEq(t, `{"status":0,"states":[]}`, string(resp.Payload))
}

func TestShutdownBeforeServe(t *testing.T) {
	s, _, _ := newTestServer()
	require.NoError(t, s.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept running after Shutdown")
	}
}

func TestServeStopsOnShutdown(t *testing.T) {
	s, _, _ := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	// The listener is already bound, so the handshake waits for Serve.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/power/v1", nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)
}

func TestWebSocketRoundTrip(t *testing.T) {
	s, p, _ := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/power/v1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	reqs := []protocol.Request{
		request(t, "1", protocol.TypeSetInteractive, map[string]interface{}{"interactive": false}),
		request(t, "2", protocol.TypeSetFeature, map[string]interface{}{"feature": "dt2w", "activate": true}),
		{ID: "3", Type: protocol.TypePing},
	}
	for _, req := range reqs {
		require.NoError(t, conn.WriteJSON(req))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for _, req := range reqs {
		var resp protocol.Response
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, req.ID, resp.ID)
		assert.Equal(t, protocol.ResultType(req.Type), resp.Type)
		assert.True(t, resp.Success)
	}

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, call{"SetInteractive", nil, false}, calls[0])
	assert.Equal(t, call{"SetFeature", power.FeatureDoubleTapToWake, true}, calls[1])
}
