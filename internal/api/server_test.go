package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/engine/enginetest"
	"lanlink-core/internal/health"
	"lanlink-core/internal/session"
)

type testEnv struct {
	eng *enginetest.Engine
	mgr *session.Manager
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	eng := enginetest.New()
	mgr := session.NewManager(context.Background(), eng,
		session.WithLogger(corelog.NewNopLogger()),
		session.WithMonitorInterval(time.Hour))
	cfg.Logger = corelog.NewNopLogger()
	srv := NewServer(context.Background(), cfg, mgr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
		_ = mgr.Close()
	})
	return &testEnv{eng: eng, mgr: mgr, srv: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, ResponseData) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ResponseData
	if strings.HasPrefix(resp.Header.Get(constants.HTTPHeaderContentType), constants.ContentTypeJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func api(path string) string { return constants.APIPrefix + path }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, out := env.do(t, http.MethodGet, constants.PathHealth, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.NotEmpty(t, resp.Header.Get(constants.HTTPHeaderXRequestID))
	data := out.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "DISCONNECTED", data["state"])
	assert.Nil(t, data["components"])
}

func TestHealthReportsComponents(t *testing.T) {
	checker := health.NewCompositeHealthChecker(time.Second)
	env := newTestEnv(t, Config{Health: checker})
	checker.RegisterChecker("engine", health.NewEngineHealthChecker(env.eng))
	checker.RegisterChecker("session", health.NewSessionHealthChecker(env.mgr))

	resp, out := env.do(t, http.MethodGet, constants.PathHealth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := out.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Len(t, data["components"], 2)

	checker.RegisterChecker("engine", health.NewEngineHealthChecker(enginetest.NewUnavailable("library missing")))
	resp, out = env.do(t, http.MethodGet, constants.PathHealth, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	data = out.Data.(map[string]interface{})
	assert.Equal(t, "unhealthy", data["status"])
}

func TestWrongMethodIs405(t *testing.T) {
	env := newTestEnv(t, Config{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, api(constants.PathSessionConnect)},
		{http.MethodGet, api(constants.PathDiagnostics)},
		{http.MethodPost, api(constants.PathSession)},
		{http.MethodDelete, constants.PathHealth},
	}
	for _, tt := range tests {
		resp, _ := env.do(t, tt.method, tt.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "%s %s", tt.method, tt.path)
	}

	resp, _ := env.do(t, http.MethodGet, api("/nope"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnectAndDisconnect(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp, out := env.do(t, http.MethodPost, api(constants.PathSessionConnect),
		session.ConnectOptions{RoomName: "lan-party", RoomSecret: "pw", IsHost: true})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "CONNECTED", out.Data.(map[string]interface{})["connection_state"])

	_, out = env.do(t, http.MethodGet, api(constants.PathSession), nil)
	view := out.Data.(map[string]interface{})
	identity := view["identity"].(map[string]interface{})
	assert.Equal(t, "lan-party", identity["room_name"])
	assert.NotContains(t, identity, "room_secret")

	resp, out = env.do(t, http.MethodPost, api(constants.PathSessionConnect),
		session.ConnectOptions{RoomName: "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(coreerrors.CodeInvalidState), out.Code)

	resp, _ = env.do(t, http.MethodPost, api(constants.PathSessionLeave), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateDisconnected, env.mgr.State().Connection)
}

func TestConnect_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(*enginetest.Engine)
		wantStatus int
		wantCode   coreerrors.ErrorCode
	}{
		{"bad body", "not an object", nil, http.StatusBadRequest, coreerrors.CodeInvalidParam},
		{"missing room", session.ConnectOptions{}, nil, http.StatusBadRequest, coreerrors.CodeInvalidParam},
		{"start failed", session.ConnectOptions{RoomName: "r"}, func(e *enginetest.Engine) { e.FailRun("port in use") },
			http.StatusBadGateway, coreerrors.CodeStartFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			if tt.setup != nil {
				tt.setup(env.eng)
			}
			resp, out := env.do(t, http.MethodPost, api(constants.PathSessionConnect), tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.False(t, out.Success)
			assert.Equal(t, string(tt.wantCode), out.Code)
		})
	}
}

func TestDisconnect_StopFailureIsWarning(t *testing.T) {
	env := newTestEnv(t, Config{})
	require.NoError(t, env.mgr.Connect(context.Background(), session.ConnectOptions{RoomName: "r", IsHost: true}))
	env.eng.FailStop("busy")

	resp, out := env.do(t, http.MethodPost, api(constants.PathSessionLeave), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := out.Data.(map[string]interface{})
	assert.Contains(t, data["warning"], "busy")
}

func TestClearError(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.eng.FailParse("bad")
	_ = env.mgr.Connect(context.Background(), session.ConnectOptions{RoomName: "r"})
	require.Equal(t, session.StateError, env.mgr.State().Connection)

	resp, _ := env.do(t, http.MethodPost, api(constants.PathSessionClear), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateDisconnected, env.mgr.State().Connection)
}

func TestPeers_EmptyList(t *testing.T) {
	env := newTestEnv(t, Config{})
	_, out := env.do(t, http.MethodGet, api(constants.PathSessionPeers), nil)
	assert.Equal(t, []interface{}{}, out.Data)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{RateLimit: 0.001, Burst: 1})

	resp, _ := env.do(t, http.MethodPost, api(constants.PathSessionClear), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, out := env.do(t, http.MethodPost, api(constants.PathSessionClear), nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, string(coreerrors.CodeRateLimited), out.Code)

	// 查询接口不限流
	resp, _ = env.do(t, http.MethodGet, api(constants.PathSession), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, _ := env.do(t, http.MethodGet, api(constants.PathSessionConnect), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, _ := env.do(t, http.MethodGet, constants.PathMetrics, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env = newTestEnv(t, Config{MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("lanlink_session_state 1\n"))
	})})
	resp, _ = env.do(t, http.MethodGet, constants.PathMetrics, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDiagnostics(t *testing.T) {
	var called atomic.Int32
	env := newTestEnv(t, Config{Diagnostics: func(ctx context.Context) []diagnostics.StepResult {
		called.Add(1)
		return []diagnostics.StepResult{{Name: "Engine library check", Status: diagnostics.StatusSuccess}}
	}})

	resp, out := env.do(t, http.MethodPost, api(constants.PathDiagnostics), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out.Data, 1)
	assert.Equal(t, int32(1), called.Load())

	require.NoError(t, env.mgr.Connect(context.Background(), session.ConnectOptions{RoomName: "r", IsHost: true}))
	resp, _ = env.do(t, http.MethodPost, api(constants.PathDiagnostics), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int32(1), called.Load())
}

func TestDiagnostics_NotConfigured(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, out := env.do(t, http.MethodPost, api(constants.PathDiagnostics), nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, string(coreerrors.CodeNotSupported), out.Code)
}

func TestStream(t *testing.T) {
	env := newTestEnv(t, Config{})
	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + api(constants.PathSessionStream)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var st session.State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, session.StateDisconnected, st.Connection)

	require.NoError(t, env.mgr.Connect(context.Background(), session.ConnectOptions{RoomName: "r", IsHost: true}))
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, session.StateConnecting, st.Connection)
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, session.StateConnected, st.Connection)
}

func TestStream_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, Config{})
	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + api(constants.PathSessionStream)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStartAndAddr(t *testing.T) {
	eng := enginetest.New()
	mgr := session.NewManager(context.Background(), eng, session.WithLogger(corelog.NewNopLogger()))
	defer mgr.Close()

	srv := NewServer(context.Background(), Config{Listen: "127.0.0.1:0", Logger: corelog.NewNopLogger()}, mgr)
	defer srv.Close()
	assert.Empty(t, srv.Addr())

	require.NoError(t, srv.Start())
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + constants.PathHealth)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	busy := NewServer(context.Background(), Config{Listen: addr, Logger: corelog.NewNopLogger()}, mgr)
	defer busy.Close()
	assert.Error(t, busy.Start())
}
