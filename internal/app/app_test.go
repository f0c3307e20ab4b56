package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lanlink-core/internal/config"
	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/engine/enginetest"
	"lanlink-core/internal/session"
	"lanlink-core/internal/transport/tun"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	fd     int
	closed atomic.Bool
}

func (d *stubDevice) Name() string { return "lanlink0" }
func (d *stubDevice) Fd() int      { return d.fd }
func (d *stubDevice) Close() error {
	d.closed.Store(true)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.API.Listen = "127.0.0.1:0"
	cfg.Overlay.MonitorInterval = time.Hour
	return cfg
}

func build(t *testing.T, cfg *config.Config, eng *enginetest.Engine, est tun.Establisher) *App {
	t.Helper()
	a, err := NewBuilder(cfg, eng).
		WithLogger(corelog.NewNopLogger()).
		WithEstablisher(est).
		WithDefaults().
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_DefaultComponents(t *testing.T) {
	a := build(t, testConfig(), enginetest.New(), nil)

	assert.NotNil(t, a.Session())
	assert.NotNil(t, a.API())
	assert.Nil(t, a.Tun())
	assert.NotNil(t, metrics.GetGlobalMetrics())
}

func TestBuild_APIDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.API.Enabled = false
	a := build(t, cfg, enginetest.New(), nil)

	assert.Nil(t, a.API())
	assert.NotNil(t, a.Session())
}

func TestBuild_UnknownMetricsBackend(t *testing.T) {
	cfg := testConfig()
	cfg.API.Metrics = "statsd"

	_, err := NewBuilder(cfg, enginetest.New()).
		WithLogger(corelog.NewNopLogger()).
		WithDefaults().
		Build(context.Background())

	var compErr *ComponentError
	require.True(t, errors.As(err, &compErr))
	assert.Equal(t, "Metrics", compErr.Component)
}

func TestBuild_PrometheusExposesMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.API.Metrics = string(metrics.MetricsTypePrometheus)
	a := build(t, cfg, enginetest.New(), nil)

	require.NoError(t, a.API().Start())
	resp, err := http.Get("http://" + a.API().Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuild_HealthReportsEngine(t *testing.T) {
	a := build(t, testConfig(), enginetest.NewUnavailable("libeasytier_ffi.so not found"), nil)

	rec := httptest.NewRecorder()
	a.API().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, constants.PathHealth, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "libeasytier_ffi.so not found")
	assert.NotContains(t, rec.Body.String(), `"tun"`)
}

func TestApp_ConnectUsesConfiguredRoom(t *testing.T) {
	cfg := testConfig()
	cfg.Room.Name = "lan-party"
	cfg.Room.Secret = "pw"
	cfg.Room.Role = config.RoleHost
	eng := enginetest.New()
	a := build(t, cfg, eng, nil)

	req := a.ConnectOptions()
	assert.Equal(t, "lan-party", req.RoomName)
	assert.Equal(t, "pw", req.RoomSecret)
	assert.True(t, req.IsHost)

	require.NoError(t, a.Connect(context.Background(), req))
	assert.Equal(t, session.StateConnected, a.Session().State().Connection)

	_, err := a.Diagnose(context.Background(), nil)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidState))
}

func TestApp_FullTunnelBindsDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Overlay.FullTunnel = true
	dev := &stubDevice{fd: 42}
	established := 0
	est := tun.EstablisherFunc(func(ctx context.Context, c tun.DeviceConfig) (tun.Device, error) {
		established++
		return dev, nil
	})
	eng := enginetest.New()
	a := build(t, cfg, eng, est)
	require.NotNil(t, a.Tun())

	require.NoError(t, a.Connect(context.Background(), session.ConnectOptions{RoomName: "lan-party", IsHost: true}))
	fd, ok := eng.TunFd(cfg.Room.InstanceName)
	require.True(t, ok)
	assert.Equal(t, 42, fd)

	require.NoError(t, a.Session().Disconnect(context.Background()))
	require.NoError(t, a.Connect(context.Background(), session.ConnectOptions{RoomName: "lan-party", IsHost: true}))
	assert.Equal(t, 1, established, "device is reused across sessions")

	require.NoError(t, a.Close())
	assert.True(t, dev.closed.Load())
}

func TestAPIConnect_FullTunnelPreparesDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Overlay.FullTunnel = true
	established := 0
	est := tun.EstablisherFunc(func(ctx context.Context, c tun.DeviceConfig) (tun.Device, error) {
		established++
		return &stubDevice{fd: 42}, nil
	})
	eng := enginetest.New()
	a := build(t, cfg, eng, est)

	body := strings.NewReader(`{"room_name":"room1","is_host":true}`)
	rec := httptest.NewRecorder()
	a.API().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		constants.APIPrefix+constants.PathSessionConnect, body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, session.StateConnected, a.Session().State().Connection)
	assert.Equal(t, 1, established)
	fd, ok := eng.TunFd(cfg.Room.InstanceName)
	require.True(t, ok, "tun fd bound to the instance")
	assert.Equal(t, 42, fd)
}

func TestApp_PrepareTunRequiresFullTunnel(t *testing.T) {
	a := build(t, testConfig(), enginetest.New(), nil)
	_, err := a.PrepareTun(context.Background())
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidState))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := build(t, testConfig(), enginetest.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.API().Addr() != "" }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, a.IsClosed())
}
