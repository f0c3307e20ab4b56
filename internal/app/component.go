package app

import (
	"context"
	"fmt"
	"net/http"

	"lanlink-core/internal/api"
	"lanlink-core/internal/config"
	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/engine"
	"lanlink-core/internal/health"
	"lanlink-core/internal/session"
	"lanlink-core/internal/transport/tun"
)

// Component 运行时组件
// Initialize 从 deps 取依赖，完成后把产出写回 deps
type Component interface {
	Name() string
	Initialize(ctx context.Context, deps *Dependencies) error
}

// Dependencies 依赖容器
type Dependencies struct {
	Config *config.Config
	Engine engine.Engine
	Logger corelog.Logger

	Metrics        metrics.Metrics
	MetricsHandler http.Handler

	Establisher tun.Establisher
	Tun         *tun.Surface

	Session *session.Manager
	API     *api.Server

	// sessionOptions 由前置组件追加
	sessionOptions []session.Option
}

// ComponentError 组件初始化失败
type ComponentError struct {
	Component string
	Err       error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component %s initialization failed: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// ============================================================================
// MetricsComponent
// ============================================================================

// MetricsComponent 按配置创建指标后端并设为全局实例
type MetricsComponent struct{}

func (c *MetricsComponent) Name() string { return "Metrics" }

func (c *MetricsComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	m, err := metrics.NewMetricsFactory(ctx).CreateMetrics(metrics.MetricsType(deps.Config.API.Metrics))
	if err != nil {
		return err
	}
	if err := metrics.SetGlobalMetrics(m); err != nil {
		return err
	}
	deps.Metrics = m
	if pm, ok := m.(*metrics.PrometheusMetrics); ok {
		deps.MetricsHandler = pm.Handler()
	}
	deps.Logger.Infof("Metrics initialized: type=%s", deps.Config.API.Metrics)
	return nil
}

// ============================================================================
// TunComponent
// ============================================================================

// TunComponent 全隧道模式下创建网卡生命周期，描述符交给会话管理器绑定
type TunComponent struct{}

func (c *TunComponent) Name() string { return "Tun" }

func (c *TunComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if !deps.Config.Overlay.FullTunnel {
		return nil
	}
	est := deps.Establisher
	if est == nil {
		est = tun.NewEstablisher()
	}
	deps.Tun = tun.NewSurface(ctx, deps.Engine, est, deps.Logger.WithField("component", "tun"))
	deps.sessionOptions = append(deps.sessionOptions,
		session.WithTunFdSource(deps.Tun),
		session.WithFullTunnel(true),
	)
	return nil
}

// DeviceConfig 配置转为网卡参数
func DeviceConfig(cfg config.TunConfig) tun.DeviceConfig {
	return tun.DeviceConfig{
		Name:    cfg.Name,
		Address: cfg.Address,
		MTU:     cfg.MTU,
		Routes:  append([]string(nil), cfg.Routes...),
	}
}

// ============================================================================
// SessionComponent
// ============================================================================

// SessionComponent 会话管理器
type SessionComponent struct{}

func (c *SessionComponent) Name() string { return "Session" }

func (c *SessionComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	o := deps.Config.Overlay
	opts := []session.Option{
		session.WithLogger(deps.Logger.WithField("component", "session")),
		session.WithMonitorInterval(o.MonitorInterval),
		session.WithFindHostTimeout(o.FindHostTimeout),
		session.WithGamePorts(o.GamePorts),
		session.WithPublicServers(o.PublicServers),
	}
	opts = append(opts, deps.sessionOptions...)
	deps.Session = session.NewManager(ctx, deps.Engine, opts...)
	return nil
}

// ============================================================================
// APIComponent
// ============================================================================

// APIComponent 本地控制接口，只创建不监听
type APIComponent struct {
	// Diagnostics 为空时使用运行时自带的诊断
	Diagnostics api.DiagnosticsFunc
}

func (c *APIComponent) Name() string { return "API" }

func (c *APIComponent) Initialize(ctx context.Context, deps *Dependencies) error {
	if !deps.Config.API.Enabled {
		return nil
	}
	if deps.Session == nil {
		return fmt.Errorf("session component must be initialized first")
	}
	diag := c.Diagnostics
	if diag == nil {
		diag = func(ctx context.Context) []diagnostics.StepResult {
			return runDiagnostics(ctx, deps, nil)
		}
	}
	a := deps.Config.API
	deps.API = api.NewServer(ctx, api.Config{
		Health:         newHealthChecker(deps),
		Listen:         a.Listen,
		RateLimit:      a.RateLimit,
		Burst:          a.Burst,
		MetricsHandler: deps.MetricsHandler,
		Diagnostics:    diag,
		Logger:         deps.Logger.WithField("component", "api"),
	}, &sessionService{Manager: deps.Session, deps: deps})
	return nil
}

// sessionService 接口调用的连接同样先准备网卡
type sessionService struct {
	*session.Manager
	deps *Dependencies
}

func (s *sessionService) Connect(ctx context.Context, req session.ConnectOptions) error {
	return connectWithTun(ctx, s.deps, req)
}

func prepareTun(ctx context.Context, deps *Dependencies) (int, error) {
	if deps.Tun == nil {
		return -1, coreerrors.New(coreerrors.CodeInvalidState, "full tunnel mode is disabled")
	}
	return deps.Tun.InitOnly(ctx, DeviceConfig(deps.Config.Tun))
}

// connectWithTun 全隧道模式先建立网卡再加入房间
func connectWithTun(ctx context.Context, deps *Dependencies, req session.ConnectOptions) error {
	if deps.Session == nil {
		return coreerrors.New(coreerrors.CodeInvalidState, "session is not initialized")
	}
	if deps.Tun != nil {
		if _, err := prepareTun(ctx, deps); err != nil {
			return err
		}
	}
	return deps.Session.Connect(ctx, req)
}

func newHealthChecker(deps *Dependencies) *health.CompositeHealthChecker {
	checker := health.NewCompositeHealthChecker(constants.HealthCheckTimeout)
	checker.RegisterChecker("engine", health.NewEngineHealthChecker(deps.Engine))
	checker.RegisterChecker("session", health.NewSessionHealthChecker(deps.Session))
	if deps.Tun != nil {
		checker.RegisterChecker("tun", health.NewTunHealthChecker(deps.Tun, deps.Session))
	}
	return checker
}
