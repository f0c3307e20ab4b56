// Package app 组装会话、网卡、指标与控制接口
package app

import (
	"context"
	"fmt"

	"lanlink-core/internal/api"
	"lanlink-core/internal/config"
	"lanlink-core/internal/core/dispose"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/engine"
	"lanlink-core/internal/session"
	"lanlink-core/internal/transport/tun"

	"golang.org/x/sync/errgroup"
)

// Builder 运行时构建器
type Builder struct {
	config      *config.Config
	engine      engine.Engine
	logger      corelog.Logger
	establisher tun.Establisher
	components  []Component
}

// NewBuilder 创建构建器，eng 为 nil 时使用 engine.Default()
func NewBuilder(cfg *config.Config, eng engine.Engine) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	if eng == nil {
		eng = engine.Default()
	}
	return &Builder{
		config: cfg,
		engine: eng,
		logger: corelog.Default(),
	}
}

// With 添加组件
func (b *Builder) With(c Component) *Builder {
	b.components = append(b.components, c)
	return b
}

// WithDefaults 按依赖顺序添加全部组件
func (b *Builder) WithDefaults() *Builder {
	return b.
		With(&MetricsComponent{}).
		With(&TunComponent{}).
		With(&SessionComponent{}).
		With(&APIComponent{})
}

// WithLogger 替换日志
func (b *Builder) WithLogger(l corelog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithEstablisher 替换网卡创建方式，移动端传入 FdEstablisher
func (b *Builder) WithEstablisher(est tun.Establisher) *Builder {
	b.establisher = est
	return b
}

// Build 依次初始化组件，任一失败时关闭已创建的资源
func (b *Builder) Build(parentCtx context.Context) (*App, error) {
	dispose.SetLogger(disposeLogFunc(b.logger.WithField("component", "dispose")))
	a := &App{ManagerBase: dispose.NewManager("App", parentCtx)}
	deps := &Dependencies{
		Config:      b.config,
		Engine:      b.engine,
		Logger:      b.logger,
		Establisher: b.establisher,
	}
	a.deps = deps

	for _, c := range b.components {
		b.logger.Debugf("Initializing component: %s", c.Name())
		if err := c.Initialize(a.Ctx(), deps); err != nil {
			_ = a.Close()
			return nil, &ComponentError{Component: c.Name(), Err: err}
		}
	}

	// 逆序关闭：接口、会话、网卡
	a.AddCleanHandler(func() error {
		var first error
		keep := func(err error) {
			if err != nil && first == nil {
				first = err
			}
		}
		if deps.API != nil {
			keep(deps.API.CloseWithError())
		}
		if deps.Session != nil {
			keep(deps.Session.Close())
		}
		if deps.Tun != nil {
			keep(deps.Tun.CloseWithError())
		}
		if deps.Metrics != nil {
			keep(deps.Metrics.Close())
			metrics.ResetGlobalMetrics()
		}
		return first
	})
	return a, nil
}

// App 组装好的运行时
type App struct {
	*dispose.ManagerBase
	deps *Dependencies
}

// Config 运行配置
func (a *App) Config() *config.Config { return a.deps.Config }

// Engine 引擎
func (a *App) Engine() engine.Engine { return a.deps.Engine }

// Session 会话管理器，未添加 SessionComponent 时为 nil
func (a *App) Session() *session.Manager { return a.deps.Session }

// API 控制接口，未启用时为 nil
func (a *App) API() *api.Server { return a.deps.API }

// Tun 网卡生命周期，非全隧道模式为 nil
func (a *App) Tun() *tun.Surface { return a.deps.Tun }

// PrepareTun 全隧道模式下在连接前建立网卡，返回描述符
func (a *App) PrepareTun(ctx context.Context) (int, error) {
	return prepareTun(ctx, a.deps)
}

// ConnectOptions 配置中的默认房间
func (a *App) ConnectOptions() session.ConnectOptions {
	r := a.deps.Config.Room
	return session.ConnectOptions{
		RoomName:     r.Name,
		RoomSecret:   r.Secret.Value(),
		IsHost:       r.IsHost(),
		InstanceName: r.InstanceName,
	}
}

// Connect 全隧道模式先建立网卡再加入房间
func (a *App) Connect(ctx context.Context, req session.ConnectOptions) error {
	return connectWithTun(ctx, a.deps, req)
}

// Diagnose 运行诊断，会话活动时拒绝
func (a *App) Diagnose(ctx context.Context, onStep func(int, diagnostics.StepResult)) ([]diagnostics.StepResult, error) {
	if s := a.deps.Session; s != nil {
		if st := s.State().Connection; st != session.StateDisconnected && st != session.StateError {
			return nil, coreerrors.Newf(coreerrors.CodeInvalidState, "session is %s, disconnect first", st)
		}
	}
	return runDiagnostics(ctx, a.deps, onStep), nil
}

// Run 启动控制接口并阻塞到 ctx 取消或接口失败，返回前关闭运行时
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if a.deps.API != nil {
		if err := a.deps.API.Start(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-a.Ctx().Done():
		}
		return nil
	})
	if s := a.deps.Session; s != nil {
		g.Go(func() error {
			logStates(gctx, s, a.deps.Logger)
			return nil
		})
	}
	return g.Wait()
}

// Close 关闭运行时
func (a *App) Close() error {
	return a.ManagerBase.CloseWithError()
}

// logStates 把状态变化写入日志
func logStates(ctx context.Context, s *session.Manager, logger corelog.Logger) {
	for st := range s.Subscribe(ctx) {
		entry := logger.WithFields(map[string]interface{}{
			"state": st.Connection.String(),
			"peers": len(st.Peers),
		})
		if st.ErrorMessage != "" {
			entry.Warnf("Session state: %s (%s)", st.Connection, st.ErrorMessage)
			continue
		}
		entry.Infof("Session state: %s", st.Connection)
	}
}

func runDiagnostics(ctx context.Context, deps *Dependencies, onStep func(int, diagnostics.StepResult)) []diagnostics.StepResult {
	opts := diagnostics.DefaultOptions()
	if ports := deps.Config.Overlay.GamePorts; len(ports) > 0 {
		opts.GamePort = ports[0]
	}
	if servers := deps.Config.Overlay.PublicServers; len(servers) > 0 {
		opts.PublicServers = servers
	}
	opts.Logger = deps.Logger.WithField("component", "diagnostics")
	return diagnostics.Run(ctx, deps.Engine, opts, onStep)
}

// String 运行时摘要
func (a *App) String() string {
	c := a.deps.Config
	return fmt.Sprintf("room=%q role=%s api=%v full_tunnel=%v", c.Room.Name, c.Room.Role, c.API.Enabled, c.Overlay.FullTunnel)
}

// disposeLogFunc 资源清理日志转到 logger
func disposeLogFunc(l corelog.Logger) func(level string, format string, args ...interface{}) {
	return func(level string, format string, args ...interface{}) {
		switch level {
		case "error":
			l.Errorf(format, args...)
		case "warn":
			l.Warnf(format, args...)
		default:
			l.Debugf(format, args...)
		}
	}
}
