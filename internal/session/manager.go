// Package session 覆盖网络会话管理
//
// Manager 驱动连接状态机：Connect 启动引擎实例，监控循环按固定间隔轮询实例状态，
// 访客在看到主机后从 FINDING_HOST 进入 CONNECTED。状态通过带回放的广播器发布。
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/core/dispose"
	coreerrors "lanlink-core/internal/core/errors"
	"lanlink-core/internal/core/events"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/engine"
	overlaycfg "lanlink-core/internal/overlay/config"
)

// Manager 单会话管理器，同一进程只应创建一个
type Manager struct {
	*dispose.ManagerBase

	engine engine.Engine
	opts   options
	logger corelog.Logger
	state  *events.Broadcaster[State]

	// opMu 串行化 Connect / Disconnect
	opMu sync.Mutex

	mu              sync.Mutex
	identity        *Identity
	instanceStarted bool
	findingSince    time.Time
	monitorCancel   context.CancelFunc
	monitorDone     chan struct{}

	hostFound atomic.Bool
}

// NewManager 创建会话管理器
func NewManager(parentCtx context.Context, eng engine.Engine, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		ManagerBase: dispose.NewManager("SessionManager", parentCtx),
		engine:      eng,
		opts:        o,
		logger:      o.logger,
		state:       events.NewBroadcaster(newState(StateDisconnected)),
	}
	m.AddCleanHandler(m.onClose)
	_ = metrics.SetSessionState(StateDisconnected.String(), StateNames())
	return m
}

func (m *Manager) onClose() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Disconnect(ctx)
	m.state.Close()
	return err
}

// State 当前发布的状态
func (m *Manager) State() State {
	return m.state.Current()
}

// Subscribe 订阅状态变化，先收到当前状态
func (m *Manager) Subscribe(ctx context.Context) <-chan State {
	return m.state.Subscribe(ctx)
}

// Identity 当前会话身份
func (m *Manager) Identity() (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return Identity{}, false
	}
	return *m.identity, true
}

// Connect 加入房间
//
// 主机启动实例后直接进入 CONNECTED，访客进入 FINDING_HOST 等待监控循环发现主机。
// 任一步失败都进入 ERROR 并返回错误，不会自动重试。
func (m *Manager) Connect(ctx context.Context, req ConnectOptions) error {
	if req.RoomName == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "room name is required")
	}
	if req.InstanceName == "" {
		req.InstanceName = constants.DefaultInstanceName
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.IsClosed() {
		return coreerrors.ErrResourceClosed
	}
	if cur := m.state.Current(); cur.Connection.busy() {
		return coreerrors.Newf(coreerrors.CodeInvalidState, "session is %s, disconnect first", cur.Connection)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	role := "guest"
	if req.IsHost {
		role = "host"
	}
	_ = metrics.IncConnectAttempt(role)
	logger := m.logger.WithFields(map[string]interface{}{
		"room":     req.RoomName,
		"instance": req.InstanceName,
		"role":     role,
	})

	if !m.engine.Available() {
		err := coreerrors.Newf(coreerrors.CodeUnavailable, "overlay engine unavailable: %s", m.engine.LoadError())
		logger.Errorf("Connect: %v", err)
		return m.fail(err)
	}

	m.stopMonitor(ctx)
	m.hostFound.Store(false)
	m.mu.Lock()
	m.identity = nil
	leftover := m.instanceStarted
	m.mu.Unlock()
	m.publish(newState(StateConnecting))

	// 上一次会话以 ERROR 结束时实例可能还在引擎里
	if leftover {
		if err := m.engine.StopAllInstances(); err != nil {
			logger.Warnf("Connect: failed to stop leftover instances: %v", err)
		} else {
			m.setInstanceStarted(false)
		}
	}

	hostname := constants.HostHostname
	if !req.IsHost {
		hostname = m.opts.hostnames.Generate()
	}

	cfgText, err := overlaycfg.Build(overlaycfg.Params{
		InstanceName:    req.InstanceName,
		RoomName:        req.RoomName,
		RoomSecret:      req.RoomSecret,
		IsHost:          req.IsHost,
		WithPortForward: !req.IsHost,
		GamePorts:       m.opts.gamePorts,
		PublicServers:   m.opts.publicServers,
		Hostname:        hostname,
		FullTunnel:      m.opts.fullTunnel,
	})
	if err != nil {
		logger.Errorf("Connect: build config failed: %v", err)
		return m.fail(err)
	}

	if err := m.engine.ParseConfig(cfgText); err != nil {
		logger.Errorf("Connect: engine rejected config: %v", err)
		return m.fail(withCode(err, coreerrors.CodeConfigRejected, "engine rejected config"))
	}

	if err := ctx.Err(); err != nil {
		logger.Infof("Connect: cancelled before starting instance")
		m.publish(newState(StateDisconnected))
		return err
	}

	if err := m.engine.RunNetworkInstance(cfgText); err != nil {
		logger.Errorf("Connect: failed to start instance: %v", err)
		return m.fail(withCode(err, coreerrors.CodeStartFailed, "failed to start network instance"))
	}
	m.setInstanceStarted(true)

	id := Identity{
		InstanceName: req.InstanceName,
		RoomName:     req.RoomName,
		RoomSecret:   req.RoomSecret,
		IsHost:       req.IsHost,
		Hostname:     hostname,
	}
	m.mu.Lock()
	m.identity = &id
	m.mu.Unlock()

	m.bindTunFd(logger, id.InstanceName)

	next := StateFindingHost
	if req.IsHost {
		next = StateConnected
	}
	m.publish(newState(next))
	logger.Infof("Connect: instance started as %s, state %s", hostname, next)

	m.startMonitor(id)
	return nil
}

// Disconnect 离开房间
// 引擎停止失败只记录并返回 STOP_FAILED，本地状态总是回到 DISCONNECTED
func (m *Manager) Disconnect(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	started := m.instanceStarted
	hasIdentity := m.identity != nil
	m.mu.Unlock()

	cur := m.state.Current()
	if cur.Connection == StateDisconnected && !started && !hasIdentity {
		return nil
	}

	m.stopMonitor(ctx)

	var stopErr error
	if started {
		if err := m.engine.StopAllInstances(); err != nil {
			stopErr = withCode(err, coreerrors.CodeStopFailed, "failed to stop network instances")
			_ = metrics.IncStopFailure()
			m.logger.Warnf("Disconnect: %v", stopErr)
		} else {
			m.setInstanceStarted(false)
		}
	}

	m.mu.Lock()
	m.identity = nil
	m.mu.Unlock()
	m.hostFound.Store(false)

	m.publish(newState(StateDisconnected))
	m.logger.Infof("Disconnect: session closed (was %s)", cur.Connection)
	return stopErr
}

// ClearError ERROR 回到 DISCONNECTED，其他状态不变
func (m *Manager) ClearError() {
	_, changed := m.update(func(cur State) (State, bool) {
		if cur.Connection != StateError {
			return cur, false
		}
		return newState(StateDisconnected), true
	})
	if changed {
		m.mu.Lock()
		m.identity = nil
		m.mu.Unlock()
		m.logger.Infof("ClearError: error cleared")
	}
}

// Close 断开并释放资源
func (m *Manager) Close() error {
	return m.ManagerBase.CloseWithError()
}

func (m *Manager) setInstanceStarted(v bool) {
	m.mu.Lock()
	m.instanceStarted = v
	m.mu.Unlock()
}

func (m *Manager) bindTunFd(logger corelog.Logger, instanceName string) {
	if m.opts.tunSource == nil {
		return
	}
	fd, ok := m.opts.tunSource.TunFd()
	if !ok {
		return
	}
	if err := m.engine.SetTunFd(instanceName, fd); err != nil {
		logger.Warnf("Connect: failed to bind tun fd %d: %v", fd, err)
		return
	}
	logger.Infof("Connect: bound tun fd %d", fd)
}

// fail 发布 ERROR 并返回 err
func (m *Manager) fail(err error) error {
	_ = metrics.IncConnectFailure(string(coreerrors.GetCode(err)))
	m.publish(errorState(coreerrors.Message(err)))
	return err
}

// publish 无条件发布
func (m *Manager) publish(s State) {
	m.update(func(State) (State, bool) { return s, true })
}

// update 在广播器锁内计算新状态，状态变化时记录日志与指标
func (m *Manager) update(fn func(cur State) (State, bool)) (State, bool) {
	var prev State
	next, changed := m.state.Update(func(cur State) (State, bool) {
		prev = cur
		return fn(cur)
	})
	if !changed {
		return next, false
	}
	if prev.Connection != next.Connection {
		m.logger.Debugf("state %s -> %s", prev.Connection, next.Connection)
		_ = metrics.SetSessionState(next.Connection.String(), StateNames())
	}
	if len(prev.Peers) != len(next.Peers) {
		_ = metrics.SetPeerCount(len(next.Peers))
	}
	return next, true
}

// withCode 保留已有错误码，否则包装为指定错误码
func withCode(err error, code coreerrors.ErrorCode, msg string) error {
	var ce *coreerrors.Error
	if coreerrors.As(err, &ce) {
		return err
	}
	return coreerrors.Wrap(err, code, msg)
}
