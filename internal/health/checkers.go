package health

import (
	"context"
	"fmt"
	"time"

	"lanlink-core/internal/engine"
	"lanlink-core/internal/session"
)

// EngineHealthChecker 引擎库是否可用
type EngineHealthChecker struct {
	engine engine.Engine
}

// NewEngineHealthChecker 创建引擎检查器
func NewEngineHealthChecker(eng engine.Engine) *EngineHealthChecker {
	return &EngineHealthChecker{engine: eng}
}

func (c *EngineHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	h := &ComponentHealth{Name: "engine", Status: ComponentStatusHealthy, LastCheck: time.Now()}
	if c.engine == nil {
		h.Status = ComponentStatusUnhealthy
		h.Message = "engine not configured"
		return h, nil
	}
	if !c.engine.Available() {
		h.Status = ComponentStatusUnhealthy
		h.Message = c.engine.LoadError()
	}
	return h, nil
}

// SessionStateProvider 会话状态来源
type SessionStateProvider interface {
	State() session.State
}

// SessionHealthChecker 会话处于 ERROR 时降级
type SessionHealthChecker struct {
	session SessionStateProvider
}

// NewSessionHealthChecker 创建会话检查器
func NewSessionHealthChecker(s SessionStateProvider) *SessionHealthChecker {
	return &SessionHealthChecker{session: s}
}

func (c *SessionHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	h := &ComponentHealth{Name: "session", Status: ComponentStatusHealthy, LastCheck: time.Now()}
	if c.session == nil {
		h.Status = ComponentStatusDegraded
		h.Message = "session manager not configured"
		return h, nil
	}

	st := c.session.State()
	switch st.Connection {
	case session.StateError:
		h.Status = ComponentStatusDegraded
		h.Message = st.ErrorMessage
	case session.StateConnected, session.StateFindingHost:
		h.Message = fmt.Sprintf("%s, %d peer(s)", st.Connection, len(st.Peers))
	default:
		h.Message = st.Connection.String()
	}
	return h, nil
}

// TunFdProvider 网卡描述符来源
type TunFdProvider interface {
	TunFd() (int, bool)
}

// TunHealthChecker 全隧道模式下会话活动但没有网卡时降级
type TunHealthChecker struct {
	tun     TunFdProvider
	session SessionStateProvider
}

// NewTunHealthChecker 创建网卡检查器
func NewTunHealthChecker(tun TunFdProvider, s SessionStateProvider) *TunHealthChecker {
	return &TunHealthChecker{tun: tun, session: s}
}

func (c *TunHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	h := &ComponentHealth{Name: "tun", Status: ComponentStatusHealthy, LastCheck: time.Now()}
	fd, ok := c.tun.TunFd()
	if ok {
		h.Message = fmt.Sprintf("fd %d", fd)
		return h, nil
	}
	h.Message = "no device"
	if c.session != nil {
		if st := c.session.State().Connection; st == session.StateConnected || st == session.StateFindingHost {
			h.Status = ComponentStatusDegraded
			h.Message = "session active without tun device"
		}
	}
	return h, nil
}
