// Package mobile gomobile 绑定，供 Android 界面调用
// 导出方法只使用 gomobile 支持的类型，错误以字符串返回，成功为空串
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"lanlink-core/internal/app"
	"lanlink-core/internal/config"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/engine"
	"lanlink-core/internal/session"
	"lanlink-core/internal/transport/tun"
)

// vpnDeviceName VpnService 网卡在日志中的名字
const vpnDeviceName = "vpn"

// LanLinkClient Android 可调用的会话封装
type LanLinkClient struct {
	ctx     context.Context
	cancel  context.CancelFunc
	app     *app.App
	initErr string

	mu            sync.RWMutex
	eventCallback EventCallback
	tunFd         int
}

// NewClient 按默认配置创建客户端
func NewClient() *LanLinkClient {
	return NewClientWithOptions(&Options{})
}

// NewClientWithOptions 创建客户端，opts 为 nil 时使用默认值
func NewClientWithOptions(opts *Options) *LanLinkClient {
	return newClient(opts, engine.Default())
}

func newClient(opts *Options, eng engine.Engine) *LanLinkClient {
	if opts == nil {
		opts = &Options{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LanLinkClient{ctx: ctx, cancel: cancel, tunFd: -1}

	cfg, err := buildConfig(opts)
	if err == nil {
		_, err = corelog.Setup(cfg.Log)
	}
	if err == nil {
		c.app, err = app.NewBuilder(cfg, eng).
			WithLogger(corelog.Component("mobile")).
			WithEstablisher(tun.EstablisherFunc(c.establish)).
			WithDefaults().
			Build(ctx)
	}
	if err != nil {
		c.initErr = err.Error()
		return c
	}

	go c.forwardEvents(c.app.Session().Subscribe(ctx))
	return c
}

func buildConfig(opts *Options) (*config.Config, error) {
	cfg := config.Default()
	cfg.API.Enabled = false
	cfg.Overlay.FullTunnel = opts.FullTunnel
	if opts.InstanceName != "" {
		cfg.Room.InstanceName = opts.InstanceName
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.GamePorts != "" {
		ports, err := parsePorts(opts.GamePorts)
		if err != nil {
			return nil, err
		}
		cfg.Overlay.GamePorts = ports
	}
	if opts.PublicServers != "" {
		cfg.Overlay.PublicServers = splitList(opts.PublicServers)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range splitList(s) {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid game port %q", part)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// establish 使用 AttachTunFd 交进来的描述符
func (c *LanLinkClient) establish(ctx context.Context, cfg tun.DeviceConfig) (tun.Device, error) {
	c.mu.RLock()
	fd := c.tunFd
	c.mu.RUnlock()
	if fd < 0 {
		return nil, coreerrors.New(coreerrors.CodeTunError, "tun fd not attached, call AttachTunFd first")
	}
	return tun.NewFdEstablisher(fd, vpnDeviceName).Establish(ctx, cfg)
}

// SetEventCallback 设置事件回调，设置后立即收到一次当前状态
func (c *LanLinkClient) SetEventCallback(callback EventCallback) {
	c.mu.Lock()
	c.eventCallback = callback
	c.mu.Unlock()

	if callback != nil && c.app != nil {
		st := c.app.Session().State()
		callback.OnStateChanged(st.Connection.String(), st.VirtualAddress)
	}
}

// AttachTunFd 交入 VpnService 建立的网卡描述符，所有权随之转移
// 会话活动时不能替换
func (c *LanLinkClient) AttachTunFd(fd int) string {
	if c.initErr != "" {
		return c.initErr
	}
	surface := c.app.Tun()
	if surface == nil {
		return "full tunnel mode is disabled"
	}
	if fd < 0 {
		return fmt.Sprintf("invalid tun fd %d", fd)
	}

	if cur, ok := surface.TunFd(); ok {
		if cur == fd {
			return ""
		}
		if st := c.app.Session().State().Connection; st != session.StateDisconnected && st != session.StateError {
			return fmt.Sprintf("session is %s, disconnect before replacing the tun fd", st)
		}
		if err := surface.Stop(); err != nil {
			corelog.Warnf("AttachTunFd: failed to release previous device: %v", err)
		}
	}

	c.mu.Lock()
	c.tunFd = fd
	c.mu.Unlock()

	if _, err := c.app.PrepareTun(c.ctx); err != nil {
		c.mu.Lock()
		c.tunFd = -1
		c.mu.Unlock()
		return err.Error()
	}
	return ""
}

// Connect 加入房间，阻塞到实例启动
func (c *LanLinkClient) Connect(roomName, roomSecret string, isHost bool) string {
	if c.initErr != "" {
		return c.initErr
	}
	req := c.app.ConnectOptions()
	req.RoomName = roomName
	req.RoomSecret = roomSecret
	req.IsHost = isHost
	if err := c.app.Connect(c.ctx, req); err != nil {
		return err.Error()
	}
	return ""
}

// Disconnect 离开房间，引擎停止失败时本地状态仍会复位
func (c *LanLinkClient) Disconnect() string {
	if c.initErr != "" {
		return c.initErr
	}
	if err := c.app.Session().Disconnect(c.ctx); err != nil {
		return err.Error()
	}
	return ""
}

// ClearError ERROR 状态回到 DISCONNECTED
func (c *LanLinkClient) ClearError() {
	if c.app != nil {
		c.app.Session().ClearError()
	}
}

// GetStatus 当前状态快照
func (c *LanLinkClient) GetStatus() *SessionStatus {
	if c.initErr != "" {
		return &SessionStatus{State: StateError, ErrorMessage: c.initErr}
	}
	st := c.app.Session().State()
	out := &SessionStatus{
		State:          st.Connection.String(),
		VirtualAddress: st.VirtualAddress,
		PeerCount:      len(st.Peers),
		ErrorMessage:   st.ErrorMessage,
	}
	if id, ok := c.app.Session().Identity(); ok {
		out.RoomName = id.RoomName
		out.Hostname = id.Hostname
		out.IsHost = id.IsHost
	}
	return out
}

// GetPeersJSON 成员列表 JSON，无成员时为 "[]"
func (c *LanLinkClient) GetPeersJSON() string {
	if c.app == nil {
		return "[]"
	}
	return peersJSON(c.app.Session().State())
}

// RunDiagnostics 运行诊断并返回步骤结果 JSON，失败时返回空串并回调 OnError
func (c *LanLinkClient) RunDiagnostics() string {
	if c.initErr != "" {
		c.notifyError(c.initErr)
		return ""
	}
	results, err := c.app.Diagnose(c.ctx, nil)
	if err != nil {
		c.notifyError(err.Error())
		return ""
	}
	data, err := json.Marshal(results)
	if err != nil {
		c.notifyError(err.Error())
		return ""
	}
	return string(data)
}

// Close 断开并释放资源，之后客户端不可再用
func (c *LanLinkClient) Close() {
	if c.app != nil {
		_ = c.app.Close()
	}
	c.cancel()
}

// forwardEvents 把状态变化转成回调
func (c *LanLinkClient) forwardEvents(ch <-chan session.State) {
	var last session.State
	first := true
	for st := range ch {
		if first || st.Connection != last.Connection || st.VirtualAddress != last.VirtualAddress {
			c.notifyStateChanged(st)
		}
		if !first && !slices.Equal(st.Peers, last.Peers) {
			c.notifyPeersUpdated(st)
		}
		if st.Connection == session.StateError && (first || last.Connection != session.StateError) {
			c.notifyError(st.ErrorMessage)
		}
		first = false
		last = st
	}
}

func peersJSON(st session.State) string {
	data, err := json.Marshal(st.Peers)
	if err != nil || st.Peers == nil {
		return "[]"
	}
	return string(data)
}

func (c *LanLinkClient) callback() EventCallback {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eventCallback
}

func (c *LanLinkClient) notifyStateChanged(st session.State) {
	if cb := c.callback(); cb != nil {
		cb.OnStateChanged(st.Connection.String(), st.VirtualAddress)
	}
}

func (c *LanLinkClient) notifyPeersUpdated(st session.State) {
	if cb := c.callback(); cb != nil {
		cb.OnPeersUpdated(peersJSON(st))
	}
}

func (c *LanLinkClient) notifyError(errMsg string) {
	if cb := c.callback(); cb != nil {
		cb.OnError(errMsg)
	}
}
