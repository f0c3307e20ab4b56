package session

import (
	"time"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/core/idgen"
	corelog "lanlink-core/internal/core/log"
)

// TunFdSource 提供已建立的 TUN 描述符
type TunFdSource interface {
	TunFd() (int, bool)
}

type options struct {
	logger          corelog.Logger
	monitorInterval time.Duration
	gamePorts       []int
	publicServers   []string
	findHostTimeout time.Duration
	tunSource       TunFdSource
	fullTunnel      bool
	hostnames       idgen.Generator
	now             func() time.Time
}

func defaultOptions() options {
	return options{
		logger:          corelog.Component("session"),
		monitorInterval: constants.MonitorInterval,
		gamePorts:       append([]int(nil), constants.DefaultGamePorts...),
		publicServers:   append([]string(nil), constants.PublicServers...),
		hostnames:       idgen.NewGuestHostnameGenerator(),
		now:             time.Now,
	}
}

// Option 管理器选项
type Option func(*options)

// WithLogger 指定日志
func WithLogger(l corelog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMonitorInterval 状态轮询间隔
func WithMonitorInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.monitorInterval = d
		}
	}
}

// WithGamePorts 需要转发的游戏端口
func WithGamePorts(ports []int) Option {
	return func(o *options) {
		if len(ports) > 0 {
			o.gamePorts = append([]int(nil), ports...)
		}
	}
}

// WithPublicServers 公共中继节点，传空切片表示不使用中继
func WithPublicServers(servers []string) Option {
	return func(o *options) {
		if servers != nil {
			o.publicServers = append([]string(nil), servers...)
		}
	}
}

// WithFindHostTimeout 访客寻找主机的超时，0 表示一直等待
func WithFindHostTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.findHostTimeout = d
		}
	}
}

// WithTunFdSource 启动实例后绑定 TUN 描述符
func WithTunFdSource(src TunFdSource) Option {
	return func(o *options) { o.tunSource = src }
}

// WithFullTunnel 关闭 no_tun，由 TUN 网卡承载流量
func WithFullTunnel(enabled bool) Option {
	return func(o *options) { o.fullTunnel = enabled }
}

// WithHostnameGenerator 访客主机名生成器
func WithHostnameGenerator(g idgen.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.hostnames = g
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
