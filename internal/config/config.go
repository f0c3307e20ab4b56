// Package config 客户端配置：YAML 文件 + 环境变量覆盖
package config

import (
	"time"

	"lanlink-core/internal/constants"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
)

// 房间角色
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Config 根配置
type Config struct {
	Log     corelog.Config `yaml:"log" json:"log"`
	Room    RoomConfig     `yaml:"room" json:"room"`
	Overlay OverlayConfig  `yaml:"overlay" json:"overlay"`
	API     APIConfig      `yaml:"api" json:"api"`
	Tun     TunConfig      `yaml:"tun" json:"tun"`
}

// RoomConfig 默认加入的房间
type RoomConfig struct {
	Name         string `yaml:"name" json:"name"`
	Secret       Secret `yaml:"secret" json:"secret"`
	Role         string `yaml:"role" json:"role"`
	InstanceName string `yaml:"instance_name" json:"instance_name"`
}

// IsHost 是否以主机身份加入
func (r RoomConfig) IsHost() bool {
	return r.Role == RoleHost
}

// OverlayConfig 引擎实例与监控参数
type OverlayConfig struct {
	MonitorInterval time.Duration `yaml:"monitor_interval" json:"monitor_interval"`
	// FindHostTimeout 访客等待主机的上限，0 表示不限
	FindHostTimeout time.Duration `yaml:"find_host_timeout" json:"find_host_timeout"`
	GamePorts       []int         `yaml:"game_ports" json:"game_ports"`
	PublicServers   []string      `yaml:"public_servers" json:"public_servers"`
	FullTunnel      bool          `yaml:"full_tunnel" json:"full_tunnel"`
}

// APIConfig 本地控制接口
type APIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	// RateLimit 修改类接口每秒请求数
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
	// Metrics 指标后端：memory | prometheus
	Metrics string `yaml:"metrics" json:"metrics"`
}

// TunConfig 全隧道模式的网卡参数
type TunConfig struct {
	Name    string   `yaml:"name" json:"name"`
	Address string   `yaml:"address" json:"address"`
	MTU     int      `yaml:"mtu" json:"mtu"`
	Routes  []string `yaml:"routes" json:"routes"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Log: corelog.Config{
			Level:  "info",
			Format: corelog.FormatText,
			Output: corelog.OutputStderr,
		},
		Room: RoomConfig{
			Role:         RoleGuest,
			InstanceName: constants.DefaultInstanceName,
		},
		Overlay: OverlayConfig{
			MonitorInterval: constants.MonitorInterval,
			GamePorts:       append([]int(nil), constants.DefaultGamePorts...),
			PublicServers:   append([]string(nil), constants.PublicServers...),
		},
		API: APIConfig{
			Enabled:   true,
			Listen:    constants.DefaultAPIListen,
			RateLimit: 5,
			Burst:     10,
			Metrics:   string(metrics.MetricsTypeMemory),
		},
		Tun: TunConfig{
			Name:    constants.DefaultTunName,
			Address: constants.HostCIDR,
			MTU:     constants.DefaultMTU,
			Routes:  []string{constants.RoomSubnet},
		},
	}
}

// applyDefaults 补齐文件中缺省的字段
func (c *Config) applyDefaults() {
	d := Default()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Log.Output
	}
	if c.Room.Role == "" {
		c.Room.Role = d.Room.Role
	}
	if c.Room.InstanceName == "" {
		c.Room.InstanceName = d.Room.InstanceName
	}
	if c.Overlay.MonitorInterval == 0 {
		c.Overlay.MonitorInterval = d.Overlay.MonitorInterval
	}
	if c.Overlay.GamePorts == nil {
		c.Overlay.GamePorts = d.Overlay.GamePorts
	}
	if c.Overlay.PublicServers == nil {
		c.Overlay.PublicServers = d.Overlay.PublicServers
	}
	if c.API.Listen == "" {
		c.API.Listen = d.API.Listen
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = d.API.RateLimit
	}
	if c.API.Burst == 0 {
		c.API.Burst = d.API.Burst
	}
	if c.API.Metrics == "" {
		c.API.Metrics = d.API.Metrics
	}
	if c.Tun.Name == "" {
		c.Tun.Name = d.Tun.Name
	}
	if c.Tun.Address == "" {
		c.Tun.Address = d.Tun.Address
	}
	if c.Tun.MTU == 0 {
		c.Tun.MTU = d.Tun.MTU
	}
	if c.Tun.Routes == nil {
		c.Tun.Routes = d.Tun.Routes
	}
}
