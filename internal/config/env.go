package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	corelog "lanlink-core/internal/core/log"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "LANLINK"

// envSource 环境变量覆盖文件配置，解析失败的值忽略并告警
type envSource struct {
	prefix string
	lookup func(string) (string, bool)
}

// ApplyEnv 用 LANLINK_* 环境变量覆盖配置
func ApplyEnv(cfg *Config) {
	envSource{prefix: EnvPrefix, lookup: os.LookupEnv}.loadInto(cfg)
}

func (s envSource) loadInto(cfg *Config) {
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_OUTPUT", &cfg.Log.Output)
	s.loadString("LOG_FILE", &cfg.Log.File)

	s.loadString("ROOM_NAME", &cfg.Room.Name)
	if v, ok := s.get("ROOM_SECRET"); ok {
		cfg.Room.Secret = Secret(v)
	}
	s.loadString("ROOM_ROLE", &cfg.Room.Role)
	s.loadString("ROOM_INSTANCE_NAME", &cfg.Room.InstanceName)

	s.loadDuration("OVERLAY_MONITOR_INTERVAL", &cfg.Overlay.MonitorInterval)
	s.loadDuration("OVERLAY_FIND_HOST_TIMEOUT", &cfg.Overlay.FindHostTimeout)
	s.loadInts("OVERLAY_GAME_PORTS", &cfg.Overlay.GamePorts)
	s.loadStrings("OVERLAY_PUBLIC_SERVERS", &cfg.Overlay.PublicServers)
	s.loadBool("OVERLAY_FULL_TUNNEL", &cfg.Overlay.FullTunnel)

	s.loadBool("API_ENABLED", &cfg.API.Enabled)
	s.loadString("API_LISTEN", &cfg.API.Listen)
	s.loadString("API_METRICS", &cfg.API.Metrics)

	s.loadString("TUN_NAME", &cfg.Tun.Name)
	s.loadString("TUN_ADDRESS", &cfg.Tun.Address)
	s.loadInt("TUN_MTU", &cfg.Tun.MTU)
}

func (s envSource) get(key string) (string, bool) {
	v, ok := s.lookup(s.prefix + "_" + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s envSource) loadString(key string, target *string) {
	if v, ok := s.get(key); ok {
		*target = v
	}
}

func (s envSource) loadBool(key string, target *bool) {
	if v, ok := s.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			corelog.Warnf("config: ignoring %s_%s=%q: %v", s.prefix, key, v, err)
			return
		}
		*target = b
	}
}

func (s envSource) loadInt(key string, target *int) {
	if v, ok := s.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			corelog.Warnf("config: ignoring %s_%s=%q: %v", s.prefix, key, v, err)
			return
		}
		*target = n
	}
}

func (s envSource) loadDuration(key string, target *time.Duration) {
	if v, ok := s.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			corelog.Warnf("config: ignoring %s_%s=%q: %v", s.prefix, key, v, err)
			return
		}
		*target = d
	}
}

// loadStrings 逗号分隔
func (s envSource) loadStrings(key string, target *[]string) {
	if v, ok := s.get(key); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target = out
	}
}

func (s envSource) loadInts(key string, target *[]int) {
	var parts []string
	s.loadStrings(key, &parts)
	if parts == nil {
		return
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			corelog.Warnf("config: ignoring %s_%s: %v", s.prefix, key, err)
			return
		}
		out = append(out, n)
	}
	*target = out
}
