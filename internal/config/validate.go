package config

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"

	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
)

// ValidationError 单项校验错误
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult 全部校验错误
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     current value: %s\n", err.Value))
		}
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     hint: %s\n", err.Hint))
		}
	}
	return sb.String()
}

func (r *ValidationResult) add(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message, Hint: hint})
}

// Validate 检查配置，返回 CONFIG_ERROR，原因为 *ValidationResult
func (c *Config) Validate() error {
	r := &ValidationResult{}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		r.add("log.level", c.Log.Level, "unknown log level", "use debug, info, warn or error")
	}
	switch c.Log.Format {
	case corelog.FormatText, corelog.FormatJSON:
	default:
		r.add("log.format", c.Log.Format, "unknown log format", "use text or json")
	}
	switch c.Log.Output {
	case corelog.OutputStdout, corelog.OutputStderr, corelog.OutputDiscard:
	case corelog.OutputFile:
		if c.Log.File == "" {
			r.add("log.file", "", "required when log.output is file", "")
		}
	default:
		r.add("log.output", c.Log.Output, "unknown log output", "use stdout, stderr, file or discard")
	}

	switch c.Room.Role {
	case RoleHost, RoleGuest:
	default:
		r.add("room.role", c.Room.Role, "unknown role", "use host or guest")
	}

	if c.Overlay.MonitorInterval <= 0 {
		r.add("overlay.monitor_interval", c.Overlay.MonitorInterval.String(), "must be positive", "e.g. 3s")
	}
	if c.Overlay.FindHostTimeout < 0 {
		r.add("overlay.find_host_timeout", c.Overlay.FindHostTimeout.String(), "must not be negative", "0 disables the timeout")
	}
	for i, p := range c.Overlay.GamePorts {
		if p <= 0 || p > 65535 {
			r.add(fmt.Sprintf("overlay.game_ports[%d]", i), fmt.Sprint(p), "port out of range", "1-65535")
		}
	}
	for i, s := range c.Overlay.PublicServers {
		if !strings.Contains(s, "://") {
			r.add(fmt.Sprintf("overlay.public_servers[%d]", i), s, "missing scheme", "e.g. tcp://host:11010")
		}
	}

	if c.API.Enabled {
		if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
			r.add("api.listen", c.API.Listen, "invalid listen address", "e.g. 127.0.0.1:9870")
		}
	}
	if c.API.RateLimit < 0 {
		r.add("api.rate_limit", fmt.Sprint(c.API.RateLimit), "must not be negative", "")
	}
	switch metrics.MetricsType(c.API.Metrics) {
	case metrics.MetricsTypeMemory, metrics.MetricsTypePrometheus:
	default:
		r.add("api.metrics", c.API.Metrics, "unknown metrics backend", "use memory or prometheus")
	}

	if c.Overlay.FullTunnel {
		if _, err := netip.ParsePrefix(c.Tun.Address); err != nil {
			r.add("tun.address", c.Tun.Address, "invalid CIDR", "e.g. 10.126.126.1/24")
		}
		if c.Tun.MTU < 576 || c.Tun.MTU > 65535 {
			r.add("tun.mtu", fmt.Sprint(c.Tun.MTU), "mtu out of range", "576-65535")
		}
	}

	if r.IsValid() {
		return nil
	}
	return coreerrors.Wrap(r, coreerrors.CodeConfigError, "invalid configuration")
}
