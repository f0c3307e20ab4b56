package metrics

import (
	"time"
)

// 会话相关指标名
const (
	MetricSessionState      = "session_state"
	MetricSessionPeers      = "session_peers"
	MetricConnectAttempts   = "connect_attempts_total"
	MetricConnectFailures   = "connect_failures_total"
	MetricInstanceDeaths    = "instance_deaths_total"
	MetricSkippedPolls      = "status_polls_skipped_total"
	MetricHostDiscovered    = "host_discovered_total"
	MetricStopFailures      = "stop_failures_total"
	MetricPollDuration      = "status_poll_duration_seconds"
	MetricDiagnosticsFailed = "diagnostics_failed_total"
)

// SetSessionState 当前连接状态，按状态名打点，当前状态为 1，其余为 0
func SetSessionState(current string, all []string) error {
	return withGlobal(func(m Metrics) error {
		for _, s := range all {
			v := 0.0
			if s == current {
				v = 1
			}
			if err := m.SetGauge(MetricSessionState, v, map[string]string{"state": s}); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetPeerCount 当前可见对端数
func SetPeerCount(n int) error {
	return withGlobal(func(m Metrics) error {
		return m.SetGauge(MetricSessionPeers, float64(n), nil)
	})
}

// IncConnectAttempt 记录一次连接尝试，role 为 host / guest
func IncConnectAttempt(role string) error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricConnectAttempts, map[string]string{"role": role})
	})
}

// IncConnectFailure 按错误码记录连接失败
func IncConnectFailure(code string) error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricConnectFailures, map[string]string{"code": code})
	})
}

// IncInstanceDeath 运行中实例退出
func IncInstanceDeath() error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricInstanceDeaths, nil)
	})
}

// IncSkippedPoll 被跳过的状态轮询，reason 如 short / decode / no_instance / error
func IncSkippedPoll(reason string) error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricSkippedPolls, map[string]string{"reason": reason})
	})
}

// IncHostDiscovered 访客发现主机
func IncHostDiscovered() error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricHostDiscovered, nil)
	})
}

// IncStopFailure 停止实例失败
func IncStopFailure() error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricStopFailures, nil)
	})
}

// ObservePollDuration 一次状态轮询耗时
func ObservePollDuration(d time.Duration) error {
	return withGlobal(func(m Metrics) error {
		return m.ObserveHistogram(MetricPollDuration, d.Seconds(), nil)
	})
}

// IncDiagnosticsFailure 诊断步骤失败
func IncDiagnosticsFailure(step string) error {
	return withGlobal(func(m Metrics) error {
		return m.IncrementCounter(MetricDiagnosticsFailed, map[string]string{"step": step})
	})
}
