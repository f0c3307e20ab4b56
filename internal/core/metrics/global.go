package metrics

import (
	"errors"
	"sync"
)

var (
	globalMetrics Metrics
	globalMu      sync.RWMutex

	// ErrNilMetrics SetGlobalMetrics 传入 nil
	ErrNilMetrics = errors.New("metrics: SetGlobalMetrics called with nil")
)

// SetGlobalMetrics 设置进程级 Metrics 实例
func SetGlobalMetrics(m Metrics) error {
	if m == nil {
		return ErrNilMetrics
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
	return nil
}

// GetGlobalMetrics 获取进程级 Metrics 实例，未设置时为 nil
func GetGlobalMetrics() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ResetGlobalMetrics 清空进程级实例，返回之前的值
func ResetGlobalMetrics() Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	old := globalMetrics
	globalMetrics = nil
	return old
}

// 未设置全局实例时辅助函数静默忽略
func withGlobal(fn func(m Metrics) error) error {
	m := GetGlobalMetrics()
	if m == nil {
		return nil
	}
	return fn(m)
}
