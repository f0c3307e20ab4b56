package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lanlink-core/internal/core/dispose"
)

// MemoryMetrics 内存指标实现，无外部依赖
type MemoryMetrics struct {
	*dispose.ResourceBase

	counters     map[string]float64
	gauges       map[string]float64
	observations map[string]int
	mu           sync.RWMutex
}

// NewMemoryMetrics 创建内存指标收集器
func NewMemoryMetrics(parentCtx context.Context) *MemoryMetrics {
	m := &MemoryMetrics{
		ResourceBase: dispose.NewResourceBase("MemoryMetrics"),
		counters:     make(map[string]float64),
		gauges:       make(map[string]float64),
		observations: make(map[string]int),
	}
	m.ResourceBase.Initialize(parentCtx)
	return m
}

func (m *MemoryMetrics) IncrementCounter(name string, labels map[string]string) error {
	return m.AddCounter(name, 1, labels)
}

func (m *MemoryMetrics) AddCounter(name string, value float64, labels map[string]string) error {
	if value < 0 {
		return fmt.Errorf("counter %s cannot decrease", name)
	}
	key := buildKey(name, labels)
	m.mu.Lock()
	m.counters[key] += value
	m.mu.Unlock()
	return nil
}

func (m *MemoryMetrics) GetCounter(name string, labels map[string]string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[buildKey(name, labels)], nil
}

func (m *MemoryMetrics) SetGauge(name string, value float64, labels map[string]string) error {
	m.mu.Lock()
	m.gauges[buildKey(name, labels)] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryMetrics) GetGauge(name string, labels map[string]string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[buildKey(name, labels)], nil
}

// ObserveHistogram 内存实现只记录观测次数
func (m *MemoryMetrics) ObserveHistogram(name string, value float64, labels map[string]string) error {
	m.mu.Lock()
	m.observations[buildKey(name, labels)]++
	m.mu.Unlock()
	return nil
}

// ObservationCount 返回某个 histogram 的观测次数
func (m *MemoryMetrics) ObservationCount(name string, labels map[string]string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observations[buildKey(name, labels)]
}

func (m *MemoryMetrics) Close() error {
	return m.ResourceBase.CloseWithError()
}

// buildKey 按标签名排序拼接，相同标签集合得到相同 key
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := sortedKeys(labels)
	key := name
	for _, k := range keys {
		key = fmt.Sprintf("%s{%s=%s}", key, k, labels[k])
	}
	return key
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
