package metrics

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"lanlink-core/internal/core/dispose"
)

// PrometheusMetrics 基于独立 Registry 的 Prometheus 实现
// 指标按名字惰性注册，同名指标的标签名集合必须一致
type PrometheusMetrics struct {
	*dispose.ResourceBase

	namespace  string
	registry   *prometheus.Registry
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labelNames map[string][]string
}

// NewPrometheusMetrics 创建 Prometheus 指标收集器
func NewPrometheusMetrics(parentCtx context.Context, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		ResourceBase: dispose.NewResourceBase("PrometheusMetrics"),
		namespace:    namespace,
		registry:     prometheus.NewRegistry(),
		counters:     make(map[string]*prometheus.CounterVec),
		gauges:       make(map[string]*prometheus.GaugeVec),
		histograms:   make(map[string]*prometheus.HistogramVec),
		labelNames:   make(map[string][]string),
	}
	m.ResourceBase.Initialize(parentCtx)
	return m
}

// Registry 返回底层 Registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) checkLabels(name string, labels map[string]string) ([]string, []string, error) {
	keys := sortedKeys(labels)
	if known, ok := m.labelNames[name]; ok && !slices.Equal(known, keys) {
		return nil, nil, fmt.Errorf("metric %s registered with labels %v, got %v", name, known, keys)
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values, nil
}

func (m *PrometheusMetrics) counter(name string, labels map[string]string) (prometheus.Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, values, err := m.checkLabels(name, labels)
	if err != nil {
		return nil, err
	}
	vec, ok := m.counters[name]
	if !ok {
		if _, taken := m.labelNames[name]; taken {
			return nil, fmt.Errorf("metric %s already registered with another type", name)
		}
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      name,
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			return nil, err
		}
		m.counters[name] = vec
		m.labelNames[name] = keys
	}
	return vec.WithLabelValues(values...), nil
}

func (m *PrometheusMetrics) gauge(name string, labels map[string]string) (prometheus.Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, values, err := m.checkLabels(name, labels)
	if err != nil {
		return nil, err
	}
	vec, ok := m.gauges[name]
	if !ok {
		if _, taken := m.labelNames[name]; taken {
			return nil, fmt.Errorf("metric %s already registered with another type", name)
		}
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      name,
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			return nil, err
		}
		m.gauges[name] = vec
		m.labelNames[name] = keys
	}
	return vec.WithLabelValues(values...), nil
}

func (m *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) error {
	return m.AddCounter(name, 1, labels)
}

func (m *PrometheusMetrics) AddCounter(name string, value float64, labels map[string]string) error {
	if value < 0 {
		return fmt.Errorf("counter %s cannot decrease", name)
	}
	c, err := m.counter(name, labels)
	if err != nil {
		return err
	}
	c.Add(value)
	return nil
}

func (m *PrometheusMetrics) GetCounter(name string, labels map[string]string) (float64, error) {
	c, err := m.counter(name, labels)
	if err != nil {
		return 0, err
	}
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0, err
	}
	return out.GetCounter().GetValue(), nil
}

func (m *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) error {
	g, err := m.gauge(name, labels)
	if err != nil {
		return err
	}
	g.Set(value)
	return nil
}

func (m *PrometheusMetrics) GetGauge(name string, labels map[string]string) (float64, error) {
	g, err := m.gauge(name, labels)
	if err != nil {
		return 0, err
	}
	var out dto.Metric
	if err := g.Write(&out); err != nil {
		return 0, err
	}
	return out.GetGauge().GetValue(), nil
}

func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, labels map[string]string) error {
	m.mu.Lock()
	keys, values, err := m.checkLabels(name, labels)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	vec, ok := m.histograms[name]
	if !ok {
		if _, taken := m.labelNames[name]; taken {
			m.mu.Unlock()
			return fmt.Errorf("metric %s already registered with another type", name)
		}
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return err
		}
		m.histograms[name] = vec
		m.labelNames[name] = keys
	}
	m.mu.Unlock()

	vec.WithLabelValues(values...).Observe(value)
	return nil
}

func (m *PrometheusMetrics) Close() error {
	return m.ResourceBase.CloseWithError()
}
