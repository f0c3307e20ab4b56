package metrics

import (
	"context"
	"fmt"
)

// MetricsType 指标类型
type MetricsType string

const (
	MetricsTypeMemory     MetricsType = "memory"
	MetricsTypePrometheus MetricsType = "prometheus"
)

// Namespace Prometheus 指标前缀
const Namespace = "lanlink"

// MetricsFactory 指标工厂
type MetricsFactory struct {
	ctx context.Context
}

// NewMetricsFactory 创建指标工厂
func NewMetricsFactory(ctx context.Context) *MetricsFactory {
	return &MetricsFactory{ctx: ctx}
}

// CreateMetrics 创建指标收集器实例
func (f *MetricsFactory) CreateMetrics(metricsType MetricsType) (Metrics, error) {
	switch metricsType {
	case MetricsTypeMemory, "":
		return NewMemoryMetrics(f.ctx), nil
	case MetricsTypePrometheus:
		return NewPrometheusMetrics(f.ctx, Namespace), nil
	default:
		return nil, fmt.Errorf("unsupported metrics type: %s", metricsType)
	}
}
