package metrics

// Metrics 指标收集接口
// 内存实现用于嵌入式/移动端，Prometheus 实现用于 serve 守护进程
type Metrics interface {
	IncrementCounter(name string, labels map[string]string) error
	AddCounter(name string, value float64, labels map[string]string) error
	GetCounter(name string, labels map[string]string) (float64, error)

	SetGauge(name string, value float64, labels map[string]string) error
	GetGauge(name string, labels map[string]string) (float64, error)

	ObserveHistogram(name string, value float64, labels map[string]string) error

	Close() error
}
