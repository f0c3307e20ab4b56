// Package enginetest 可编排的内存引擎，用于测试与离线诊断
package enginetest

import (
	"sync"

	coreerrors "lanlink-core/internal/core/errors"
	"lanlink-core/internal/engine"
)

// 调用名，用于断言调用顺序
const (
	CallParseConfig = "parse_config"
	CallRun         = "run_network_instance"
	CallCollect     = "collect_network_infos"
	CallStopAll     = "stop_all_instances"
	CallSetTunFd    = "set_tun_fd"
)

// Engine 线程安全的假引擎
type Engine struct {
	mu sync.Mutex

	unavailable bool
	loadErr     string
	lastErr     string

	parseErr   string
	runErr     string
	stopErr    string
	setTunErr  string
	collectErr string

	status      string
	queue       []string
	panicOnNext bool
	onCollect   func()

	calls   []string
	configs []string
	tunFds  map[string]int
}

var _ engine.Engine = (*Engine)(nil)

// New 创建可用的假引擎，默认状态为空
func New() *Engine {
	return &Engine{tunFds: make(map[string]int)}
}

// NewUnavailable 创建本地库未加载的假引擎
func NewUnavailable(reason string) *Engine {
	e := New()
	e.unavailable = true
	e.loadErr = reason
	return e
}

// FailParse 之后的 ParseConfig 返回失败
func (e *Engine) FailParse(msg string) { e.set(func() { e.parseErr = msg }) }

// FailRun 之后的 RunNetworkInstance 返回失败
func (e *Engine) FailRun(msg string) { e.set(func() { e.runErr = msg }) }

// FailStop 之后的 StopAllInstances 返回失败
func (e *Engine) FailStop(msg string) { e.set(func() { e.stopErr = msg }) }

// FailSetTunFd 之后的 SetTunFd 返回失败
func (e *Engine) FailSetTunFd(msg string) { e.set(func() { e.setTunErr = msg }) }

// FailCollect 之后的 CollectNetworkInfos 返回失败，空串恢复
func (e *Engine) FailCollect(msg string) { e.set(func() { e.collectErr = msg }) }

// SetStatus 设置 CollectNetworkInfos 的常驻返回值
func (e *Engine) SetStatus(blob string) { e.set(func() { e.status = blob }) }

// QueueStatus 追加一次性返回值，队列耗尽后回到常驻值
func (e *Engine) QueueStatus(blobs ...string) {
	e.set(func() { e.queue = append(e.queue, blobs...) })
}

// PanicOnNextCollect 下一次 CollectNetworkInfos panic
func (e *Engine) PanicOnNextCollect() { e.set(func() { e.panicOnNext = true }) }

// OnCollect 每次 CollectNetworkInfos 后回调（锁外执行）
func (e *Engine) OnCollect(fn func()) { e.set(func() { e.onCollect = fn }) }

func (e *Engine) set(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

func (e *Engine) record(call string) {
	e.calls = append(e.calls, call)
}

// Calls 返回调用序列副本
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount 某个调用的次数
func (e *Engine) CallCount(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Configs 返回提交过的配置文本
func (e *Engine) Configs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.configs))
	copy(out, e.configs)
	return out
}

// TunFd 返回绑定到实例的描述符
func (e *Engine) TunFd(instance string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fd, ok := e.tunFds[instance]
	return fd, ok
}

func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.unavailable
}

func (e *Engine) LoadError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) fail(code coreerrors.ErrorCode, msg string) error {
	e.lastErr = msg
	return coreerrors.New(code, msg)
}

func (e *Engine) ParseConfig(cfg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallParseConfig)
	if e.unavailable {
		return e.fail(coreerrors.CodeUnavailable, e.loadErr)
	}
	if e.parseErr != "" {
		return e.fail(coreerrors.CodeConfigRejected, e.parseErr)
	}
	return nil
}

func (e *Engine) RunNetworkInstance(cfg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallRun)
	if e.unavailable {
		return e.fail(coreerrors.CodeUnavailable, e.loadErr)
	}
	if e.runErr != "" {
		return e.fail(coreerrors.CodeStartFailed, e.runErr)
	}
	e.configs = append(e.configs, cfg)
	return nil
}

func (e *Engine) CollectNetworkInfos() (string, error) {
	e.mu.Lock()
	e.record(CallCollect)
	if e.panicOnNext {
		e.panicOnNext = false
		e.mu.Unlock()
		panic("enginetest: collect panic")
	}
	if e.unavailable {
		err := e.fail(coreerrors.CodeUnavailable, e.loadErr)
		e.mu.Unlock()
		return "", err
	}
	if e.collectErr != "" {
		err := e.fail(coreerrors.CodeInternal, e.collectErr)
		e.mu.Unlock()
		return "", err
	}
	blob := e.status
	if len(e.queue) > 0 {
		blob = e.queue[0]
		e.queue = e.queue[1:]
	}
	hook := e.onCollect
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return blob, nil
}

func (e *Engine) StopAllInstances() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallStopAll)
	if e.unavailable {
		return e.fail(coreerrors.CodeUnavailable, e.loadErr)
	}
	if e.stopErr != "" {
		return e.fail(coreerrors.CodeStopFailed, e.stopErr)
	}
	e.tunFds = make(map[string]int)
	return nil
}

func (e *Engine) SetTunFd(instanceName string, fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallSetTunFd)
	if e.unavailable {
		return e.fail(coreerrors.CodeUnavailable, e.loadErr)
	}
	if e.setTunErr != "" {
		return e.fail(coreerrors.CodeTunError, e.setTunErr)
	}
	e.tunFds[instanceName] = fd
	return nil
}
