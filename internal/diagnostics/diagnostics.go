// Package diagnostics 逐步检查联机链路，定位引擎、配置、实例与端口转发哪一环出错
package diagnostics

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/core/safe"
	"lanlink-core/internal/engine"
	overlaycfg "lanlink-core/internal/overlay/config"
	"lanlink-core/internal/overlay/status"
)

// StepStatus 步骤状态
type StepStatus string

const (
	StatusPending StepStatus = "PENDING"
	StatusRunning StepStatus = "RUNNING"
	StatusSuccess StepStatus = "SUCCESS"
	StatusFailed  StepStatus = "FAILED"
	StatusSkipped StepStatus = "SKIPPED"
)

// StepResult 单步结果
type StepResult struct {
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// 步骤序号
const (
	StepEngine = iota
	StepConfigBuild
	StepConfigParse
	StepInstanceStart
	StepCollect
	StepPortListen
	StepCleanup
	stepCount
)

const (
	testInstanceName  = "diag_test"
	testNetworkSecret = "diag_secret_test"
	previewConfigLen  = 500
	previewStatusLen  = 800
)

var testNetworkName = "diag_net_" + strconv.FormatInt(math.MaxInt64, 10)

// PortChecker 检查本地端口是否可连接
type PortChecker func(ctx context.Context, addr string) error

// DialPortChecker TCP 连接检查
func DialPortChecker(timeout time.Duration) PortChecker {
	return func(ctx context.Context, addr string) error {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// Options 诊断参数，等待时间可调小以便测试
type Options struct {
	GamePort      int
	PublicServers []string
	StopSettle    time.Duration // 清理旧实例后等待
	NetworkSettle time.Duration // 实例启动后等待网络初始化
	PortSettle    time.Duration // 等待端口绑定
	CheckPort     PortChecker
	Logger        corelog.Logger
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		GamePort:      constants.PortTerraria,
		PublicServers: []string{"tcp://public.easytier.cn:11010"},
		StopSettle:    500 * time.Millisecond,
		NetworkSettle: 2 * time.Second,
		PortSettle:    time.Second,
		CheckPort:     DialPortChecker(2 * time.Second),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GamePort <= 0 {
		o.GamePort = d.GamePort
	}
	if o.PublicServers == nil {
		o.PublicServers = d.PublicServers
	}
	if o.CheckPort == nil {
		o.CheckPort = d.CheckPort
	}
	if o.Logger == nil {
		o.Logger = corelog.Component("diagnostics")
	}
	return o
}

// StepNames 步骤名称
func StepNames(gamePort int) []string {
	return []string{
		"Engine library check",
		"Config generation",
		"Config parse",
		"Instance start",
		"Network info collection",
		fmt.Sprintf("Port listening (%d)", gamePort),
		"Test instance cleanup",
	}
}

type runner struct {
	ctx     context.Context
	eng     engine.Engine
	opts    Options
	results []StepResult
	onStep  func(int, StepResult)
}

// Run 依次执行七个步骤，硬性失败会跳过其后全部步骤
// onStep 每次步骤状态变化时调用，可为 nil
func Run(ctx context.Context, eng engine.Engine, opts Options, onStep func(int, StepResult)) []StepResult {
	opts = opts.withDefaults()
	r := &runner{ctx: ctx, eng: eng, opts: opts, onStep: onStep}
	for _, name := range StepNames(opts.GamePort) {
		r.results = append(r.results, StepResult{Name: name, Status: StatusPending})
	}

	r.run()

	for i, res := range r.results {
		opts.Logger.Infof("  [%d] %s: %s - %s", i, res.Name, res.Status, res.Message)
	}
	return r.results
}

func (r *runner) update(i int, st StepStatus, msg, detail string) {
	r.results[i] = StepResult{Name: r.results[i].Name, Status: st, Message: msg, Detail: detail}
	if st == StatusFailed {
		_ = metrics.IncDiagnosticsFailure(strconv.Itoa(i))
	}
	if r.onStep != nil {
		r.onStep(i, r.results[i])
	}
}

func (r *runner) skipFrom(i int, reason string) {
	for ; i < stepCount; i++ {
		r.update(i, StatusSkipped, reason, "")
	}
}

// guard 执行一步，panic 视为失败
func (r *runner) guard(i int, fn func() bool) bool {
	ok := false
	if rec := safe.Call("diagnostics-step", func() { ok = fn() }); rec != nil {
		r.update(i, StatusFailed, fmt.Sprintf("panic: %v", rec), "")
		return false
	}
	return ok
}

func (r *runner) run() {
	if !r.guard(StepEngine, r.checkEngine) {
		r.skipFrom(StepEngine+1, "skipped: engine library unavailable")
		return
	}

	var hostCfg, guestCfg string
	if !r.guard(StepConfigBuild, func() bool { return r.buildConfigs(&hostCfg, &guestCfg) }) {
		r.skipFrom(StepConfigBuild+1, "skipped")
		return
	}
	if !r.guard(StepConfigParse, func() bool { return r.parseConfigs(hostCfg, guestCfg) }) {
		r.skipFrom(StepConfigParse+1, "skipped: config parse failed")
		return
	}
	if !r.guard(StepInstanceStart, func() bool { return r.startInstance(guestCfg) }) {
		r.skipFrom(StepInstanceStart+1, "skipped: instance not started")
		return
	}

	// 以下步骤失败不影响后续
	r.guard(StepCollect, r.collect)
	r.guard(StepPortListen, r.checkPort)
	r.guard(StepCleanup, r.cleanup)
}

func (r *runner) checkEngine() bool {
	r.update(StepEngine, StatusRunning, "checking...", "")
	if !r.eng.Available() {
		loadErr := r.eng.LoadError()
		if loadErr == "" {
			loadErr = "unknown error"
		}
		r.update(StepEngine, StatusFailed, "engine library failed to load", loadErr)
		return false
	}
	r.update(StepEngine, StatusSuccess, "engine library loaded", "last error: "+r.eng.LastError())
	return true
}

func (r *runner) buildConfigs(host, guest *string) bool {
	r.update(StepConfigBuild, StatusRunning, "building host and guest configs...", "")
	base := overlaycfg.Params{
		InstanceName:    testInstanceName,
		RoomName:        testNetworkName,
		RoomSecret:      testNetworkSecret,
		WithPortForward: true,
		GamePorts:       []int{r.opts.GamePort},
		PublicServers:   r.opts.PublicServers,
	}

	hp := base
	hp.IsHost = true
	hp.Hostname = constants.HostHostname
	h, err := overlaycfg.Build(hp)
	if err != nil {
		r.update(StepConfigBuild, StatusFailed, "config generation failed: "+coreerrors.Message(err), "")
		return false
	}

	gp := base
	gp.InstanceName = testInstanceName + "_guest"
	gp.Hostname = constants.GuestHostname
	g, err := overlaycfg.Build(gp)
	if err != nil {
		r.update(StepConfigBuild, StatusFailed, "config generation failed: "+coreerrors.Message(err), "")
		return false
	}

	*host, *guest = h, g
	detail := fmt.Sprintf("host config (%d chars):\n%s...\n\nguest config (%d chars):\n%s...",
		len(h), truncate(h, previewConfigLen), len(g), truncate(g, previewConfigLen))
	r.update(StepConfigBuild, StatusSuccess, "configs generated", detail)
	return true
}

func (r *runner) parseConfigs(host, guest string) bool {
	r.update(StepConfigParse, StatusRunning, "parsing host config...", "")
	hostErr := r.eng.ParseConfig(host)
	guestErr := r.eng.ParseConfig(guest)
	if hostErr == nil && guestErr == nil {
		r.update(StepConfigParse, StatusSuccess, "host and guest configs parsed", "")
		return true
	}
	detail := fmt.Sprintf("host: %s\nguest: %s", errText(hostErr), errText(guestErr))
	r.update(StepConfigParse, StatusFailed, "config parse failed", detail)
	return false
}

// startInstance 用访客配置启动，以便覆盖端口转发
func (r *runner) startInstance(guest string) bool {
	r.update(StepInstanceStart, StatusRunning, "starting guest instance (tests port forwarding)...", "")
	if err := r.eng.StopAllInstances(); err != nil {
		r.opts.Logger.Debugf("stop leftover instances: %v", err)
	}
	if err := r.sleep(r.opts.StopSettle); err != nil {
		r.update(StepInstanceStart, StatusFailed, "cancelled", coreerrors.Message(err))
		return false
	}
	if err := r.eng.RunNetworkInstance(guest); err != nil {
		r.update(StepInstanceStart, StatusFailed, "instance start failed", coreerrors.Message(err))
		return false
	}
	r.update(StepInstanceStart, StatusSuccess, "instance started", "")
	return true
}

func (r *runner) collect() bool {
	r.update(StepCollect, StatusRunning, "waiting for network initialization...", "")
	if err := r.sleep(r.opts.NetworkSettle); err != nil {
		r.update(StepCollect, StatusFailed, "cancelled", coreerrors.Message(err))
		return false
	}

	blob, err := r.eng.CollectNetworkInfos()
	if err != nil {
		r.update(StepCollect, StatusFailed, "network info collection failed", coreerrors.Message(err))
		return false
	}
	if len(blob) <= constants.MinStatusBlobLength {
		r.update(StepCollect, StatusFailed, "network info empty or too short",
			fmt.Sprintf("length: %d, content: %s", len(blob), blob))
		return false
	}

	snaps, _ := status.Decode(blob)
	running, peers := 0, 0
	for _, s := range snaps {
		if s.Running {
			running++
		}
		peers += len(s.Peers)
	}
	r.update(StepCollect, StatusSuccess,
		fmt.Sprintf("%d instances, %d running, %d peers", len(snaps), running, peers),
		fmt.Sprintf("length: %d\n%s", len(blob), truncate(blob, previewStatusLen)))
	return true
}

func (r *runner) checkPort() bool {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(r.opts.GamePort))
	r.update(StepPortListen, StatusRunning, "checking whether "+addr+" is listening...", "")
	if err := r.sleep(r.opts.PortSettle); err != nil {
		r.update(StepPortListen, StatusFailed, "cancelled", coreerrors.Message(err))
		return false
	}
	if err := r.opts.CheckPort(r.ctx, addr); err != nil {
		r.opts.Logger.Debugf("port %s not listening: %v", addr, err)
		r.update(StepPortListen, StatusFailed,
			fmt.Sprintf("port %d is not listening", r.opts.GamePort),
			"port forwarding may not be active:\n1. port forwarding unsupported in no_tun mode\n2. malformed config\n3. engine internal error")
		return false
	}
	r.update(StepPortListen, StatusSuccess,
		fmt.Sprintf("port %d is listening", r.opts.GamePort),
		"port forward bound, "+addr+" accepts connections")
	return true
}

// cleanup 即使 ctx 已取消也要停掉测试实例
func (r *runner) cleanup() bool {
	r.update(StepCleanup, StatusRunning, "stopping test instance...", "")
	if err := r.eng.StopAllInstances(); err != nil {
		r.update(StepCleanup, StatusFailed, "cleanup failed: "+coreerrors.Message(err), "")
		return false
	}
	_ = r.sleep(r.opts.StopSettle)
	r.update(StepCleanup, StatusSuccess, "cleanup done", "")
	return true
}

func (r *runner) sleep(d time.Duration) error {
	if d <= 0 {
		return r.ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func errText(err error) string {
	if err == nil {
		return "ok"
	}
	return "error=" + coreerrors.Message(err)
}
