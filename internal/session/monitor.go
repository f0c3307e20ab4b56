package session

import (
	"context"
	"slices"
	"sort"
	"time"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/core/metrics"
	"lanlink-core/internal/core/safe"
	"lanlink-core/internal/overlay/status"
)

// pollResult 单次轮询结果，用于日志与测试
type pollResult int

const (
	pollApplied pollResult = iota
	pollSkipped
	pollInstanceDied
	pollHostFound
	pollTimedOut
	pollIgnored
)

const msgInstanceStopped = "network instance stopped"

// startMonitor 启动监控循环，先停掉旧循环
func (m *Manager) startMonitor(id Identity) {
	m.stopMonitor(context.Background())

	ctx, cancel := context.WithCancel(m.Ctx())
	done := make(chan struct{})

	m.mu.Lock()
	m.monitorCancel = cancel
	m.monitorDone = done
	m.findingSince = m.opts.now()
	m.mu.Unlock()

	safe.Go("session-monitor", func() {
		defer close(done)
		m.monitorLoop(ctx, id)
	})
}

// stopMonitor 取消监控循环并等待其退出
func (m *Manager) stopMonitor(ctx context.Context) {
	m.mu.Lock()
	cancel, done := m.monitorCancel, m.monitorDone
	m.monitorCancel, m.monitorDone = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warnf("monitor loop did not exit before deadline: %v", ctx.Err())
	}
}

// monitorLoop 每个间隔先检查状态，再轮询一次
func (m *Manager) monitorLoop(ctx context.Context, id Identity) {
	ticker := time.NewTicker(m.opts.monitorInterval)
	defer ticker.Stop()

	logger := m.logger.WithField("room", id.RoomName)
	logger.Debugf("monitor loop started, interval %s", m.opts.monitorInterval)
	defer logger.Debugf("monitor loop exited")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !m.state.Current().Connection.monitored() {
			return
		}

		start := time.Now()
		if r := safe.Call("session-poll", func() { m.pollOnce(ctx, id) }); r != nil {
			_ = metrics.IncSkippedPoll("panic")
		}
		_ = metrics.ObservePollDuration(time.Since(start))
	}
}

// pollOnce 轮询一次引擎状态
// 读取或解析失败只跳过本次，不改变状态
func (m *Manager) pollOnce(ctx context.Context, id Identity) pollResult {
	if m.findHostExpired() {
		_, changed := m.update(func(cur State) (State, bool) {
			if cur.Connection != StateFindingHost {
				return cur, false
			}
			return errorState("host not found within " + m.opts.findHostTimeout.String()), true
		})
		if changed {
			m.logger.Warnf("poll: no host within %s", m.opts.findHostTimeout)
			return pollTimedOut
		}
	}

	blob, err := m.engine.CollectNetworkInfos()
	if err != nil {
		m.logger.Debugf("poll: collect failed: %v", err)
		_ = metrics.IncSkippedPoll("error")
		return pollSkipped
	}
	if len(blob) < constants.MinStatusBlobLength {
		m.logger.Debugf("poll: status too short (%d bytes), engine not ready", len(blob))
		_ = metrics.IncSkippedPoll("short")
		return pollSkipped
	}

	snaps, ok := status.Decode(blob)
	if !ok {
		m.logger.Warnf("poll: malformed status, skipping")
		_ = metrics.IncSkippedPoll("decode")
		return pollSkipped
	}

	snap, ok := selectInstance(snaps, id)
	if !ok {
		m.logger.Debugf("poll: no instance in status")
		_ = metrics.IncSkippedPoll("no_instance")
		return pollSkipped
	}

	// Disconnect 已取消本循环，不再发布
	if ctx.Err() != nil {
		return pollIgnored
	}

	if !snap.Running {
		msg := snap.ErrorMessage
		if msg == "" {
			msg = msgInstanceStopped
		}
		_, changed := m.update(func(cur State) (State, bool) {
			if !cur.Connection.monitored() {
				return cur, false
			}
			return errorState(msg), true
		})
		if !changed {
			return pollIgnored
		}
		m.logger.Warnf("poll: instance %s not running: %s", snap.InstanceName, msg)
		_ = metrics.IncInstanceDeath()
		return pollInstanceDied
	}

	var host status.PeerInfo
	result := pollApplied
	_, changed := m.update(func(cur State) (State, bool) {
		if !cur.Connection.monitored() {
			result = pollIgnored
			return cur, false
		}
		next := cur
		changed := false
		if snap.VirtualAddress != "" && snap.VirtualAddress != cur.VirtualAddress {
			next.VirtualAddress = snap.VirtualAddress
			changed = true
		}
		if !slices.Equal(cur.Peers, snap.Peers) {
			next.Peers = snap.Peers
			changed = true
		}
		if cur.Connection == StateFindingHost && !m.hostFound.Load() {
			if p, found := findHost(snap.Peers); found {
				m.hostFound.Store(true)
				host = p
				next.Connection = StateConnected
				changed = true
				result = pollHostFound
			}
		}
		return next, changed
	})

	if result == pollHostFound {
		m.logger.Infof("poll: host found, hostname=%s address=%s", host.Hostname, host.VirtualAddress)
		_ = metrics.IncHostDiscovered()
	} else if changed {
		m.logger.Debugf("poll: address=%s peers=%d", snap.VirtualAddress, len(snap.Peers))
	}
	return result
}

func (m *Manager) findHostExpired() bool {
	if m.opts.findHostTimeout <= 0 {
		return false
	}
	m.mu.Lock()
	since := m.findingSince
	m.mu.Unlock()
	return m.opts.now().Sub(since) >= m.opts.findHostTimeout
}

// selectInstance 依次按房间名、实例名、首个运行中实例、首个实例选择
func selectInstance(snaps map[string]status.InstanceSnapshot, id Identity) (status.InstanceSnapshot, bool) {
	if s, ok := snaps[id.RoomName]; ok {
		return s, true
	}
	if s, ok := snaps[id.InstanceName]; ok {
		return s, true
	}

	keys := make([]string, 0, len(snaps))
	for k := range snaps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if snaps[k].Running {
			return snaps[k], true
		}
	}
	if len(keys) > 0 {
		return snaps[keys[0]], true
	}
	return status.InstanceSnapshot{}, false
}
