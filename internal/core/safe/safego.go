// Package safe 带 panic 恢复的 goroutine 启动
package safe

import (
	"context"
	"runtime/debug"
	"sync/atomic"

	corelog "lanlink-core/internal/core/log"
)

var (
	activeCount atomic.Int64
	panicCount  atomic.Int64
)

// Stats goroutine 统计
type Stats struct {
	Active     int64
	PanicCount int64
}

// GetStats 获取统计信息
func GetStats() Stats {
	return Stats{
		Active:     activeCount.Load(),
		PanicCount: panicCount.Load(),
	}
}

// Go 启动 goroutine，panic 被恢复并记录
func Go(name string, fn func()) {
	activeCount.Add(1)
	go func() {
		defer func() {
			activeCount.Add(-1)
			if r := recover(); r != nil {
				panicCount.Add(1)
				corelog.Errorf("SafeGo[%s]: panic recovered: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}

// GoWithContext 带 context 的 Go
func GoWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	Go(name, func() { fn(ctx) })
}

// Call 同步执行 fn，panic 转换为 recovered 返回值
func Call(name string, fn func()) (recovered interface{}) {
	defer func() {
		if r := recover(); r != nil {
			panicCount.Add(1)
			corelog.Errorf("SafeCall[%s]: panic recovered: %v\n%s", name, r, debug.Stack())
			recovered = r
		}
	}()
	fn()
	return nil
}
