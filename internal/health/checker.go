// Package health 组件健康检查，供 /health 使用
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ComponentStatus 组件状态
type ComponentStatus string

const (
	ComponentStatusHealthy   ComponentStatus = "healthy"
	ComponentStatusDegraded  ComponentStatus = "degraded"  // 部分功能不可用
	ComponentStatusUnhealthy ComponentStatus = "unhealthy" // 完全不可用
)

// ComponentHealth 组件健康信息
type ComponentHealth struct {
	Name      string          `json:"name"`
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LastCheck time.Time       `json:"last_check"`
}

// HealthChecker 健康检查器接口
type HealthChecker interface {
	Check(ctx context.Context) (*ComponentHealth, error)
}

// CheckerFunc 函数形式的检查器
type CheckerFunc func(ctx context.Context) (*ComponentHealth, error)

func (f CheckerFunc) Check(ctx context.Context) (*ComponentHealth, error) {
	return f(ctx)
}

// Report 一次检查的汇总
type Report struct {
	Status     ComponentStatus   `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// CompositeHealthChecker 组合健康检查器
type CompositeHealthChecker struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewCompositeHealthChecker 创建组合健康检查器，timeout 为单个检查器上限
func NewCompositeHealthChecker(timeout time.Duration) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checkers: make(map[string]HealthChecker),
		timeout:  timeout,
	}
}

// RegisterChecker 注册检查器，同名覆盖
func (c *CompositeHealthChecker) RegisterChecker(name string, checker HealthChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkers[name] = checker
}

// CheckAll 检查所有组件，检查器报错或超时视为 unhealthy
func (c *CompositeHealthChecker) CheckAll(ctx context.Context) map[string]*ComponentHealth {
	c.mu.RLock()
	checkers := make(map[string]HealthChecker, len(c.checkers))
	for name, checker := range c.checkers {
		checkers[name] = checker
	}
	c.mu.RUnlock()

	results := make(map[string]*ComponentHealth, len(checkers))
	for name, checker := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		h, err := checker.Check(checkCtx)
		cancel()

		if err != nil {
			h = &ComponentHealth{
				Name:      name,
				Status:    ComponentStatusUnhealthy,
				Message:   err.Error(),
				LastCheck: time.Now(),
			}
		}
		if h != nil {
			if h.Name == "" {
				h.Name = name
			}
			results[name] = h
		}
	}
	return results
}

// Check 检查并按名字排序汇总
func (c *CompositeHealthChecker) Check(ctx context.Context) Report {
	results := c.CheckAll(ctx)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{Status: ComponentStatusHealthy, Components: make([]ComponentHealth, 0, len(names))}
	for _, name := range names {
		h := results[name]
		report.Components = append(report.Components, *h)
		report.Status = worse(report.Status, h.Status)
	}
	return report
}

// GetOverallStatus 最差的组件状态
func (c *CompositeHealthChecker) GetOverallStatus(ctx context.Context) ComponentStatus {
	return c.Check(ctx).Status
}

func worse(a, b ComponentStatus) ComponentStatus {
	rank := func(s ComponentStatus) int {
		switch s {
		case ComponentStatusUnhealthy:
			return 2
		case ComponentStatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
