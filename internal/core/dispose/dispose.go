// Package dispose 资源生命周期：上下文 + 按注册顺序执行的清理回调
package dispose

import (
	"context"
	"fmt"
	"sync"
)

// DisposeError 单个清理回调的错误
type DisposeError struct {
	HandlerIndex int
	ResourceName string
	Err          error
}

func (e *DisposeError) Error() string {
	if e.ResourceName != "" {
		return fmt.Sprintf("cleanup resource[%s] handler[%d] failed: %v", e.ResourceName, e.HandlerIndex, e.Err)
	}
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

// DisposeResult 清理结果
type DisposeResult struct {
	Errors []*DisposeError
}

func (r *DisposeResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *DisposeResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	return fmt.Sprintf("dispose cleanup failed with %d errors", len(r.Errors))
}

// Dispose 资源管理结构体，嵌入到需要统一关闭的组件中
type Dispose struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	cleanHandlers []func() error
	errors        []*DisposeError
	name          string
}

func (c *Dispose) Ctx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Dispose) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close 关闭，回调只执行一次；重复调用返回第一次的结果
func (c *Dispose) Close() *DisposeResult {
	c.mu.Lock()
	if c.closed {
		errs := c.errors
		c.mu.Unlock()
		return &DisposeResult{Errors: errs}
	}
	c.closed = true
	cancel := c.cancel
	handlers := make([]func() error, len(c.cleanHandlers))
	copy(handlers, c.cleanHandlers)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	result := c.runCleanHandlers(handlers)

	c.mu.Lock()
	c.errors = result.Errors
	c.mu.Unlock()
	return result
}

// CloseWithError 关闭并返回第一个清理错误
func (c *Dispose) CloseWithError() error {
	result := c.Close()
	if result.HasErrors() {
		return result.Errors[0].Err
	}
	return nil
}

func (c *Dispose) runCleanHandlers(handlers []func() error) *DisposeResult {
	result := &DisposeResult{Errors: make([]*DisposeError, 0)}
	for i, handler := range handlers {
		if err := handler(); err != nil {
			result.Errors = append(result.Errors, &DisposeError{
				HandlerIndex: i,
				ResourceName: c.name,
				Err:          err,
			})
			// 记录后继续执行剩余回调
			Errorf("Cleanup handler[%d] of %s failed: %v", i, c.name, err)
		}
	}
	return result
}

// AddCleanHandler 注册清理回调
func (c *Dispose) AddCleanHandler(f func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanHandlers = append(c.cleanHandlers, f)
}

// GetErrors 获取清理过程中的错误
func (c *Dispose) GetErrors() []*DisposeError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// SetCtx 设置父上下文；父上下文取消时自动 Close
func (c *Dispose) SetCtx(parent context.Context, onClose func() error) {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		Warn("ctx already set")
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	if onClose != nil {
		c.cleanHandlers = append(c.cleanHandlers, onClose)
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	ctx := c.ctx
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.Close()
	}()
}
