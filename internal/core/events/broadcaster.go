// Package events 带最新值回放的广播器
//
// 新订阅者先收到当前值，再按发布顺序收到之后的每一次更新。
// 每个订阅者有独立队列和投递 goroutine，慢订阅者不会阻塞发布方，也不会丢更新。
package events

import (
	"context"
	"sync"
)

// Broadcaster 保存最新值并向所有订阅者广播
type Broadcaster[T any] struct {
	mu     sync.Mutex
	last   T
	subs   map[*subscriber[T]]struct{}
	closed bool
}

type subscriber[T any] struct {
	mu     sync.Mutex
	queue  []T
	notify chan struct{}
	out    chan T
	done   chan struct{}
	once   sync.Once
}

// NewBroadcaster 创建广播器，initial 为回放给首批订阅者的初始值
func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		last: initial,
		subs: make(map[*subscriber[T]]struct{}),
	}
}

// Current 返回最新发布的值
func (b *Broadcaster[T]) Current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Publish 更新最新值并投递给所有订阅者，不阻塞
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = v
	for s := range b.subs {
		s.push(v)
	}
}

// Update 在锁内基于当前值计算新值并发布，返回新值
// fn 返回 false 表示不发布
func (b *Broadcaster[T]) Update(fn func(cur T) (T, bool)) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, ok := fn(b.last)
	if !ok || b.closed {
		return b.last, false
	}
	b.last = next
	for s := range b.subs {
		s.push(next)
	}
	return next, true
}

// Subscribe 订阅；ctx 取消或广播器关闭后返回的通道被关闭
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	s := &subscriber[T]{
		notify: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)
		return s.out
	}
	s.queue = append(s.queue, b.last)
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump(ctx, func() { b.remove(s) })
	return s.out
}

// SubscriberCount 当前订阅者数量
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close 关闭所有订阅，之后的 Publish 被忽略
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*subscriber[T]]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

func (b *Broadcaster[T]) remove(s *subscriber[T]) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber[T]) pump(ctx context.Context, onExit func()) {
	defer close(s.out)
	defer onExit()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}
