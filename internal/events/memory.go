package events

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed 在发布器关闭后继续投递时返回。
var ErrClosed = errors.New("事件发布器已关闭")

// MemoryPublisher 使用带缓冲的 channel 保存事件，主要用于测试与本地开发。
type MemoryPublisher struct {
	ch   chan Event
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewMemoryPublisher 创建一个内存发布器。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan Event, size), done: make(chan struct{})}
}

// Publish 将事件放入缓冲区，缓冲区已满时等待，直到 ctx 取消或发布器关闭。
// 等待期间不持有锁。
func (p *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	case p.ch <- event:
		return nil
	}
}

// Events 返回只读事件流，Close 后会被关闭。
func (p *MemoryPublisher) Events() <-chan Event {
	return p.ch
}

// Drain 取出当前缓冲区中的全部事件。
func (p *MemoryPublisher) Drain() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-p.ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Close 关闭内存发布器。阻塞中的 Publish 返回 ErrClosed，
// 全部退出后才关闭事件流。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.inflight.Wait()
	close(p.ch)
	return nil
}
