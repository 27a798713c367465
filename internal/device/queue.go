// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import "sync"

// DefaultQueueLimit bounds the samples a channel holds between pumps.
const DefaultQueueLimit = 256

// queue collects samples from transport goroutines until the next pump.
// When full, the oldest sample is dropped.
type queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
	closed  bool
}

func newQueue[T any](limit int) *queue[T] {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &queue[T]{limit: limit}
}

// push reports false if the queue is closed.
func (q *queue[T]) push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if len(q.items) >= q.limit {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, v)
	return true
}

// drain hands over everything queued so far.
func (q *queue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

func (q *queue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

func (q *queue[T]) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
