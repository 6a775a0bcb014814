// Package queue hands out previously generated content in round-robin order.
package queue

import (
	"sync"

	"github.com/reelkit/reelkit/internal/content"
)

// Queue cycles through its items indefinitely. It never drains.
type Queue struct {
	mu     sync.Mutex
	items  []content.Item
	cursor int
}

// New returns a queue loaded with items.
func New(items []content.Item) *Queue {
	q := &Queue{}
	q.Load(items)
	return q
}

// Load replaces the contents and rewinds the cursor. An empty slice empties the queue.
func (q *Queue) Load(items []content.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cursor = 0
	if len(items) == 0 {
		q.items = nil
		return
	}
	q.items = make([]content.Item, len(items))
	copy(q.items, items)
}

// Next returns the item at the cursor and advances it, wrapping at the end.
func (q *Queue) Next() (content.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return content.Item{}, false
	}
	item := q.items[q.cursor]
	q.cursor = (q.cursor + 1) % len(q.items)
	return item, true
}

// Seek moves the cursor to n modulo the queue size. Negative n counts from the end.
func (q *Queue) Seek(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		q.cursor = 0
		return
	}
	q.cursor = ((n % len(q.items)) + len(q.items)) % len(q.items)
}

// Peek returns the item Next would return without advancing.
func (q *Queue) Peek() (content.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return content.Item{}, false
	}
	return q.items[q.cursor], true
}

// Size returns the number of items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue has no items.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Cursor returns the index Next will read.
func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// Items returns a copy of the queue contents.
func (q *Queue) Items() []content.Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]content.Item, len(q.items))
	copy(out, q.items)
	return out
}
