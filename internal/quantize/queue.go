package quantize

import "container/heap"

// entry is a value held in a queue along with its insertion sequence and
// current heap position.
type entry[T any] struct {
	value T
	seq   uint64
	index int
}

// queue is a binary heap whose ordering is supplied by the caller. It keeps
// each entry's index current so entries can be re-prioritised in place.
type queue[T any] struct {
	entries []*entry[T]
	before  func(a, b *entry[T]) bool
	seq     uint64
}

func newQueue[T any](before func(a, b *entry[T]) bool) *queue[T] {
	return &queue[T]{before: before}
}

func (q *queue[T]) Len() int           { return len(q.entries) }
func (q *queue[T]) Less(i, j int) bool { return q.before(q.entries[i], q.entries[j]) }

func (q *queue[T]) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}

func (q *queue[T]) Push(x any) {
	e := x.(*entry[T])
	e.index = len(q.entries)
	q.entries = append(q.entries, e)
}

func (q *queue[T]) Pop() any {
	old := q.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	q.entries = old[:n-1]
	return e
}

// push adds v and returns its entry for later use with fix.
func (q *queue[T]) push(v T) *entry[T] {
	e := &entry[T]{value: v, seq: q.seq}
	q.seq++
	heap.Push(q, e)
	return e
}

// pop removes and returns the highest-priority value.
func (q *queue[T]) pop() T {
	return heap.Pop(q).(*entry[T]).value
}

// fix restores heap order after e's priority changed.
func (q *queue[T]) fix(e *entry[T]) {
	if e.index >= 0 {
		heap.Fix(q, e.index)
	}
}
