package vkframe

import (
	"fmt"

	"go.uber.org/zap"
)

// DeletionQueue is a stack of teardown functions. Resources are usually
// created in dependency order, so running the stack in reverse destroys
// dependents before the objects they depend on.
type DeletionQueue struct {
	entries []func()
	log     *zap.Logger
}

// Push registers fn to run on the next Flush.
func (q *DeletionQueue) Push(fn func()) {
	if fn == nil {
		panic("vkframe: nil deletion entry")
	}
	q.entries = append(q.entries, fn)
}

// Flush runs every entry, most recently pushed first, until the queue is
// empty. Entries pushed while flushing are run by the same call.
func (q *DeletionQueue) Flush() {
	for len(q.entries) > 0 {
		n := len(q.entries) - 1
		fn := q.entries[n]
		q.entries[n] = nil
		q.entries = q.entries[:n]
		q.run(fn, n)
	}
}

func (q *DeletionQueue) run(fn func(), pos int) {
	defer func() {
		if r := recover(); r != nil {
			l := q.log
			if l == nil {
				l = Logger()
			}
			l.Error("deletion entry panicked",
				zap.Int("position", pos),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// IsFlushed reports whether the queue is empty.
func (q *DeletionQueue) IsFlushed() bool {
	return len(q.entries) == 0
}

// Len returns the number of pending entries.
func (q *DeletionQueue) Len() int {
	return len(q.entries)
}
