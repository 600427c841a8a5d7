package vkframe

import (
	"fmt"

	"go.uber.org/zap"
)

// Context owns the slot table and deletion queue of one device session. It is
// created once at setup and passed to everything that creates resources.
//
// Context is not safe for concurrent use.
type Context struct {
	Config Config

	table   *SlotTable
	queue   *DeletionQueue
	log     *zap.Logger
	created uint64
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger makes the context and its table log to l.
func WithLogger(l *zap.Logger) ContextOption {
	return func(c *Context) { c.log = l }
}

// NewContext creates an empty context.
func NewContext(cfg Config, opts ...ContextOption) *Context {
	c := &Context{
		Config: cfg,
		table:  NewSlotTable(),
		queue:  &DeletionQueue{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = Logger()
		if cfg.Debug {
			if l, err := zap.NewDevelopment(); err == nil {
				c.log = l
			}
		}
	}
	c.table.log = c.log
	c.queue.log = c.log
	return c
}

// Table returns the context's slot table.
func (c *Context) Table() *SlotTable { return c.table }

// Logger returns the logger used by the context.
func (c *Context) Logger() *zap.Logger { return c.log }

// CreateResource runs create, stores the result in the context's slot table
// and registers its release with the deletion queue. A create func that
// returns a nil resource without an error yields ErrNilResource.
func CreateResource[T Destroyable](c *Context, create func() (T, error)) (Handle[T], error) {
	r, err := create()
	if err != nil {
		return Handle[T]{}, fmt.Errorf("creating %T: %w", r, err)
	}
	if isZero(r) {
		return Handle[T]{}, fmt.Errorf("creating %T: %w", r, ErrNilResource)
	}

	tk := c.table.Insert(r)
	c.created++
	c.queue.Push(func() {
		res, err := c.table.Erase(tk)
		if err != nil {
			c.log.Warn("resource already erased", zap.Stringer("ticket", tk), zap.Error(err))
			return
		}
		res.Destroy()
	})

	c.log.Debug("resource created", zap.String("type", fmt.Sprintf("%T", r)), zap.Stringer("ticket", tk))
	return NewHandle[T](c.table, tk), nil
}

// isZero reports whether r is the zero value of T, which for the pointer and
// interface types resources are made of means nil. Values of types that are
// not comparable are never zero.
func isZero[T Destroyable](r T) (zero bool) {
	if any(r) == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			zero = false
		}
	}()
	var z T
	return any(r) == any(z)
}

// Resolve returns a typed handle for a ticket previously issued by c.
func Resolve[T Destroyable](c *Context, tk Ticket) (Handle[T], error) {
	h := NewHandle[T](c.table, tk)
	if _, err := h.Get(); err != nil {
		return Handle[T]{}, err
	}
	return h, nil
}

// Defer registers a teardown step that is not a slot resource, such as
// destroying the device itself. It runs in the same LIFO order as resources.
func (c *Context) Defer(fn func()) {
	c.queue.Push(fn)
}

// Pending returns the number of teardown steps not yet run.
func (c *Context) Pending() int {
	return c.queue.Len()
}

// ResetInstance releases every live resource in reverse creation order. The
// context remains usable afterwards.
func (c *Context) ResetInstance() {
	n := c.queue.Len()
	c.queue.Flush()
	c.log.Debug("context reset", zap.Int("released", n))
}

// Close flushes the deletion queue. A non-empty queue at this point means
// resources were never explicitly released and is logged as a leak.
func (c *Context) Close() {
	if !c.queue.IsFlushed() {
		c.log.Warn("leaked resources at context close",
			zap.Int("pending", c.queue.Len()),
			zap.Int("live", c.table.Live()))
	}
	c.queue.Flush()
	if live := c.table.Live(); live != 0 {
		c.log.Warn("slots still live after flush", zap.Int("live", live))
	}
	c.log.Info("context closed", zap.Uint64("created", c.created))
}
