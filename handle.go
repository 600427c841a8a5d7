package vkframe

import "fmt"

// Handle is a typed reference to a resource stored in a SlotTable. Handles are
// plain values: copying or dropping one never frees the resource.
type Handle[T Destroyable] struct {
	table  *SlotTable
	ticket Ticket
}

// NewHandle wraps a ticket issued by table.
func NewHandle[T Destroyable](table *SlotTable, tk Ticket) Handle[T] {
	return Handle[T]{table: table, ticket: tk}
}

// Get resolves the handle.
func (h Handle[T]) Get() (T, error) {
	var zero T
	if h.table == nil {
		return zero, &HandleError{Op: "get", Ticket: h.ticket, Err: ErrOutOfRange}
	}
	r, err := h.table.At(h.ticket)
	if err != nil {
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		return zero, &HandleError{Op: "get", Ticket: h.ticket, Len: h.table.Len(),
			Err: fmt.Errorf("%w: have %T, want %T", ErrTypeMismatch, r, zero)}
	}
	return v, nil
}

// MustGet resolves the handle and panics if it is stale or out of range.
func (h Handle[T]) MustGet() T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (h Handle[T]) Ticket() Ticket { return h.ticket }

// Valid reports whether the handle still resolves.
func (h Handle[T]) Valid() bool {
	return h.table != nil && h.table.Valid(h.ticket)
}

// IsZero reports whether h was never assigned.
func (h Handle[T]) IsZero() bool {
	return h.table == nil
}

// Equal reports whether both handles carry the same ticket into the same
// table.
func (h Handle[T]) Equal(o Handle[T]) bool {
	return h.table == o.table && h.ticket == o.ticket
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle[%T]%s", *new(T), h.ticket)
}
