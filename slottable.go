package vkframe

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Ticket identifies a slot in a SlotTable. It carries no ownership; it is
// valid only while its generation matches the slot's.
type Ticket struct {
	Index      uint32
	Generation uint32
}

func (t Ticket) String() string {
	return fmt.Sprintf("{%d,%d}", t.Index, t.Generation)
}

type slot struct {
	resource   Destroyable
	generation uint32
	owners     int32
}

// SlotTable is a generational arena of resources. Lookups are O(1) and detect
// use of an erased resource without scanning.
//
// A slot's generation is bumped when it is erased, so a ticket to an erased
// slot is stale immediately rather than only once the slot is reused.
//
// SlotTable is not safe for concurrent mutation.
type SlotTable struct {
	slots []slot
	free    []uint32
	live    int
	retired int
	log     *zap.Logger
}

// NewSlotTable returns an empty table.
func NewSlotTable() *SlotTable {
	return &SlotTable{
		slots: make([]slot, 0, 64),
		free:  make([]uint32, 0, 16),
	}
}

func (t *SlotTable) logger() *zap.Logger {
	if t.log != nil {
		return t.log
	}
	return Logger()
}

// Insert stores r and returns its ticket. A freed slot is reused when one is
// available, otherwise a new slot is appended at generation 0.
func (t *SlotTable) Insert(r Destroyable) Ticket {
	if r == nil {
		panic("vkframe: insert of nil resource")
	}

	t.live++

	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[idx]
		s.resource = r
		s.owners = 1
		return Ticket{Index: idx, Generation: s.generation}
	}

	t.slots = append(t.slots, slot{resource: r, owners: 1})
	return Ticket{Index: uint32(len(t.slots) - 1)}
}

func (t *SlotTable) lookup(op string, tk Ticket) (*slot, error) {
	if int(tk.Index) >= len(t.slots) {
		err := &HandleError{Op: op, Ticket: tk, Len: len(t.slots), Err: ErrOutOfRange}
		t.logger().Error("handle resolution failed", zap.Error(err))
		return nil, err
	}
	s := &t.slots[tk.Index]
	if s.generation != tk.Generation || s.resource == nil {
		err := &HandleError{Op: op, Ticket: tk, Len: len(t.slots), Err: ErrStaleHandle}
		t.logger().Error("handle resolution failed", zap.Error(err), zap.Uint32("current_generation", s.generation))
		return nil, err
	}
	return s, nil
}

// At resolves tk to its resource.
func (t *SlotTable) At(tk Ticket) (Destroyable, error) {
	s, err := t.lookup("at", tk)
	if err != nil {
		return nil, err
	}
	return s.resource, nil
}

// Valid reports whether tk currently resolves. It does not log.
func (t *SlotTable) Valid(tk Ticket) bool {
	if int(tk.Index) >= len(t.slots) {
		return false
	}
	s := t.slots[tk.Index]
	return s.resource != nil && s.generation == tk.Generation
}

// Erase removes the resource referenced by tk and returns it. The caller is
// responsible for destroying it.
func (t *SlotTable) Erase(tk Ticket) (Destroyable, error) {
	s, err := t.lookup("erase", tk)
	if err != nil {
		return nil, err
	}
	r := s.resource
	s.resource = nil
	s.owners = 0
	t.live--
	// A slot whose generation would wrap is never reused, so no old ticket
	// can match it again.
	if s.generation == math.MaxUint32 {
		t.retired++
		t.logger().Debug("slot retired", zap.Uint32("index", tk.Index))
		return r, nil
	}
	s.generation++
	t.free = append(t.free, tk.Index)
	return r, nil
}

// Retain increments the owner count of tk and returns the new count.
func (t *SlotTable) Retain(tk Ticket) (int32, error) {
	s, err := t.lookup("retain", tk)
	if err != nil {
		return 0, err
	}
	s.owners++
	return s.owners, nil
}

// Release decrements the owner count of tk. Reaching zero does not free the
// resource; Erase is still required.
func (t *SlotTable) Release(tk Ticket) (int32, error) {
	s, err := t.lookup("release", tk)
	if err != nil {
		return 0, err
	}
	if s.owners > 0 {
		s.owners--
	}
	return s.owners, nil
}

// Owners returns the owner count of tk.
func (t *SlotTable) Owners(tk Ticket) (int32, error) {
	s, err := t.lookup("owners", tk)
	if err != nil {
		return 0, err
	}
	return s.owners, nil
}

// Len returns the number of slots, occupied or free.
func (t *SlotTable) Len() int {
	return len(t.slots)
}

// Retired returns the number of slots taken out of use because their
// generation was exhausted.
func (t *SlotTable) Retired() int {
	return t.retired
}

// Live returns the number of occupied slots.
func (t *SlotTable) Live() int {
	return t.live
}
