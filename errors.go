package vkframe

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a ticket's index exceeds the slot table.
	ErrOutOfRange = errors.New("handle index out of range")
	// ErrStaleHandle is returned when a ticket's generation no longer matches
	// its slot, i.e. the resource was erased.
	ErrStaleHandle = errors.New("stale handle")
	// ErrTypeMismatch is returned when a handle resolves to a resource of a
	// different type than the handle was created for.
	ErrTypeMismatch = errors.New("handle resource type mismatch")
	// ErrNilResource is returned when a create func reports success but
	// returns no resource.
	ErrNilResource = errors.New("create returned a nil resource")

	// ErrSurfaceMinimized is returned while the output surface has a zero
	// extent. Callers should poll and retry.
	ErrSurfaceMinimized = errors.New("surface is minimized")

	// ErrFenceTimeout is reported by Device.WaitForFence when the wait
	// exceeds its timeout.
	ErrFenceTimeout = errors.New("fence wait timed out")
	// ErrDeviceLost marks an unrecoverable GPU failure.
	ErrDeviceLost = errors.New("device lost")
	// ErrSubmitFailed marks a failed queue submission. It is fatal.
	ErrSubmitFailed = errors.New("queue submit failed")
)

// HandleError reports a failed ticket resolution.
type HandleError struct {
	Op     string
	Ticket Ticket
	Len    int
	Err    error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s (table size %d): %v", e.Op, e.Ticket, e.Len, e.Err)
}

func (e *HandleError) Unwrap() error { return e.Err }

// IsFatal reports whether err means the render loop must stop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrSubmitFailed)
}

// deviceLost wraps err so it matches ErrDeviceLost while keeping the cause.
func deviceLost(op string, err error) error {
	if errors.Is(err, ErrDeviceLost) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDeviceLost, err)
}
