package vkframe

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlotTableRoundTrip(t *testing.T) {
	table := NewSlotTable()
	r := &fakeResource{name: "a"}

	tk := table.Insert(r)
	got, err := table.At(tk)
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Live())
}

func TestSlotTableStaleAfterErase(t *testing.T) {
	table := NewSlotTable()
	r := &fakeResource{name: "a"}
	tk := table.Insert(r)

	erased, err := table.Erase(tk)
	require.NoError(t, err)
	assert.Same(t, r, erased)
	assert.Equal(t, 0, r.destroyed, "erase must not destroy the resource")

	_, err = table.At(tk)
	require.ErrorIs(t, err, ErrStaleHandle)
	assert.False(t, table.Valid(tk))

	_, err = table.Erase(tk)
	require.ErrorIs(t, err, ErrStaleHandle)
	assert.Equal(t, 0, table.Live())
}

func TestSlotTableGenerationUniqueness(t *testing.T) {
	table := NewSlotTable()
	a := &fakeResource{name: "a"}
	b := &fakeResource{name: "b"}

	h1 := table.Insert(a)
	assert.Equal(t, Ticket{Index: 0, Generation: 0}, h1)

	_, err := table.Erase(h1)
	require.NoError(t, err)

	h2 := table.Insert(b)
	assert.Equal(t, Ticket{Index: 0, Generation: 1}, h2)

	_, err = table.At(h1)
	require.ErrorIs(t, err, ErrStaleHandle)

	got, err := table.At(h2)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, 1, table.Len(), "freed slot should be reused")
}

func TestSlotTableOutOfRange(t *testing.T) {
	table := NewSlotTable()
	table.Insert(&fakeResource{})

	_, err := table.At(Ticket{Index: 5})
	require.ErrorIs(t, err, ErrOutOfRange)

	var herr *HandleError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "at", herr.Op)
	assert.Equal(t, 1, herr.Len)
	assert.Equal(t, uint32(5), herr.Ticket.Index)
}

func TestSlotTableGenerationsIncreaseAcrossCycles(t *testing.T) {
	table := NewSlotTable()
	var last Ticket
	for i := 0; i < 5; i++ {
		tk := table.Insert(&fakeResource{})
		if i > 0 {
			assert.Greater(t, tk.Generation, last.Generation)
		}
		_, err := table.Erase(tk)
		require.NoError(t, err)
		last = tk
	}
	assert.Equal(t, 1, table.Len())
}

func TestSlotTableFreeListReuse(t *testing.T) {
	table := NewSlotTable()
	t0 := table.Insert(&fakeResource{name: "0"})
	t1 := table.Insert(&fakeResource{name: "1"})
	t2 := table.Insert(&fakeResource{name: "2"})

	_, err := table.Erase(t1)
	require.NoError(t, err)

	t3 := table.Insert(&fakeResource{name: "3"})
	assert.Equal(t, t1.Index, t3.Index)
	assert.NotEqual(t, t1.Generation, t3.Generation)
	assert.True(t, table.Valid(t0))
	assert.True(t, table.Valid(t2))
	assert.Equal(t, 3, table.Live())
}

func TestSlotTableOwners(t *testing.T) {
	table := NewSlotTable()
	tk := table.Insert(&fakeResource{})

	n, err := table.Owners(tk)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)

	n, err = table.Retain(tk)
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)

	_, _ = table.Release(tk)
	n, err = table.Release(tk)
	require.NoError(t, err)
	assert.Equal(t, int32(0), n)

	// zero owners does not free the slot
	assert.True(t, table.Valid(tk))
}

func TestSlotTableInsertNilPanics(t *testing.T) {
	assert.Panics(t, func() { NewSlotTable().Insert(nil) })
}

func TestSlotTableLogsFailedResolution(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	table := NewSlotTable()
	table.log = zap.New(core)

	tk := table.Insert(&fakeResource{})
	_, _ = table.Erase(tk)
	_, _ = table.At(tk)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "handle resolution failed", logs.All()[0].Message)
}

func TestSlotTableRetiresExhaustedSlot(t *testing.T) {
	table := NewSlotTable()
	tk := table.Insert(&fakeResource{name: "a"})

	// jump the slot close to the end of its generation space
	table.slots[tk.Index].generation = math.MaxUint32 - 1
	tk.Generation = math.MaxUint32 - 1

	_, err := table.Erase(tk)
	require.NoError(t, err)

	last := table.Insert(&fakeResource{name: "b"})
	assert.Equal(t, tk.Index, last.Index)
	assert.Equal(t, uint32(math.MaxUint32), last.Generation)

	_, err = table.Erase(last)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Retired())

	next := table.Insert(&fakeResource{name: "c"})
	assert.NotEqual(t, last.Index, next.Index, "an exhausted slot is not reused")
	assert.False(t, table.Valid(last))
	assert.False(t, table.Valid(tk))
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, table.Live())
}
