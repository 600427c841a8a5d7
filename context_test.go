package vkframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestContext(t *testing.T) (*Context, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewContext(DefaultConfig(), WithLogger(zap.New(core))), logs
}

func TestCreateResourceAndResetInstance(t *testing.T) {
	ctx, _ := newTestContext(t)
	var destroyed []string

	mk := func(name string) func() (*fakeResource, error) {
		return func() (*fakeResource, error) {
			return &fakeResource{name: name, log: &destroyed}, nil
		}
	}

	layout, err := CreateResource(ctx, mk("layout"))
	require.NoError(t, err)
	set, err := CreateResource(ctx, mk("set"))
	require.NoError(t, err)
	pipeline, err := CreateResource(ctx, mk("pipeline"))
	require.NoError(t, err)

	assert.Equal(t, "set", set.MustGet().name)
	assert.Equal(t, 3, ctx.Table().Live())
	assert.Equal(t, 3, ctx.Pending())

	ctx.ResetInstance()

	assert.Equal(t, []string{"pipeline", "set", "layout"}, destroyed)
	assert.Equal(t, 0, ctx.Table().Live())
	for _, h := range []Handle[*fakeResource]{layout, set, pipeline} {
		_, err := h.Get()
		assert.ErrorIs(t, err, ErrStaleHandle)
	}

	// the context stays usable
	again, err := CreateResource(ctx, mk("again"))
	require.NoError(t, err)
	assert.True(t, again.Valid())
	assert.NotEqual(t, layout.Ticket(), again.Ticket())
}

func TestCreateResourceError(t *testing.T) {
	ctx, _ := newTestContext(t)
	boom := errors.New("out of device memory")

	h, err := CreateResource(ctx, func() (*fakeResource, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.True(t, h.IsZero())
	assert.Equal(t, 0, ctx.Pending())
	assert.Equal(t, 0, ctx.Table().Live())
}

func TestCreateResourceRejectsNil(t *testing.T) {
	ctx, _ := newTestContext(t)

	h, err := CreateResource(ctx, func() (*fakeResource, error) { return nil, nil })
	require.ErrorIs(t, err, ErrNilResource)
	assert.True(t, h.IsZero())
	assert.False(t, h.Valid())

	iface, err := CreateResource(ctx, func() (Destroyable, error) { return nil, nil })
	require.ErrorIs(t, err, ErrNilResource)
	assert.True(t, iface.IsZero())

	assert.Equal(t, 0, ctx.Pending())
	assert.Equal(t, 0, ctx.Table().Live())
	assert.NotPanics(t, ctx.ResetInstance)
}

func TestContextDeferInterleavesWithResources(t *testing.T) {
	ctx, _ := newTestContext(t)
	var order []string

	ctx.Defer(func() { order = append(order, "device") })
	_, err := CreateResource(ctx, func() (*fakeResource, error) {
		return &fakeResource{name: "buffer", log: &order}, nil
	})
	require.NoError(t, err)

	ctx.ResetInstance()
	assert.Equal(t, []string{"buffer", "device"}, order)
}

func TestContextCloseLogsLeaks(t *testing.T) {
	ctx, logs := newTestContext(t)
	r := &fakeResource{}
	_, err := CreateResource(ctx, func() (*fakeResource, error) { return r, nil })
	require.NoError(t, err)

	ctx.Close()

	leaks := logs.FilterMessage("leaked resources at context close").All()
	require.Len(t, leaks, 1)
	assert.Equal(t, zapcore.WarnLevel, leaks[0].Level)
	assert.Equal(t, int64(1), leaks[0].ContextMap()["pending"])
	assert.Equal(t, 1, r.destroyed, "close must still release leaked resources")
}

func TestContextCloseAfterResetIsQuiet(t *testing.T) {
	ctx, logs := newTestContext(t)
	_, err := CreateResource(ctx, func() (*fakeResource, error) { return &fakeResource{}, nil })
	require.NoError(t, err)

	ctx.ResetInstance()
	ctx.Close()

	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestResolve(t *testing.T) {
	ctx, _ := newTestContext(t)
	h, err := CreateResource(ctx, func() (*fakeResource, error) { return &fakeResource{name: "x"}, nil })
	require.NoError(t, err)

	back, err := Resolve[*fakeResource](ctx, h.Ticket())
	require.NoError(t, err)
	assert.True(t, back.Equal(h))

	_, err = Resolve[*fakeResource](ctx, Ticket{Index: 42})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestManualEraseIsNotDestroyedTwice(t *testing.T) {
	ctx, logs := newTestContext(t)
	r := &fakeResource{}
	h, err := CreateResource(ctx, func() (*fakeResource, error) { return r, nil })
	require.NoError(t, err)

	_, err = ctx.Table().Erase(h.Ticket())
	require.NoError(t, err)

	ctx.ResetInstance()
	assert.Equal(t, 0, r.destroyed)
	assert.Equal(t, 1, logs.FilterMessage("resource already erased").Len())
}
