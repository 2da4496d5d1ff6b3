package counter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/reglet-dev/native-counter/countertest"
	"github.com/reglet-dev/native-counter/domain/entities"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/reglet-dev/native-counter/infrastructure/instrument"
	"github.com/reglet-dev/native-counter/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T, args entities.CounterArgs, engineOpts ...countertest.Option) (*Counter, *instrument.Bindings, *countertest.Engine) {
	t.Helper()
	engine := countertest.NewEngine(engineOpts...)
	bindings := instrument.Wrap(engine)
	c, err := New(context.Background(), bindings, args)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, bindings, engine
}

func TestNew_NilBindings(t *testing.T) {
	c, err := New(context.Background(), nil, entities.CounterArgs{})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNew_AllocationFailure(t *testing.T) {
	engine := countertest.NewEngine(countertest.WithAllocationFailure())
	bindings := instrument.Wrap(engine)

	c, err := New(context.Background(), bindings, entities.CounterArgs{Init: 1, By: 2})
	assert.Nil(t, c)
	require.ErrorIs(t, err, ErrAllocation)

	var allocErr *domainErrors.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, entities.CounterArgs{Init: 1, By: 2}, allocErr.Args)
	assert.Equal(t, int64(0), bindings.Calls(ports.OpDestroy))
}

func TestNew_CreateError(t *testing.T) {
	boom := errors.New("out of memory")
	engine := countertest.NewEngine(countertest.WithFailure(ports.OpCreate, boom))

	_, err := New(context.Background(), engine, entities.CounterArgs{})
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, boom)
}

func TestNew_InvalidMaxBulkValues(t *testing.T) {
	engine := countertest.NewEngine()
	_, err := New(context.Background(), engine, entities.CounterArgs{}, WithMaxBulkValues(0))

	var cfgErr *domainErrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_bulk_values", cfgErr.Field)
	assert.Equal(t, 0, engine.Live())
}

func TestCounter_CreateThenClose(t *testing.T) {
	c, bindings, engine := newCounter(t, entities.CounterArgs{By: 1})

	assert.False(t, c.Closed())
	require.NoError(t, c.Close())
	assert.True(t, c.Closed())

	assert.Equal(t, int64(1), bindings.Calls(ports.OpDestroy))
	assert.Equal(t, 0, engine.Live())
}

func TestCounter_CloseTwice(t *testing.T) {
	c, bindings, _ := newCounter(t, entities.CounterArgs{})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, int64(1), bindings.Calls(ports.OpDestroy))
}

func TestCounter_CloseError(t *testing.T) {
	boom := errors.New("destroy trapped")
	engine := countertest.NewEngine(countertest.WithFailure(ports.OpDestroy, boom))
	c, err := New(context.Background(), engine, entities.CounterArgs{})
	require.NoError(t, err)

	err = c.Close()
	assert.ErrorIs(t, err, ErrNativeCall)
	assert.ErrorIs(t, err, boom)

	// The handle is consumed even when destroy reports an error.
	assert.True(t, c.Closed())
	assert.NoError(t, c.Close())
}

func TestCounter_IncrementByManySum(t *testing.T) {
	c, _, _ := newCounter(t, entities.CounterArgs{})
	ctx := context.Background()

	v, err := c.IncrementByMany(ctx, []uint32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, uint32(36), v)

	v, err = c.DecrementByMany(ctx, []uint32{10, 6})
	require.NoError(t, err)
	assert.Equal(t, uint32(20), v)
}

func TestCounter_EmptyBulkRejected(t *testing.T) {
	c, bindings, _ := newCounter(t, entities.CounterArgs{})
	ctx := context.Background()

	_, err := c.IncrementByMany(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.DecrementByMany(ctx, []uint32{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, int64(0), bindings.Calls(ports.OpIncrementByMany))
	assert.Equal(t, int64(0), bindings.Calls(ports.OpDecrementByMany))
}

func TestCounter_BulkLimit(t *testing.T) {
	engine := countertest.NewEngine()
	bindings := instrument.Wrap(engine)
	c, err := New(context.Background(), bindings, entities.CounterArgs{}, WithMaxBulkValues(2))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.IncrementByMany(context.Background(), []uint32{1, 2, 3})
	var argErr *domainErrors.InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "values", argErr.Argument)
	assert.Equal(t, int64(0), bindings.Calls(ports.OpIncrementByMany))

	v, err := c.IncrementByMany(context.Background(), []uint32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), v)
}

func TestCounter_AlgebraicSum(t *testing.T) {
	const by = 7
	c, _, _ := newCounter(t, entities.CounterArgs{Init: 3, By: by})
	ctx := context.Background()

	want := uint32(3)
	steps := []struct {
		name  string
		apply func() (uint32, error)
		delta func(uint32) uint32
	}{
		{"increment", func() (uint32, error) { return c.Increment(ctx) }, func(v uint32) uint32 { return v + by }},
		{"decrement", func() (uint32, error) { return c.Decrement(ctx) }, func(v uint32) uint32 { return v - by }},
		{"increment_by", func() (uint32, error) { return c.IncrementBy(ctx, 100) }, func(v uint32) uint32 { return v + 100 }},
		{"decrement_by", func() (uint32, error) { return c.DecrementBy(ctx, 250) }, func(v uint32) uint32 { return v - 250 }},
		{"decrement_by zero", func() (uint32, error) { return c.DecrementBy(ctx, 0) }, func(v uint32) uint32 { return v }},
		{"increment_by_many", func() (uint32, error) { return c.IncrementByMany(ctx, []uint32{9, 1}) }, func(v uint32) uint32 { return v + 10 }},
	}

	for _, step := range steps {
		got, err := step.apply()
		require.NoError(t, err, step.name)
		want = step.delta(want)
		assert.Equal(t, want, got, step.name)
	}

	v, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, v)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.CounterSnapshot{Val: want, By: by}, snap)
}

func TestCounter_Positions(t *testing.T) {
	c, _, _ := newCounter(t, entities.CounterArgs{})

	positions, err := c.Positions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, countertest.DefaultPositions, positions)

	// The result is an owned copy.
	positions[0].X = 99
	again, err := c.Positions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(0), again[0].X)
}

func TestCounter_PositionsEmpty(t *testing.T) {
	c, _, _ := newCounter(t, entities.CounterArgs{}, countertest.WithPositions(nil))

	positions, err := c.Positions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, positions)
	assert.Empty(t, positions)
}

func TestCounter_UseAfterDispose(t *testing.T) {
	c, bindings, _ := newCounter(t, entities.CounterArgs{})
	ctx := context.Background()
	require.NoError(t, c.Close())
	before := bindings.TotalCalls()

	ops := map[string]func() error{
		ports.OpValue:           func() error { _, err := c.Value(ctx); return err },
		ports.OpSnapshot:        func() error { _, err := c.Snapshot(ctx); return err },
		ports.OpIncrement:       func() error { _, err := c.Increment(ctx); return err },
		ports.OpDecrement:       func() error { _, err := c.Decrement(ctx); return err },
		ports.OpIncrementBy:     func() error { _, err := c.IncrementBy(ctx, 1); return err },
		ports.OpDecrementBy:     func() error { _, err := c.DecrementBy(ctx, 1); return err },
		ports.OpIncrementByMany: func() error { _, err := c.IncrementByMany(ctx, []uint32{1}); return err },
		ports.OpDecrementByMany: func() error { _, err := c.DecrementByMany(ctx, []uint32{1}); return err },
		ports.OpPositions:       func() error { _, err := c.Positions(ctx); return err },
	}

	for op, fn := range ops {
		t.Run(op, func(t *testing.T) {
			err := fn()
			require.ErrorIs(t, err, ErrUseAfterDispose)
			var disposeErr *domainErrors.UseAfterDisposeError
			require.ErrorAs(t, err, &disposeErr)
			assert.Equal(t, op, disposeErr.Operation)
		})
	}

	assert.Equal(t, before, bindings.TotalCalls())
}

func TestCounter_NativeErrorWrappedOnce(t *testing.T) {
	boom := errors.New("memory fault")
	c, _, _ := newCounter(t, entities.CounterArgs{}, countertest.WithFailure(ports.OpIncrement, boom))

	_, err := c.Increment(context.Background())
	require.ErrorIs(t, err, boom)

	var nativeErr *domainErrors.NativeCallError
	require.ErrorAs(t, err, &nativeErr)
	assert.Equal(t, ports.OpIncrement, nativeErr.Operation)
	assert.Same(t, boom, nativeErr.Err)

	// Errors already classified by the backend pass through untouched.
	backendErr := &domainErrors.NativeCallError{Operation: ports.OpDecrement, Backend: "wazero", Err: boom}
	c2, _, _ := newCounter(t, entities.CounterArgs{}, countertest.WithFailure(ports.OpDecrement, backendErr))
	_, err = c2.Decrement(context.Background())
	assert.Same(t, backendErr, err)
}

func TestCounter_Concurrent(t *testing.T) {
	c, _, _ := newCounter(t, entities.CounterArgs{By: 1})
	ctx := context.Background()

	const workers, iterations = 8, 200
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				_, err := c.Increment(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	v, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(workers*iterations), v)
}

func TestCounter_ConcurrentClose(t *testing.T) {
	c, bindings, _ := newCounter(t, entities.CounterArgs{By: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Close()
		}()
		go func() {
			defer wg.Done()
			if _, err := c.Increment(ctx); err != nil {
				assert.ErrorIs(t, err, ErrUseAfterDispose)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), bindings.Calls(ports.OpDestroy))
}

func TestCounter_UnclosedIsReleased(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, nil))

	engine := countertest.NewEngine()
	func() {
		_, err := New(context.Background(), engine, entities.CounterArgs{}, WithLogger(logger))
		require.NoError(t, err)
	}()

	testutil.RequireCollected(t, func() bool {
		return engine.Destroyed() == 1
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "releasing unclosed counter")
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
