package counter

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/reglet-dev/native-counter/domain/entities"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/reglet-dev/native-counter/handle"
)

// Re-exported sentinels for errors.Is matching.
var (
	ErrAllocation      = domainErrors.ErrAllocation
	ErrInvalidArgument = domainErrors.ErrInvalidArgument
	ErrUseAfterDispose = domainErrors.ErrUseAfterDispose
	ErrNativeCall      = domainErrors.ErrNativeCall
)

// Counter owns one native counter.
type Counter struct {
	mu            sync.Mutex
	bindings      ports.CounterBindings
	handle        *handle.Safe
	logger        *slog.Logger
	maxBulkValues int
}

// New creates a native counter through bindings. If the engine cannot
// allocate, New returns an error matching ErrAllocation and nothing needs to
// be closed.
func New(ctx context.Context, bindings ports.CounterBindings, args entities.CounterArgs, opts ...Option) (*Counter, error) {
	if bindings == nil {
		return nil, &domainErrors.InvalidArgumentError{Operation: ports.OpCreate, Argument: "bindings", Reason: "must not be nil"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	raw, err := bindings.Create(ctx, args)
	if err != nil {
		return nil, &domainErrors.AllocationError{Resource: "counter", Args: args, Err: err}
	}
	if raw.IsNull() {
		return nil, &domainErrors.AllocationError{Resource: "counter", Args: args}
	}

	logger := cfg.logger
	c := &Counter{
		bindings:      bindings,
		logger:        logger,
		maxBulkValues: cfg.maxBulkValues,
	}
	c.handle = handle.New(raw, releaser(bindings),
		handle.WithLeakHandler(func(raw entities.NativeHandle) {
			logger.Warn("counter: releasing unclosed counter", "handle", raw.String())
		}),
		handle.WithCleanupErrorHandler(func(raw entities.NativeHandle, err error) {
			logger.Error("counter: failed to release unclosed counter", "handle", raw.String(), "error", err)
		}),
	)

	logger.DebugContext(ctx, "counter: created", "handle", raw.String(), "init", args.Init, "by", args.By)
	return c, nil
}

// releaser must not capture the Counter or its Safe, or the cleanup would
// keep them reachable.
func releaser(bindings ports.CounterBindings) handle.ReleaseFunc {
	return func(raw entities.NativeHandle) error {
		return bindings.Destroy(context.Background(), raw)
	}
}

// Value returns the current value.
func (c *Counter) Value(ctx context.Context) (uint32, error) {
	return call(c, ports.OpValue, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.Value(ctx, h)
	})
}

// Snapshot returns a copy of the counter state.
func (c *Counter) Snapshot(ctx context.Context) (entities.CounterSnapshot, error) {
	return call(c, ports.OpSnapshot, func(h entities.NativeHandle) (entities.CounterSnapshot, error) {
		return c.bindings.Snapshot(ctx, h)
	})
}

// Increment steps the counter up by its configured step and returns the new value.
func (c *Counter) Increment(ctx context.Context) (uint32, error) {
	return call(c, ports.OpIncrement, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.Increment(ctx, h)
	})
}

// Decrement steps the counter down by its configured step and returns the new value.
func (c *Counter) Decrement(ctx context.Context) (uint32, error) {
	return call(c, ports.OpDecrement, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.Decrement(ctx, h)
	})
}

// IncrementBy adds n and returns the new value.
func (c *Counter) IncrementBy(ctx context.Context, n uint32) (uint32, error) {
	return call(c, ports.OpIncrementBy, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.IncrementBy(ctx, h, n)
	})
}

// DecrementBy subtracts n and returns the new value.
func (c *Counter) DecrementBy(ctx context.Context, n uint32) (uint32, error) {
	return call(c, ports.OpDecrementBy, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.DecrementBy(ctx, h, n)
	})
}

// IncrementByMany adds every element of values and returns the new value.
// values must be non-empty.
func (c *Counter) IncrementByMany(ctx context.Context, values []uint32) (uint32, error) {
	if err := checkBulk(ports.OpIncrementByMany, values, c.maxBulkValues); err != nil {
		return 0, err
	}
	return call(c, ports.OpIncrementByMany, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.IncrementByMany(ctx, h, values)
	})
}

// DecrementByMany subtracts every element of values and returns the new value.
// values must be non-empty.
func (c *Counter) DecrementByMany(ctx context.Context, values []uint32) (uint32, error) {
	if err := checkBulk(ports.OpDecrementByMany, values, c.maxBulkValues); err != nil {
		return 0, err
	}
	return call(c, ports.OpDecrementByMany, func(h entities.NativeHandle) (uint32, error) {
		return c.bindings.DecrementByMany(ctx, h, values)
	})
}

// Positions returns a copy of the recorded positions. The slice is owned by
// the caller and is empty, not nil, when there are none.
func (c *Counter) Positions(ctx context.Context) ([]entities.Position, error) {
	positions, err := call(c, ports.OpPositions, func(h entities.NativeHandle) ([]entities.Position, error) {
		return c.bindings.Positions(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	if positions == nil {
		positions = []entities.Position{}
	}
	return positions, nil
}

// Close destroys the native counter. It is safe to call more than once;
// calls after the first return nil.
func (c *Counter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw := c.handle.Raw()
	if err := c.handle.Release(); err != nil {
		c.logger.Error("counter: destroy failed", "handle", raw.String(), "error", err)
		return wrapNative(ports.OpDestroy, err)
	}
	if !raw.IsNull() {
		c.logger.Debug("counter: destroyed", "handle", raw.String())
	}
	return nil
}

// Closed reports whether Close has run.
func (c *Counter) Closed() bool {
	return c.handle.IsInvalid()
}

// call runs fn with the live handle under the instance lock. The Safe is kept
// reachable until fn returns so the cleanup cannot destroy the handle mid-call.
func call[T any](c *Counter, op string, fn func(entities.NativeHandle) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer runtime.KeepAlive(c.handle)

	var zero T
	h := c.handle.Raw()
	if h.IsNull() {
		return zero, &domainErrors.UseAfterDisposeError{Operation: op}
	}

	out, err := fn(h)
	if err != nil {
		return zero, wrapNative(op, err)
	}
	return out, nil
}

func wrapNative(op string, err error) error {
	var nativeErr *domainErrors.NativeCallError
	if stdErrors.As(err, &nativeErr) {
		return err
	}
	return &domainErrors.NativeCallError{Operation: op, Err: err}
}
