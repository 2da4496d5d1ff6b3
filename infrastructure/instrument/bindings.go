// Package instrument wraps a ports.CounterBindings with call counting,
// Prometheus metrics and debug logging.
package instrument

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
)

// Bindings decorates another binding set. Every entry point is forwarded
// unchanged; arguments and results are observed, never altered.
type Bindings struct {
	next    ports.CounterBindings
	backend string
	logger  *slog.Logger
	metrics *Metrics
	calls   map[string]*atomic.Int64
}

var _ ports.CounterBindings = (*Bindings)(nil)

// Option configures Bindings.
type Option func(*Bindings)

// WithLogger sets the logger for per-call debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bindings) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records calls into m.
func WithMetrics(m *Metrics) Option {
	return func(b *Bindings) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithBackend sets the backend label used in logs and metrics.
func WithBackend(name string) Option {
	return func(b *Bindings) {
		b.backend = name
	}
}

// Wrap returns next decorated with instrumentation.
func Wrap(next ports.CounterBindings, opts ...Option) *Bindings {
	b := &Bindings{
		next:    next,
		backend: "unknown",
		logger:  slog.Default(),
		metrics: NewMetrics(nil),
		calls:   make(map[string]*atomic.Int64, len(ports.Ops)),
	}
	for _, op := range ports.Ops {
		b.calls[op] = new(atomic.Int64)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Calls returns how many times the named entry point was invoked.
func (b *Bindings) Calls(op string) int64 {
	if c, ok := b.calls[op]; ok {
		return c.Load()
	}
	return 0
}

// TotalCalls returns the number of invocations across all entry points.
func (b *Bindings) TotalCalls() int64 {
	var total int64
	for _, c := range b.calls {
		total += c.Load()
	}
	return total
}

func observe[T any](ctx context.Context, b *Bindings, op string, h entities.NativeHandle, fn func() (T, error)) (T, error) {
	b.calls[op].Add(1)
	b.metrics.calls.With(b.backend, op).Inc()

	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)

	b.metrics.duration.With(b.backend, op).Observe(elapsed.Seconds())
	if err != nil {
		b.metrics.errors.With(b.backend, op).Inc()
		b.logger.WarnContext(ctx, "native call failed",
			"backend", b.backend, "op", op, "handle", h.String(), "error", err)
		return out, err
	}

	b.logger.DebugContext(ctx, "native call",
		"backend", b.backend, "op", op, "handle", h.String(), "duration", elapsed)
	return out, nil
}

func (b *Bindings) Create(ctx context.Context, args entities.CounterArgs) (entities.NativeHandle, error) {
	var h entities.NativeHandle
	return observe(ctx, b, ports.OpCreate, h, func() (entities.NativeHandle, error) {
		return b.next.Create(ctx, args)
	})
}

func (b *Bindings) Destroy(ctx context.Context, h entities.NativeHandle) error {
	_, err := observe(ctx, b, ports.OpDestroy, h, func() (struct{}, error) {
		return struct{}{}, b.next.Destroy(ctx, h)
	})
	return err
}

func (b *Bindings) Value(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return observe(ctx, b, ports.OpValue, h, func() (uint32, error) {
		return b.next.Value(ctx, h)
	})
}

func (b *Bindings) Snapshot(ctx context.Context, h entities.NativeHandle) (entities.CounterSnapshot, error) {
	return observe(ctx, b, ports.OpSnapshot, h, func() (entities.CounterSnapshot, error) {
		return b.next.Snapshot(ctx, h)
	})
}

func (b *Bindings) Increment(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return observe(ctx, b, ports.OpIncrement, h, func() (uint32, error) {
		return b.next.Increment(ctx, h)
	})
}

func (b *Bindings) Decrement(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return observe(ctx, b, ports.OpDecrement, h, func() (uint32, error) {
		return b.next.Decrement(ctx, h)
	})
}

func (b *Bindings) IncrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return observe(ctx, b, ports.OpIncrementBy, h, func() (uint32, error) {
		return b.next.IncrementBy(ctx, h, by)
	})
}

func (b *Bindings) DecrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return observe(ctx, b, ports.OpDecrementBy, h, func() (uint32, error) {
		return b.next.DecrementBy(ctx, h, by)
	})
}

func (b *Bindings) IncrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	return observe(ctx, b, ports.OpIncrementByMany, h, func() (uint32, error) {
		return b.next.IncrementByMany(ctx, h, values)
	})
}

func (b *Bindings) DecrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	return observe(ctx, b, ports.OpDecrementByMany, h, func() (uint32, error) {
		return b.next.DecrementByMany(ctx, h, values)
	})
}

func (b *Bindings) Positions(ctx context.Context, h entities.NativeHandle) ([]entities.Position, error) {
	return observe(ctx, b, ports.OpPositions, h, func() ([]entities.Position, error) {
		return b.next.Positions(ctx, h)
	})
}
