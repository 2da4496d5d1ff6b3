// Package countertest provides an in-memory counter engine implementing
// ports.CounterBindings, for tests that must not depend on cgo or wasm.
package countertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
)

// DefaultPositions are the positions every new counter records.
var DefaultPositions = []entities.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}

const handleStride = 0x10

type fakeCounter struct {
	val       uint32
	by        uint32
	positions []entities.Position
}

// Engine is a fake native counter engine. Like a real engine it trusts its
// callers: a stale or unknown handle panics.
type Engine struct {
	mu        sync.Mutex
	counters  map[entities.NativeHandle]*fakeCounter
	next      entities.NativeHandle
	positions []entities.Position
	failAlloc bool
	failures  map[string]error
	destroyed int
}

var _ ports.CounterBindings = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithPositions sets the positions recorded by new counters. An empty slice
// yields counters with no positions.
func WithPositions(positions []entities.Position) Option {
	return func(e *Engine) {
		e.positions = append([]entities.Position(nil), positions...)
	}
}

// WithAllocationFailure makes Create return the null handle.
func WithAllocationFailure() Option {
	return func(e *Engine) {
		e.failAlloc = true
	}
}

// WithFailure makes the named entry point return err without side effects.
func WithFailure(op string, err error) Option {
	return func(e *Engine) {
		e.failures[op] = err
	}
}

// NewEngine creates a fake engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		counters:  make(map[entities.NativeHandle]*fakeCounter),
		next:      handleStride,
		positions: DefaultPositions,
		failures:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Live returns the number of counters not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.counters)
}

// Destroyed returns the number of successful destroy calls.
func (e *Engine) Destroyed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

func (e *Engine) lookup(op string, h entities.NativeHandle) (*fakeCounter, error) {
	if err := e.failures[op]; err != nil {
		return nil, err
	}
	c, ok := e.counters[h]
	if !ok {
		panic(fmt.Sprintf("countertest: %s on stale handle %s", op, h))
	}
	return c, nil
}

func (e *Engine) Create(_ context.Context, args entities.CounterArgs) (entities.NativeHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.failures[ports.OpCreate]; err != nil {
		return entities.NullHandle, err
	}
	if e.failAlloc {
		return entities.NullHandle, nil
	}

	h := e.next
	e.next += handleStride
	e.counters[h] = &fakeCounter{
		val:       args.Init,
		by:        args.By,
		positions: append([]entities.Position(nil), e.positions...),
	}
	return h, nil
}

func (e *Engine) Destroy(_ context.Context, h entities.NativeHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.lookup(ports.OpDestroy, h); err != nil {
		return err
	}
	delete(e.counters, h)
	e.destroyed++
	return nil
}

func (e *Engine) Value(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return e.apply(ports.OpValue, h, func(c *fakeCounter) {})
}

func (e *Engine) Snapshot(_ context.Context, h entities.NativeHandle) (entities.CounterSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(ports.OpSnapshot, h)
	if err != nil {
		return entities.CounterSnapshot{}, err
	}
	return entities.CounterSnapshot{Val: c.val, By: c.by}, nil
}

func (e *Engine) Increment(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return e.apply(ports.OpIncrement, h, func(c *fakeCounter) { c.val += c.by })
}

func (e *Engine) Decrement(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return e.apply(ports.OpDecrement, h, func(c *fakeCounter) { c.val -= c.by })
}

func (e *Engine) IncrementBy(_ context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return e.apply(ports.OpIncrementBy, h, func(c *fakeCounter) { c.val += by })
}

func (e *Engine) DecrementBy(_ context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return e.apply(ports.OpDecrementBy, h, func(c *fakeCounter) { c.val -= by })
}

func (e *Engine) IncrementByMany(_ context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	mustHaveFirst(ports.OpIncrementByMany, values)
	return e.apply(ports.OpIncrementByMany, h, func(c *fakeCounter) {
		for _, v := range values {
			c.val += v
		}
	})
}

func (e *Engine) DecrementByMany(_ context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	mustHaveFirst(ports.OpDecrementByMany, values)
	return e.apply(ports.OpDecrementByMany, h, func(c *fakeCounter) {
		for _, v := range values {
			c.val -= v
		}
	})
}

func (e *Engine) Positions(_ context.Context, h entities.NativeHandle) ([]entities.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(ports.OpPositions, h)
	if err != nil {
		return nil, err
	}
	if len(c.positions) == 0 {
		return nil, nil
	}
	out := make([]entities.Position, len(c.positions))
	copy(out, c.positions)
	return out, nil
}

func (e *Engine) apply(op string, h entities.NativeHandle, fn func(*fakeCounter)) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(op, h)
	if err != nil {
		return 0, err
	}
	fn(c)
	return c.val, nil
}

// mustHaveFirst mirrors the native engines, which read the first element
// unconditionally.
func mustHaveFirst(op string, values []uint32) {
	if len(values) == 0 {
		panic(fmt.Sprintf("countertest: %s with empty values", op))
	}
}
