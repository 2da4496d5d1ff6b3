package ports

import (
	"context"

	"github.com/reglet-dev/native-counter/domain/entities"
)

// Entry point names, shared by logs, metrics and errors.
const (
	OpCreate          = "create"
	OpDestroy         = "destroy"
	OpValue           = "value"
	OpSnapshot        = "snapshot"
	OpIncrement       = "increment"
	OpDecrement       = "decrement"
	OpIncrementBy     = "increment_by"
	OpDecrementBy     = "decrement_by"
	OpIncrementByMany = "increment_by_many"
	OpDecrementByMany = "decrement_by_many"
	OpPositions       = "positions"
)

// Ops lists every entry point in declaration order.
var Ops = []string{
	OpCreate, OpDestroy, OpValue, OpSnapshot,
	OpIncrement, OpDecrement, OpIncrementBy, OpDecrementBy,
	OpIncrementByMany, OpDecrementByMany, OpPositions,
}

// CounterBindings is the foreign function surface of a native counter engine.
//
// Handles passed in must come from Create on the same bindings and must not
// have been passed to Destroy. Violating that is a programming error; engines
// are expected to fail loudly rather than report it.
//
// Returned errors are failures the native layer itself reported. They are
// surfaced to callers as-is.
type CounterBindings interface {
	// Create allocates a counter. Returns entities.NullHandle if the engine
	// could not allocate.
	Create(ctx context.Context, args entities.CounterArgs) (entities.NativeHandle, error)

	// Destroy frees the counter. h must not be used afterwards.
	Destroy(ctx context.Context, h entities.NativeHandle) error

	Value(ctx context.Context, h entities.NativeHandle) (uint32, error)
	Snapshot(ctx context.Context, h entities.NativeHandle) (entities.CounterSnapshot, error)
	Increment(ctx context.Context, h entities.NativeHandle) (uint32, error)
	Decrement(ctx context.Context, h entities.NativeHandle) (uint32, error)
	IncrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error)
	DecrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error)

	// IncrementByMany and DecrementByMany expose values to the engine for the
	// duration of the call only. values must be non-empty.
	IncrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error)
	DecrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error)

	// Positions copies the engine's borrowed position buffer into a freshly
	// allocated slice before returning. The buffer stays owned by the engine.
	Positions(ctx context.Context, h entities.NativeHandle) ([]entities.Position, error)
}
