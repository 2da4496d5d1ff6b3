//go:build cgo

package native

/*
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

#define COUNTER_LIVE     0x434e5452u
#define COUNTER_POISONED 0xdeadc0deu
#define COUNTER_DEFAULT_POSITIONS 3

typedef struct {
	uint32_t init;
	uint32_t by;
} counter_args;

typedef struct {
	uint32_t val;
	uint32_t by;
} counter_data;

typedef struct {
	float x;
	float y;
} vector2;

typedef struct {
	uint32_t magic;
	uint32_t val;
	uint32_t by;
	uint32_t positions_len;
	vector2 *positions;
} counter;

// Stale handles are caller bugs. Poisoned memory is only detected until the
// allocator reuses it.
static counter *checked(counter *c) {
	if (c != NULL && c->magic != COUNTER_LIVE) {
		abort();
	}
	return c;
}

static counter *as_counter(uintptr_t h) {
	return checked((counter *)h);
}

static counter *createCounter(counter_args args) {
	counter *c = malloc(sizeof(counter));
	if (c == NULL) {
		return NULL;
	}
	c->positions = malloc(sizeof(vector2) * COUNTER_DEFAULT_POSITIONS);
	if (c->positions == NULL) {
		free(c);
		return NULL;
	}
	for (uint32_t i = 0; i < COUNTER_DEFAULT_POSITIONS; i++) {
		c->positions[i].x = (float)i;
		c->positions[i].y = (float)i;
	}
	c->positions_len = COUNTER_DEFAULT_POSITIONS;
	c->magic = COUNTER_LIVE;
	c->val = args.init;
	c->by = args.by;
	return c;
}

static void destroyCounter(counter *c) {
	if (c == NULL) {
		return;
	}
	free(c->positions);
	c->positions = NULL;
	c->positions_len = 0;
	c->magic = COUNTER_POISONED;
	free(c);
}

static counter_data getCounterData(const counter *c) {
	counter_data d = {0, 0};
	if (c != NULL) {
		d.val = c->val;
		d.by = c->by;
	}
	return d;
}

static uint32_t getCounterValue(counter *c) {
	return c == NULL ? 0 : c->val;
}

static uint32_t incrementCounter(counter *c) {
	if (c == NULL) {
		return 0;
	}
	c->val += c->by;
	return c->val;
}

static uint32_t decrementCounter(counter *c) {
	if (c == NULL) {
		return 0;
	}
	c->val -= c->by;
	return c->val;
}

static uint32_t incrementCounterBy(counter *c, uint32_t by) {
	if (c == NULL) {
		return 0;
	}
	c->val += by;
	return c->val;
}

static uint32_t decrementCounterBy(counter *c, uint32_t by) {
	if (c == NULL) {
		return 0;
	}
	c->val -= by;
	return c->val;
}

static uint32_t incrementCounterByMany(counter *c, const uint32_t *by, uint32_t len) {
	if (c == NULL) {
		return 0;
	}
	for (uint32_t i = 0; i < len; i++) {
		c->val += by[i];
	}
	return c->val;
}

static uint32_t decrementCounterByMany(counter *c, const uint32_t *by, uint32_t len) {
	if (c == NULL) {
		return 0;
	}
	for (uint32_t i = 0; i < len; i++) {
		c->val -= by[i];
	}
	return c->val;
}

static const vector2 *getCounterPositions(const counter *c, uint32_t *out_len) {
	if (c == NULL) {
		*out_len = 0;
		return NULL;
	}
	*out_len = c->positions_len;
	return c->positions;
}

static size_t counter_args_size(void)      { return sizeof(counter_args); }
static size_t counter_data_size(void)      { return sizeof(counter_data); }
static size_t vector2_size(void)           { return sizeof(vector2); }
static size_t counter_args_by_offset(void) { return offsetof(counter_args, by); }
static size_t counter_data_by_offset(void) { return offsetof(counter_data, by); }
static size_t vector2_y_offset(void)       { return offsetof(vector2, y); }
*/
import "C"

import (
	"context"
	"errors"
	"unsafe"

	"github.com/reglet-dev/native-counter/domain/entities"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/reglet-dev/native-counter/internal/abi"
)

var errPositionsOverflow = errors.New("position buffer size overflows u32")

// Bindings calls the C engine. It holds no state; every method is a direct
// cgo call.
type Bindings struct{}

var _ ports.CounterBindings = (*Bindings)(nil)

// NewBindings returns the cgo binding set.
func NewBindings() (ports.CounterBindings, error) {
	return &Bindings{}, nil
}

func ptr(h entities.NativeHandle) *C.counter {
	return C.as_counter(C.uintptr_t(h))
}

func (*Bindings) Create(_ context.Context, args entities.CounterArgs) (entities.NativeHandle, error) {
	c := C.createCounter(C.counter_args{init: C.uint32_t(args.Init), by: C.uint32_t(args.By)})
	return entities.NativeHandle(uintptr(unsafe.Pointer(c))), nil
}

func (*Bindings) Destroy(_ context.Context, h entities.NativeHandle) error {
	C.destroyCounter(ptr(h))
	return nil
}

func (*Bindings) Value(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return uint32(C.getCounterValue(ptr(h))), nil
}

func (*Bindings) Snapshot(_ context.Context, h entities.NativeHandle) (entities.CounterSnapshot, error) {
	d := C.getCounterData(ptr(h))
	return entities.CounterSnapshot{Val: uint32(d.val), By: uint32(d.by)}, nil
}

func (*Bindings) Increment(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return uint32(C.incrementCounter(ptr(h))), nil
}

func (*Bindings) Decrement(_ context.Context, h entities.NativeHandle) (uint32, error) {
	return uint32(C.decrementCounter(ptr(h))), nil
}

func (*Bindings) IncrementBy(_ context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return uint32(C.incrementCounterBy(ptr(h), C.uint32_t(by))), nil
}

func (*Bindings) DecrementBy(_ context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return uint32(C.decrementCounterBy(ptr(h), C.uint32_t(by))), nil
}

// The slice's backing array is passed directly; it holds no Go pointers and
// cgo pins it for the duration of the call.
func (*Bindings) IncrementByMany(_ context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	if len(values) == 0 {
		return 0, &domainErrors.InvalidArgumentError{Operation: ports.OpIncrementByMany, Argument: "values", Reason: "must not be empty"}
	}
	v := C.incrementCounterByMany(ptr(h), (*C.uint32_t)(unsafe.Pointer(&values[0])), C.uint32_t(len(values)))
	return uint32(v), nil
}

func (*Bindings) DecrementByMany(_ context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	if len(values) == 0 {
		return 0, &domainErrors.InvalidArgumentError{Operation: ports.OpDecrementByMany, Argument: "values", Reason: "must not be empty"}
	}
	v := C.decrementCounterByMany(ptr(h), (*C.uint32_t)(unsafe.Pointer(&values[0])), C.uint32_t(len(values)))
	return uint32(v), nil
}

// Positions copies the engine's buffer with C.GoBytes and decodes the copy.
// The buffer belongs to the counter and is freed by destroyCounter.
func (*Bindings) Positions(_ context.Context, h entities.NativeHandle) ([]entities.Position, error) {
	var n C.uint32_t
	p := C.getCounterPositions(ptr(h), &n)
	count := uint32(n)
	if p == nil || count == 0 {
		return []entities.Position{}, nil
	}

	size, ok := abi.PositionsSize(count)
	if !ok {
		return nil, &domainErrors.NativeCallError{
			Operation: ports.OpPositions,
			Backend:   Backend,
			Err:       &domainErrors.WireFormatError{Operation: "decode", Type: "Position", Err: errPositionsOverflow},
		}
	}
	buf := C.GoBytes(unsafe.Pointer(p), C.int(size))
	positions, err := abi.DecodePositions(buf, count)
	if err != nil {
		return nil, &domainErrors.NativeCallError{Operation: ports.OpPositions, Backend: Backend, Err: err}
	}
	return positions, nil
}

// Layout reports the C compiler's view of the boundary structs.
type Layout struct {
	ArgsSize         uintptr
	SnapshotSize     uintptr
	PositionSize     uintptr
	ArgsByOffset     uintptr
	SnapshotByOffset uintptr
	PositionYOffset  uintptr
}

// CLayout returns the struct layout the C engine was compiled with.
func CLayout() Layout {
	return Layout{
		ArgsSize:         uintptr(C.counter_args_size()),
		SnapshotSize:     uintptr(C.counter_data_size()),
		PositionSize:     uintptr(C.vector2_size()),
		ArgsByOffset:     uintptr(C.counter_args_by_offset()),
		SnapshotByOffset: uintptr(C.counter_data_by_offset()),
		PositionYOffset:  uintptr(C.vector2_y_offset()),
	}
}
