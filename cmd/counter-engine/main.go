//go:build wasip1

// Command counter-engine is the counter engine compiled to WebAssembly. It is
// loaded by infrastructure/wazero.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o counter.wasm ./cmd/counter-engine
package main

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/internal/abi"
	counterlog "github.com/reglet-dev/native-counter/log"
)

type counter struct {
	val       uint32
	by        uint32
	positions []entities.Position
}

// live holds every counter not yet destroyed, keyed by its address. The map
// reference keeps the counter and its positions buffer from being collected.
var live = map[uint32]*counter{}

var defaultPositions = []entities.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}

// hostAllocationLimit caps the buffers the host may hold in linear memory at
// once. It fits the largest default bulk input (1<<20 values) twice over.
const hostAllocationLimit = 8 << 20

func init() {
	abi.Configure(abi.WithMaxTotalAllocations(hostAllocationLimit))
	slog.SetDefault(slog.New(counterlog.NewHandler(counterlog.WithLevel(slog.LevelDebug))))
}

func main() {}

// lookup returns nil for the null handle. Any other unknown handle traps.
func lookup(op string, h uint32) *counter {
	if h == 0 {
		return nil
	}
	c, ok := live[h]
	if !ok {
		panic(fmt.Sprintf("counter-engine: %s on stale handle 0x%x", op, h))
	}
	return c
}

//go:wasmexport createCounter
func createCounter(init, by uint32) uint32 {
	c := &counter{
		val:       init,
		by:        by,
		positions: append([]entities.Position(nil), defaultPositions...),
	}
	h := abi.Addr(unsafe.Pointer(c))
	live[h] = c
	slog.Debug("counter created", "handle", h, "init", init, "by", by)
	return h
}

//go:wasmexport destroyCounter
func destroyCounter(h uint32) {
	if lookup("destroy", h) == nil {
		return
	}
	delete(live, h)
	allocations, allocated := abi.Stats()
	slog.Debug("counter destroyed", "handle", h, "live", len(live), "host_allocations", allocations, "host_bytes", allocated)
}

//go:wasmexport getCounterValue
func getCounterValue(h uint32) uint32 {
	c := lookup("value", h)
	if c == nil {
		return 0
	}
	return c.val
}

//go:wasmexport getCounterData
func getCounterData(h uint32) uint64 {
	c := lookup("snapshot", h)
	if c == nil {
		return 0
	}
	return abi.PackSnapshot(entities.CounterSnapshot{Val: c.val, By: c.by})
}

//go:wasmexport incrementCounter
func incrementCounter(h uint32) uint32 {
	return step(lookup("increment", h), func(c *counter) { c.val += c.by })
}

//go:wasmexport decrementCounter
func decrementCounter(h uint32) uint32 {
	return step(lookup("decrement", h), func(c *counter) { c.val -= c.by })
}

//go:wasmexport incrementCounterBy
func incrementCounterBy(h, by uint32) uint32 {
	return step(lookup("increment_by", h), func(c *counter) { c.val += by })
}

//go:wasmexport decrementCounterBy
func decrementCounterBy(h, by uint32) uint32 {
	return step(lookup("decrement_by", h), func(c *counter) { c.val -= by })
}

// The values array is host-allocated and only read during the call.
//
//go:wasmexport incrementCounterByMany
func incrementCounterByMany(h, ptr, length uint32) uint32 {
	return step(lookup("increment_by_many", h), func(c *counter) {
		for _, v := range abi.Uint32s(ptr, length) {
			c.val += v
		}
	})
}

//go:wasmexport decrementCounterByMany
func decrementCounterByMany(h, ptr, length uint32) uint32 {
	return step(lookup("decrement_by_many", h), func(c *counter) {
		for _, v := range abi.Uint32s(ptr, length) {
			c.val -= v
		}
	})
}

// getCounterPositions returns the address of the counter's own positions
// buffer and stores its length at outLen. The buffer stays valid until the
// counter is destroyed; the host must copy it.
//
//go:wasmexport getCounterPositions
func getCounterPositions(h, outLen uint32) uint32 {
	c := lookup("positions", h)
	if c == nil || len(c.positions) == 0 {
		abi.StoreUint32(outLen, 0)
		return 0
	}
	abi.StoreUint32(outLen, uint32(len(c.positions))) //nolint:gosec // G115: bounded by memory size
	return abi.Addr(unsafe.Pointer(&c.positions[0]))
}

func step(c *counter, fn func(*counter)) uint32 {
	if c == nil {
		return 0
	}
	fn(c)
	return c.val
}
