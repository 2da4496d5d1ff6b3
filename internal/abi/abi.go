//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// DefaultMaxTotalAllocations bounds the memory the host may allocate in the
// engine's linear memory through the allocate export.
const DefaultMaxTotalAllocations = 16 * 1024 * 1024 // 16 MB

// memoryManager tracks every host-requested allocation in linear memory.
// Holding the slice keeps the Go GC from collecting it, which pins the
// memory until the host calls deallocate.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uint32][]byte // ptr -> slice reference
	totalAllocated int
	limit          int
}{
	ptrs:  make(map[uint32][]byte),
	limit: DefaultMaxTotalAllocations,
}

// Option configures the allocator.
type Option func(*allocatorConfig)

type allocatorConfig struct {
	maxTotal int
}

// WithMaxTotalAllocations sets the allocation limit. Non-positive values are ignored.
func WithMaxTotalAllocations(n int) Option {
	return func(c *allocatorConfig) {
		if n > 0 {
			c.maxTotal = n
		}
	}
}

// Configure applies allocator options.
func Configure(opts ...Option) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	cfg := allocatorConfig{maxTotal: memoryManager.limit}
	for _, opt := range opts {
		opt(&cfg)
	}
	memoryManager.limit = cfg.maxTotal
}

// allocate reserves size bytes in linear memory for the host and returns
// their address. Returns 0 when size is 0 or the limit would be exceeded;
// the host treats 0 as an allocation failure.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+int(size) > memoryManager.limit {
		return 0
	}

	buf := make([]byte, size)
	ptr := Addr(unsafe.Pointer(&buf[0]))

	memoryManager.ptrs[ptr] = buf
	memoryManager.totalAllocated += int(size)

	return ptr
}

// deallocate releases an allocation made by allocate. Unknown pointers are
// ignored, so a repeated call is harmless. Accounting uses the stored length,
// not the caller's size.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	stored, exists := memoryManager.ptrs[ptr]
	if !exists {
		return
	}

	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(stored)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// Stats returns the number of tracked allocations and their total size.
func Stats() (count, totalBytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

// PtrFromBytes copies data into a tracked allocation and returns it packed.
// Used when the engine hands bytes to the host (log records).
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data)) //nolint:gosec // G115: bounded by the allocation limit
	ptr := allocate(size)
	if ptr == 0 {
		panic(fmt.Sprintf("abi: allocation of %d bytes exceeds limit", size))
	}
	copy(Bytes(ptr, size), data)
	return PackPtrLen(ptr, size)
}

// DeallocatePacked frees a packed region previously returned by PtrFromBytes.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}

// Addr returns the linear-memory address of p.
func Addr(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}

// Bytes returns a view of length bytes at ptr. The view aliases linear memory.
func Bytes(ptr, length uint32) []byte {
	//nolint:gosec // G103: linear memory offset to pointer conversion
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

// Uint32s returns a view of count u32 values at ptr.
func Uint32s(ptr, count uint32) []uint32 {
	//nolint:gosec // G103: linear memory offset to pointer conversion
	return unsafe.Slice((*uint32)(unsafe.Pointer(uintptr(ptr))), count)
}

// StoreUint32 writes v at ptr. Used for out-parameters.
func StoreUint32(ptr, v uint32) {
	//nolint:gosec // G103: linear memory offset to pointer conversion
	*(*uint32)(unsafe.Pointer(uintptr(ptr))) = v
}
