//go:build wasip1

package abi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMemoryManager() {
	memoryManager.Lock()
	clear(memoryManager.ptrs)
	memoryManager.totalAllocated = 0
	memoryManager.limit = DefaultMaxTotalAllocations
	memoryManager.Unlock()
}

func readPacked(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	return append([]byte(nil), Bytes(ptr, length)...)
}

func TestAllocateDeallocate(t *testing.T) {
	resetMemoryManager()

	size := uint32(1024)
	ptr := allocate(size)
	require.NotZero(t, ptr, "allocate returned 0")

	allocCount, totalBytes := Stats()
	assert.Equal(t, 1, allocCount)
	assert.Equal(t, int(size), totalBytes)

	data := []byte("hello world")
	copy(Bytes(ptr, uint32(len(data))), data)
	assert.Equal(t, data, readPacked(PackPtrLen(ptr, uint32(len(data)))))

	deallocate(ptr, size)

	allocCount, totalBytes = Stats()
	assert.Equal(t, 0, allocCount)
	assert.Equal(t, 0, totalBytes)
}

func TestAllocate_ZeroSize(t *testing.T) {
	assert.Zero(t, allocate(0))
}

func TestDeallocate_Idempotent(t *testing.T) {
	resetMemoryManager()

	ptr := allocate(100)
	deallocate(ptr, 100)
	deallocate(ptr, 100)

	_, totalBytes := Stats()
	assert.Equal(t, 0, totalBytes)
}

func TestAllocate_LimitReturnsZero(t *testing.T) {
	resetMemoryManager()
	Configure(WithMaxTotalAllocations(1024))
	defer resetMemoryManager()

	ptr := allocate(512)
	require.NotZero(t, ptr)
	assert.Zero(t, allocate(2048), "allocation over the limit must fail")
	deallocate(ptr, 512)
}

func TestConfigure_InvalidLimit(t *testing.T) {
	resetMemoryManager()

	Configure(WithMaxTotalAllocations(0))
	Configure(WithMaxTotalAllocations(-100))

	ptr := allocate(1024)
	require.NotZero(t, ptr)
	deallocate(ptr, 1024)
}

func TestStoreUint32(t *testing.T) {
	resetMemoryManager()

	ptr := allocate(Uint32Size)
	require.NotZero(t, ptr)
	StoreUint32(ptr, 0xCAFEBABE)
	assert.Equal(t, []uint32{0xCAFEBABE}, Uint32s(ptr, 1))
	deallocate(ptr, Uint32Size)
}

func TestPtrFromBytes(t *testing.T) {
	resetMemoryManager()

	data := []byte("log record")
	packed := PtrFromBytes(data)
	assert.Equal(t, data, readPacked(packed))

	DeallocatePacked(packed)
	allocCount, _ := Stats()
	assert.Equal(t, 0, allocCount)

	assert.Zero(t, PtrFromBytes(nil))
	DeallocatePacked(0)
}

func TestConcurrency(t *testing.T) {
	resetMemoryManager()

	var wg sync.WaitGroup
	iterations := 100

	wg.Add(iterations)
	for i := 0; i < iterations; i++ {
		go func() {
			defer wg.Done()
			packed := PtrFromBytes([]byte("concurrent test data"))
			_ = readPacked(packed)
			DeallocatePacked(packed)
		}()
	}
	wg.Wait()

	allocCount, _ := Stats()
	assert.Equal(t, 0, allocCount)
}
