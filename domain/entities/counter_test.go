package entities

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		name    string
		size    uintptr
		offsets []uintptr
		want    []uintptr
	}{
		{
			name:    "CounterArgs",
			size:    unsafe.Sizeof(CounterArgs{}),
			offsets: []uintptr{unsafe.Offsetof(CounterArgs{}.Init), unsafe.Offsetof(CounterArgs{}.By)},
			want:    []uintptr{0, 4},
		},
		{
			name:    "CounterSnapshot",
			size:    unsafe.Sizeof(CounterSnapshot{}),
			offsets: []uintptr{unsafe.Offsetof(CounterSnapshot{}.Val), unsafe.Offsetof(CounterSnapshot{}.By)},
			want:    []uintptr{0, 4},
		},
		{
			name:    "Position",
			size:    unsafe.Sizeof(Position{}),
			offsets: []uintptr{unsafe.Offsetof(Position{}.X), unsafe.Offsetof(Position{}.Y)},
			want:    []uintptr{0, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, uintptr(8), tt.size, "struct size")
			assert.Equal(t, tt.want, tt.offsets, "field offsets")
		})
	}
}

func TestNativeHandle(t *testing.T) {
	assert.True(t, NullHandle.IsNull())
	assert.False(t, NativeHandle(0x10).IsNull())
	assert.Equal(t, "0x10", NativeHandle(0x10).String())
}
