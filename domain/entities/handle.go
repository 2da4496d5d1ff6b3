package entities

import "fmt"

// NativeHandle is an opaque machine-word identifier for native-owned state.
// The managed side never interprets its bits.
type NativeHandle uintptr

// NullHandle is the sentinel for "no resource".
const NullHandle NativeHandle = 0

// IsNull reports whether h is the invalid sentinel.
func (h NativeHandle) IsNull() bool {
	return h == NullHandle
}

func (h NativeHandle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}
