// Package abi defines how values cross a byte-addressed native boundary:
// fixed-layout struct codecs, pointer/length packing and, for the wasm
// engine, the guest-side allocator.
//
// All multi-byte fields are little-endian, in the native engine's field order.
package abi

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/reglet-dev/native-counter/domain/entities"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
)

// Wire sizes in bytes. They equal unsafe.Sizeof of the entities types and
// sizeof of the C structs.
const (
	Uint32Size   = 4
	ArgsSize     = 8
	SnapshotSize = 8
	PositionSize = 8
)

// PtrHighBits is the shift of the pointer half in a packed ptr/len value.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// EncodeArgs lays out CounterArgs as {init u32, by u32}.
func EncodeArgs(a entities.CounterArgs) []byte {
	buf := make([]byte, 0, ArgsSize)
	buf = binary.LittleEndian.AppendUint32(buf, a.Init)
	return binary.LittleEndian.AppendUint32(buf, a.By)
}

// DecodeArgs is the inverse of EncodeArgs.
func DecodeArgs(buf []byte) (entities.CounterArgs, error) {
	if len(buf) < ArgsSize {
		return entities.CounterArgs{}, shortBuffer("CounterArgs", ArgsSize, len(buf))
	}
	return entities.CounterArgs{
		Init: binary.LittleEndian.Uint32(buf[0:]),
		By:   binary.LittleEndian.Uint32(buf[4:]),
	}, nil
}

// PackSnapshot returns a CounterSnapshot as a single i64: val in the low
// 32 bits, by in the high 32 bits. This is how the wasm engine returns the
// struct by value.
func PackSnapshot(s entities.CounterSnapshot) uint64 {
	return uint64(s.By)<<32 | uint64(s.Val)
}

// UnpackSnapshot is the inverse of PackSnapshot.
func UnpackSnapshot(packed uint64) entities.CounterSnapshot {
	return entities.CounterSnapshot{
		Val: uint32(packed),       //nolint:gosec // G115: low half
		By:  uint32(packed >> 32), //nolint:gosec // G115: high half
	}
}

// EncodeUint32s lays out values as a contiguous u32 array.
func EncodeUint32s(values []uint32) []byte {
	buf := make([]byte, 0, len(values)*Uint32Size)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

// EncodePositions lays out positions as a contiguous {x f32, y f32} array.
func EncodePositions(positions []entities.Position) []byte {
	buf := make([]byte, 0, len(positions)*PositionSize)
	for _, p := range positions {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.X))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.Y))
	}
	return buf
}

// DecodePositions copies count positions out of buf into a new slice.
// The result never aliases buf, so buf may be a borrowed view.
func DecodePositions(buf []byte, count uint32) ([]entities.Position, error) {
	need := int(count) * PositionSize
	if len(buf) < need {
		return nil, shortBuffer("Position", need, len(buf))
	}
	out := make([]entities.Position, count)
	for i := range out {
		off := i * PositionSize
		out[i] = entities.Position{
			X: math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
		}
	}
	return out, nil
}

// PositionsSize returns the byte size of count positions, or false if it
// does not fit in a 32-bit address space.
func PositionsSize(count uint32) (uint32, bool) {
	size := uint64(count) * PositionSize
	if size > math.MaxUint32 {
		return 0, false
	}
	return uint32(size), true
}

func shortBuffer(typ string, need, have int) error {
	return &domainErrors.WireFormatError{
		Operation: "decode",
		Type:      typ,
		Err:       fmt.Errorf("need %d bytes, have %d", need, have),
	}
}
