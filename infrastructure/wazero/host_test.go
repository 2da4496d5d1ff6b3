package wazero

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	counterlog "github.com/reglet-dev/native-counter/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

// fakeMemory serves reads from a byte slice at offset base.
type fakeMemory struct {
	api.Memory
	base uint32
	data []byte
}

func (m *fakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if offset < m.base || uint64(offset-m.base)+uint64(byteCount) > uint64(len(m.data)) {
		return nil, false
	}
	start := offset - m.base
	return m.data[start : start+byteCount], true
}

type fakeModule struct {
	api.Module
	mem *fakeMemory
}

func (m *fakeModule) Memory() api.Memory { return m.mem }

func newLogCapture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestUnpackPtrLen(t *testing.T) {
	tests := []struct {
		packed uint64
		ptr    uint32
		length uint32
	}{
		{packed: 0, ptr: 0, length: 0},
		{packed: 100<<32 | 50, ptr: 100, length: 50},
		{packed: 0xFFFFFFFF<<32 | 0xFFFFFFFF, ptr: 0xFFFFFFFF, length: 0xFFFFFFFF},
		{packed: 7, ptr: 0, length: 0},
	}

	for _, tt := range tests {
		ptr, length := unpackPtrLen(tt.packed)
		assert.Equal(t, tt.ptr, ptr)
		assert.Equal(t, tt.length, length)
	}
}

func TestHandleLogMessage(t *testing.T) {
	msg := counterlog.LogMessageWire{
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Level:     "DEBUG",
		Message:   "counter created",
		Attrs:     []counterlog.LogAttrWire{{Key: "handle", Type: "uint64", Value: "65536"}},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	const base = 0x1000
	mod := &fakeModule{mem: &fakeMemory{base: base, data: data}}
	logger, buf := newLogCapture()

	stack := []uint64{uint64(base)<<32 | uint64(len(data))}
	handleLogMessage(context.Background(), mod, stack, logger, DefaultMaxLogMessageSize)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "counter created", out["msg"])
	assert.Equal(t, "DEBUG", out["level"])
	assert.Equal(t, float64(65536), out["handle"])
}

func TestHandleLogMessage_Rejected(t *testing.T) {
	valid, err := json.Marshal(counterlog.LogMessageWire{Level: "INFO", Message: "hi"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		packed  uint64
		maxSize uint32
		wantLog string
	}{
		{name: "too large", data: valid, packed: 0x1000<<32 | uint64(len(valid)), maxSize: 4, wantLog: "exceeds maximum size"},
		{name: "out of range", data: valid, packed: 0x9000<<32 | uint64(len(valid)), maxSize: 1024, wantLog: "failed to read"},
		{name: "not json", data: []byte("{{"), packed: 0x1000<<32 | 2, maxSize: 1024, wantLog: "invalid log message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := &fakeModule{mem: &fakeMemory{base: 0x1000, data: tt.data}}
			logger, buf := newLogCapture()

			handleLogMessage(context.Background(), mod, []uint64{tt.packed}, logger, tt.maxSize)
			assert.Contains(t, buf.String(), tt.wantLog)
		})
	}
}

func TestHandleLogMessage_FilteredByLevel(t *testing.T) {
	data, err := json.Marshal(counterlog.LogMessageWire{Level: "DEBUG", Message: "quiet"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	mod := &fakeModule{mem: &fakeMemory{base: 0x1000, data: data}}

	handleLogMessage(context.Background(), mod, []uint64{0x1000<<32 | uint64(len(data))}, logger, 1024)
	assert.Empty(t, buf.String())
}
