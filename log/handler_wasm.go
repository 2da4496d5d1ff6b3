//go:build wasip1

package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/native-counter/internal/abi"
)

// The host registers this import in infrastructure/wazero.
//
//go:wasmimport counter_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// Handle serializes a slog.Record and sends it to the host via a host function.
func (h *WasmLogHandler) Handle(_ context.Context, record slog.Record) error {
	requestBytes, err := json.Marshal(h.encode(record))
	if err != nil {
		fmt.Printf("counter-engine: failed to marshal log message for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	packed := abi.PtrFromBytes(requestBytes)
	host_log_message(packed)
	abi.DeallocatePacked(packed)
	return nil
}
