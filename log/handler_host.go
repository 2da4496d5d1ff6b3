//go:build !wasip1

package log

import (
	"context"
	"log/slog"
)

// Handle re-emits the encoded record through the fallback handler. Outside
// the engine there is no host import, so this keeps guest code testable.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	fallback := h.opts.fallback
	if fallback == nil {
		fallback = slog.Default().Handler()
	}
	decoded, err := DecodeRecord(h.encode(record))
	if err != nil {
		return err
	}
	if !fallback.Enabled(ctx, decoded.Level) {
		return nil
	}
	return fallback.Handle(ctx, decoded)
}
