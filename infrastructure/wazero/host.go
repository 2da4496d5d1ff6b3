package wazero

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/native-counter/internal/abi"
	counterlog "github.com/reglet-dev/native-counter/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// registerHostModule instantiates the host module the engine imports from.
// log_message is always exported; cfg.CustomHandlers are added after it.
func registerHostModule(ctx context.Context, runtime wazero.Runtime, cfg Config) error {
	builder := runtime.NewHostModuleBuilder(cfg.HostModuleName)

	logger := cfg.Logger.With("engine", cfg.EngineModuleName)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handleLogMessage(ctx, mod, stack, logger, cfg.MaxLogMessageSize)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message")

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// handleLogMessage reads a JSON log record from engine memory and re-emits
// it through logger. Malformed records are reported, never propagated as a
// trap: logging must not break a counter call.
func handleLogMessage(ctx context.Context, mod api.Module, stack []uint64, logger *slog.Logger, maxSize uint32) {
	ptr, length := unpackPtrLen(stack[0])
	if length == 0 {
		return
	}

	if length > maxSize {
		logger.ErrorContext(ctx, "wazero: log message exceeds maximum size", "size", length, "max", maxSize)
		return
	}

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		logger.ErrorContext(ctx, "wazero: failed to read log message from engine memory", "ptr", ptr, "size", length)
		return
	}

	msg, err := counterlog.ParseMessage(data)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: invalid log message", "error", err)
		return
	}
	record, err := counterlog.DecodeRecord(msg)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: invalid log message", "error", err)
		return
	}

	if !logger.Enabled(ctx, record.Level) {
		return
	}
	if err := logger.Handler().Handle(ctx, record); err != nil {
		slog.ErrorContext(ctx, "wazero: failed to emit engine log record", "error", err)
	}
}

// unpackPtrLen is abi.UnpackPtrLen without the panic: the value comes from
// the engine and a bad one is dropped, not trusted.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> abi.PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed)                 //nolint:gosec // G115: Packed format stores 32-bit values
	if ptr == 0 {
		return 0, 0
	}
	return ptr, length
}
