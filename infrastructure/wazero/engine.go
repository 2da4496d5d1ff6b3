package wazero

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/reglet-dev/native-counter/domain/entities"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/reglet-dev/native-counter/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Engine exports resolved once at load time.
const (
	exportCreate          = "createCounter"
	exportDestroy         = "destroyCounter"
	exportValue           = "getCounterValue"
	exportSnapshot        = "getCounterData"
	exportIncrement       = "incrementCounter"
	exportDecrement       = "decrementCounter"
	exportIncrementBy     = "incrementCounterBy"
	exportDecrementBy     = "decrementCounterBy"
	exportIncrementByMany = "incrementCounterByMany"
	exportDecrementByMany = "decrementCounterByMany"
	exportPositions       = "getCounterPositions"
	exportAllocate        = "allocate"
	exportDeallocate      = "deallocate"
)

var requiredExports = []string{
	exportCreate, exportDestroy, exportValue, exportSnapshot,
	exportIncrement, exportDecrement, exportIncrementBy, exportDecrementBy,
	exportIncrementByMany, exportDecrementByMany, exportPositions,
	exportAllocate, exportDeallocate,
}

var errModuleClosed = errors.New("engine module is closed")

// Engine is a counter engine instance running in wazero.
type Engine struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	module  api.Module
	fns     map[string]api.Function
	cfg     Config
	closed  bool
}

var _ ports.CounterBindings = (*Engine)(nil)

// NewEngine compiles and instantiates the engine module and resolves its
// exports. A module missing any counter export is rejected.
func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, &domainErrors.ConfigError{Err: err}
	}

	wasm := cfg.EngineWasm
	if wasm == nil {
		data, err := os.ReadFile(cfg.EnginePath)
		if err != nil {
			return nil, &domainErrors.ConfigError{Field: "EnginePath", Err: err}
		}
		wasm = data
	}

	rtConfig := wazero.NewRuntimeConfig()
	var cache wazero.CompilationCache
	if cfg.CompilationCacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
		if err != nil {
			return nil, &domainErrors.ConfigError{Field: "CompilationCacheDir", Err: err}
		}
		rtConfig = rtConfig.WithCompilationCache(cache)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	// teardown releases the runtime and the cache on a failed load.
	teardown := func() {
		_ = rt.Close(ctx)
		if cache != nil {
			_ = cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		teardown()
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	if err := registerHostModule(ctx, rt, cfg); err != nil {
		teardown()
		return nil, fmt.Errorf("failed to register host module: %w", err)
	}

	modConfig := wazero.NewModuleConfig().
		WithName(cfg.EngineModuleName).
		WithSysWalltime().
		WithSysNanotime().
		WithStderr(os.Stderr)

	mod, err := rt.InstantiateWithConfig(ctx, wasm, modConfig)
	if err != nil {
		teardown()
		return nil, fmt.Errorf("failed to instantiate engine module: %w", err)
	}

	// Reactor modules run package initialization here.
	if initFn := mod.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			teardown()
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	fns := make(map[string]api.Function, len(requiredExports))
	for _, name := range requiredExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			teardown()
			return nil, fmt.Errorf("engine module missing %q export", name)
		}
		fns[name] = fn
	}

	cfg.Logger.DebugContext(ctx, "wazero: engine loaded", "module", cfg.EngineModuleName, "size", len(wasm))

	return &Engine{
		runtime: rt,
		cache:   cache,
		module:  mod,
		fns:     fns,
		cfg:     cfg,
	}, nil
}

// Close tears down the runtime and the compilation cache, if any. Handles
// created by this Engine become invalid.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		err = errors.Join(err, e.cache.Close(ctx))
	}
	return err
}

func (e *Engine) Create(ctx context.Context, args entities.CounterArgs) (entities.NativeHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.call(ctx, ports.OpCreate, exportCreate, api.EncodeU32(args.Init), api.EncodeU32(args.By))
	if err != nil {
		return entities.NullHandle, err
	}
	return toHandle(res), nil
}

func (e *Engine) Destroy(ctx context.Context, h entities.NativeHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.call(ctx, ports.OpDestroy, exportDestroy, fromHandle(h))
	return err
}

func (e *Engine) Value(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return e.callU32(ctx, ports.OpValue, exportValue, fromHandle(h))
}

func (e *Engine) Snapshot(ctx context.Context, h entities.NativeHandle) (entities.CounterSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.call(ctx, ports.OpSnapshot, exportSnapshot, fromHandle(h))
	if err != nil {
		return entities.CounterSnapshot{}, err
	}
	return abi.UnpackSnapshot(res), nil
}

func (e *Engine) Increment(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return e.callU32(ctx, ports.OpIncrement, exportIncrement, fromHandle(h))
}

func (e *Engine) Decrement(ctx context.Context, h entities.NativeHandle) (uint32, error) {
	return e.callU32(ctx, ports.OpDecrement, exportDecrement, fromHandle(h))
}

func (e *Engine) IncrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return e.callU32(ctx, ports.OpIncrementBy, exportIncrementBy, fromHandle(h), api.EncodeU32(by))
}

func (e *Engine) DecrementBy(ctx context.Context, h entities.NativeHandle, by uint32) (uint32, error) {
	return e.callU32(ctx, ports.OpDecrementBy, exportDecrementBy, fromHandle(h), api.EncodeU32(by))
}

func (e *Engine) IncrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	return e.callMany(ctx, ports.OpIncrementByMany, exportIncrementByMany, h, values)
}

func (e *Engine) DecrementByMany(ctx context.Context, h entities.NativeHandle, values []uint32) (uint32, error) {
	return e.callMany(ctx, ports.OpDecrementByMany, exportDecrementByMany, h, values)
}

// Positions reads the engine-owned buffer and copies it out. The buffer is
// not freed here; it lives until destroyCounter.
func (e *Engine) Positions(ctx context.Context, h entities.NativeHandle) ([]entities.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot, err := e.allocate(ctx, ports.OpPositions, abi.Uint32Size)
	if err != nil {
		return nil, err
	}
	defer e.deallocate(ctx, slot, abi.Uint32Size)

	res, err := e.call(ctx, ports.OpPositions, exportPositions, fromHandle(h), api.EncodeU32(slot))
	if err != nil {
		return nil, err
	}
	ptr := api.DecodeU32(res)

	count, ok := e.module.Memory().ReadUint32Le(slot)
	if !ok {
		return nil, e.memoryFault(ports.OpPositions, "read position count", slot, abi.Uint32Size)
	}
	if ptr == 0 || count == 0 {
		return []entities.Position{}, nil
	}

	size, ok := abi.PositionsSize(count)
	if !ok {
		return nil, e.memoryFault(ports.OpPositions, "position buffer size overflows", ptr, 0)
	}
	view, ok := e.module.Memory().Read(ptr, size)
	if !ok {
		return nil, e.memoryFault(ports.OpPositions, "read positions", ptr, size)
	}

	// DecodePositions copies; view aliases linear memory and must not escape.
	positions, err := abi.DecodePositions(view, count)
	if err != nil {
		return nil, e.nativeError(ports.OpPositions, err)
	}
	return positions, nil
}

// callMany exposes values to the engine through a temporary allocation that
// is released before returning.
func (e *Engine) callMany(ctx context.Context, op, export string, h entities.NativeHandle, values []uint32) (uint32, error) {
	if len(values) == 0 {
		return 0, &domainErrors.InvalidArgumentError{Operation: op, Argument: "values", Reason: "must not be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	data := abi.EncodeUint32s(values)
	size := uint32(len(data)) //nolint:gosec // G115: the wrapper bounds len(values)
	ptr, err := e.allocate(ctx, op, size)
	if err != nil {
		return 0, err
	}
	defer e.deallocate(ctx, ptr, size)

	if !e.module.Memory().Write(ptr, data) {
		return 0, e.memoryFault(op, "write values", ptr, size)
	}

	res, err := e.call(ctx, op, export, fromHandle(h), api.EncodeU32(ptr), api.EncodeU32(uint32(len(values)))) //nolint:gosec // G115: bounded as above
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res), nil
}

func (e *Engine) callU32(ctx context.Context, op, export string, params ...uint64) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.call(ctx, op, export, params...)
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res), nil
}

// call invokes an export and returns its first result, or 0 for exports
// without results. Callers hold e.mu.
func (e *Engine) call(ctx context.Context, op, export string, params ...uint64) (uint64, error) {
	if e.closed {
		return 0, e.nativeError(op, errModuleClosed)
	}

	results, err := e.fns[export].Call(ctx, params...)
	if err != nil {
		e.cfg.Logger.ErrorContext(ctx, "wazero: engine call failed", "export", export, "error", err)
		return 0, e.nativeError(op, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (e *Engine) allocate(ctx context.Context, op string, size uint32) (uint32, error) {
	res, err := e.call(ctx, op, exportAllocate, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res)
	if ptr == 0 {
		return 0, e.nativeError(op, &domainErrors.MemoryError{Operation: op, Requested: size})
	}
	return ptr, nil
}

func (e *Engine) deallocate(ctx context.Context, ptr, size uint32) {
	if _, err := e.call(ctx, "deallocate", exportDeallocate, api.EncodeU32(ptr), api.EncodeU32(size)); err != nil {
		e.cfg.Logger.WarnContext(ctx, "wazero: failed to release engine allocation", "ptr", ptr, "size", size, "error", err)
	}
}

func (e *Engine) memoryFault(op, what string, ptr, size uint32) error {
	return e.nativeError(op, &domainErrors.WireFormatError{
		Operation: "decode",
		Type:      "memory",
		Err:       fmt.Errorf("%s at 0x%x (%d bytes) out of range", what, ptr, size),
	})
}

func (e *Engine) nativeError(op string, err error) error {
	return &domainErrors.NativeCallError{Operation: op, Backend: Backend, Err: err}
}

func toHandle(res uint64) entities.NativeHandle {
	return entities.NativeHandle(api.DecodeU32(res))
}

func fromHandle(h entities.NativeHandle) uint64 {
	return api.EncodeU32(uint32(h)) //nolint:gosec // G115: engine handles are 32-bit addresses
}
