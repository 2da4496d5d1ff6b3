// Package wazero binds the counter wrapper to a counter engine compiled to
// WebAssembly, running inside the wazero runtime.
//
// The engine module (see cmd/counter-engine) exports the counter entry points
// plus allocate/deallocate for host-managed buffers in its linear memory. The
// host provides the counter_host module, whose log_message import carries the
// engine's slog records back to the host logger.
//
// # Basic Usage
//
//	engine, err := wazero.NewEngine(ctx,
//	    wazero.WithEnginePath("counter.wasm"),
//	    wazero.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close(ctx)
//
//	c, err := counter.New(ctx, engine, entities.CounterArgs{By: 1})
//
// # Memory
//
// Bulk inputs are copied into an allocation obtained from the engine's
// allocate export and released with deallocate once the call returns.
// Position buffers belong to the engine; they are read with Memory().Read and
// copied before the call returns.
//
// An Engine owns a single module instance and serializes calls into it.
package wazero
