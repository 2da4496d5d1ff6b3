// Package counter is a resource-safe wrapper around a native counter engine
// reachable only through a foreign function interface.
//
// A Counter exclusively owns one native handle. The handle is destroyed
// exactly once: by Close, or by a runtime cleanup if the Counter becomes
// unreachable without Close. After Close every operation returns an error
// matching ErrUseAfterDispose without reaching the native layer.
//
// Buffers never leak across the boundary: bulk inputs are exposed to the
// engine only for the duration of a call, and positions are copied out of the
// engine's buffer before the call returns.
//
// Basic usage:
//
//	bindings, err := native.NewBindings()
//	if err != nil {
//	    return err
//	}
//	c, err := counter.New(ctx, bindings, entities.CounterArgs{By: 1})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	v, err := c.IncrementByMany(ctx, []uint32{1, 2, 3})
//
// A Counter serializes its own native calls and may be shared between
// goroutines.
package counter
