// Package ports defines the binding layer between the counter wrapper and a
// native counter engine.
//
// CounterBindings is the set of foreign entry points. Implementations live in
// infrastructure/ (cgo and wazero) and in countertest (in-memory). The wrapper
// depends only on this interface.
package ports
