// Package entities provides the value types of the counter domain.
//
// CounterArgs, CounterSnapshot and Position mirror native structs field for
// field. Their field order and sizes are part of the wire contract with the
// counter engine and are checked by layout tests; do not reorder fields or
// add padding.
package entities
