package entities

// CounterArgs parameterizes native counter creation. Passed by value.
type CounterArgs struct {
	// Init is the starting value.
	Init uint32 `json:"init" yaml:"init"`
	// By is the step used by Increment and Decrement.
	By uint32 `json:"by" yaml:"by"`
}

// CounterSnapshot is a by-value copy of the native counter state.
type CounterSnapshot struct {
	Val uint32 `json:"val"`
	By  uint32 `json:"by"`
}

// Position is a 2D point stored contiguously in a native buffer.
type Position struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}
