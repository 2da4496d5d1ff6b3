package entities

// Backend names accepted in a Scenario.
const (
	BackendCgo  = "cgo"
	BackendWasm = "wasm"
)

// Step operations accepted in a Scenario.
const (
	StepIncrement       = "increment"
	StepDecrement       = "decrement"
	StepIncrementBy     = "increment_by"
	StepDecrementBy     = "decrement_by"
	StepIncrementByMany = "increment_by_many"
	StepDecrementByMany = "decrement_by_many"
	StepValue           = "value"
	StepSnapshot        = "snapshot"
	StepPositions       = "positions"
)

// Scenario is a scripted sequence of counter operations against one backend.
type Scenario struct {
	// Backend selects the native engine.
	Backend string `yaml:"backend" json:"backend" validate:"required,oneof=cgo wasm" jsonschema:"enum=cgo,enum=wasm"`
	// EnginePath is the wasm engine module. Required for the wasm backend.
	EnginePath string `yaml:"engine_path,omitempty" json:"engine_path,omitempty" validate:"required_if=Backend wasm"`
	// Args are the creation arguments of the counter.
	Args CounterArgs `yaml:"args" json:"args"`
	// Steps run in order on a single counter.
	Steps []Step `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}

// Step is one counter operation.
type Step struct {
	Op     string   `yaml:"op" json:"op" validate:"required,oneof=increment decrement increment_by decrement_by increment_by_many decrement_by_many value snapshot positions"`
	By     uint32   `yaml:"by,omitempty" json:"by,omitempty"`
	Values []uint32 `yaml:"values,omitempty" json:"values,omitempty" validate:"required_if=Op increment_by_many,required_if=Op decrement_by_many,omitempty,min=1"`
}
