// Package config loads and validates counter scenarios.
package config

import (
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
)

var validate = validator.New()

// DefaultScenario runs the reference demo: one increment, a bulk increment
// of 1..8, then the positions and a snapshot.
func DefaultScenario() *entities.Scenario {
	return &entities.Scenario{
		Backend: entities.BackendCgo,
		Args:    entities.CounterArgs{Init: 0, By: 1},
		Steps: []entities.Step{
			{Op: entities.StepIncrement},
			{Op: entities.StepIncrementByMany, Values: []uint32{1, 2, 3, 4, 5, 6, 7, 8}},
			{Op: entities.StepPositions},
			{Op: entities.StepSnapshot},
		},
	}
}

// Load reads a scenario file with parser and validates it.
func Load(path string, parser ports.ScenarioParser) (*entities.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	scenario, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

// Validate checks a scenario. The first failing field is reported as a
// ConfigError.
func Validate(scenario *entities.Scenario) error {
	result := Check(scenario)
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	return &errors.ConfigError{Field: first.Field, Err: stdErrors.New(first.Message)}
}

// Check validates a scenario and reports every failing field.
func Check(scenario *entities.Scenario) entities.ValidationResult {
	if scenario == nil {
		return entities.ValidationResult{
			Errors: []entities.ValidationError{{Message: "scenario is nil"}},
		}
	}

	err := validate.Struct(scenario)
	if err == nil {
		return entities.ValidationResult{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) {
		return entities.ValidationResult{
			Errors: []entities.ValidationError{{Message: err.Error()}},
		}
	}

	result := entities.ValidationResult{Errors: make([]entities.ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
		})
	}
	return result
}
