// Package schema generates JSON schemas for scenario files.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/errors"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ScenarioSchema returns the JSON schema of a scenario file.
func ScenarioSchema() ([]byte, error) {
	data, err := GenerateSchema(&entities.Scenario{})
	if err != nil {
		return nil, &errors.SchemaError{Type: "Scenario", Err: err}
	}
	return data, nil
}
