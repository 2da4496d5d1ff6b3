// Package parser decodes scenario files.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlScenarioParser implements ScenarioParser for YAML.
type YamlScenarioParser struct{}

// NewYamlScenarioParser creates a new YamlScenarioParser.
func NewYamlScenarioParser() ports.ScenarioParser {
	return &YamlScenarioParser{}
}

// Parse unmarshals YAML bytes into a Scenario. Unknown keys are rejected so
// a misspelled field does not silently fall back to its zero value.
func (p *YamlScenarioParser) Parse(data []byte) (*entities.Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var scenario entities.Scenario
	if err := dec.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse scenario: empty document")
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &scenario, nil
}
