package ports

import "github.com/reglet-dev/native-counter/domain/entities"

// ScenarioParser parses raw bytes into a Scenario.
type ScenarioParser interface {
	// Parse unmarshals data into a Scenario. It does not validate it.
	Parse(data []byte) (*entities.Scenario, error)
}
