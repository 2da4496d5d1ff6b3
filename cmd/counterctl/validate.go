package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/reglet-dev/native-counter/application/config"
	"github.com/reglet-dev/native-counter/infrastructure/parser"
	"github.com/spf13/cobra"
)

var errInvalidScenario = errors.New("scenario is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario file and print every problem as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read scenario %s: %w", args[0], err)
			}
			scenario, err := parser.NewYamlScenarioParser().Parse(data)
			if err != nil {
				return err
			}

			result := config.Check(scenario)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Valid {
				return errInvalidScenario
			}
			return nil
		},
	}
}
