package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/reglet-dev/native-counter/application/config"
	"github.com/reglet-dev/native-counter/application/runner"
	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/reglet-dev/native-counter/infrastructure/instrument"
	"github.com/reglet-dev/native-counter/infrastructure/native"
	"github.com/reglet-dev/native-counter/infrastructure/parser"
	"github.com/reglet-dev/native-counter/infrastructure/wazero"
	"github.com/spf13/cobra"
)

type runFlags struct {
	configPath string
	backend    string
	enginePath string
	metrics    bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario and print the report as JSON",
		Long: "Run a scenario and print the report as JSON. Without --config the " +
			"built-in demo runs: increment, increment by 1..8, positions, snapshot.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			scenario, err := loadScenario(cmd, flags)
			if err != nil {
				return err
			}
			return runScenario(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), logger, scenario, flags.metrics)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to scenario file (yaml)")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Native engine (possible values: cgo, wasm). Overrides the scenario")
	cmd.Flags().StringVar(&flags.enginePath, "engine", "", "Path to the wasm counter engine. Overrides the scenario")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Print native call metrics to stderr after the run")
	return cmd
}

func loadScenario(cmd *cobra.Command, flags runFlags) (*entities.Scenario, error) {
	scenario := config.DefaultScenario()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath, parser.NewYamlScenarioParser())
		if err != nil {
			return nil, err
		}
		scenario = loaded
	}
	if cmd.Flags().Changed("backend") {
		scenario.Backend = flags.backend
	}
	if cmd.Flags().Changed("engine") {
		scenario.EnginePath = flags.enginePath
	}
	if err := config.Validate(scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

func runScenario(ctx context.Context, stdout, stderr io.Writer, logger *slog.Logger, scenario *entities.Scenario, printMetrics bool) (err error) {
	bindings, closeBindings, err := openBindings(ctx, logger, scenario)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeBindings(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	reg := prometheus.NewRegistry()
	instrumented := instrument.Wrap(bindings,
		instrument.WithBackend(scenario.Backend),
		instrument.WithLogger(logger),
		instrument.WithMetrics(instrument.NewMetrics(reg)),
	)

	report, runErr := runner.Run(ctx, instrumented, scenario, runner.WithLogger(logger))
	if report == nil {
		return runErr
	}

	// A failed run still reports the steps that completed.
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if printMetrics {
		return writeMetrics(stderr, reg)
	}
	return nil
}

func openBindings(ctx context.Context, logger *slog.Logger, scenario *entities.Scenario) (ports.CounterBindings, func(context.Context) error, error) {
	switch scenario.Backend {
	case entities.BackendCgo:
		b, err := native.NewBindings()
		if err != nil {
			return nil, nil, err
		}
		return b, func(context.Context) error { return nil }, nil
	case entities.BackendWasm:
		engine, err := wazero.NewEngine(ctx,
			wazero.WithEnginePath(scenario.EnginePath),
			wazero.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return engine, engine.Close, nil
	default:
		return nil, nil, fmt.Errorf("backend not recognized: %q", scenario.Backend)
	}
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
