package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/irfndi/claw-quants/internal/api/handlers"
	"github.com/irfndi/claw-quants/internal/services"
	"github.com/irfndi/claw-quants/internal/simulator"
)

type simulateOptions struct {
	id          string
	count       int
	start       float64
	volatility  float64
	personality string
	ticks       int
	seed        int64
	at          string
}

// simulateOutput is the JSON document printed by the simulate command.
type simulateOutput struct {
	handlers.StatePayload
	Personality simulator.Personality    `json:"personality"`
	StartValue  float64                  `json:"start_value"`
	Volatility  float64                  `json:"volatility"`
	Ticks       int                      `json:"ticks"`
	Seed        int64                    `json:"seed"`
	Analytics   services.SeriesAnalytics `json:"analytics"`
}

func newSimulateCmd() *cobra.Command {
	defaults := simulator.DefaultParams()
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a series offline and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := simulate(opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.id, "id", "cli", "series id reported in the output")
	flags.IntVar(&opts.count, "count", defaults.Count, "number of samples in the window")
	flags.Float64Var(&opts.start, "start", defaults.StartValue, "starting value of the series")
	flags.Float64Var(&opts.volatility, "volatility", defaults.Volatility, "volatility of each step")
	flags.StringVar(&opts.personality, "personality", string(defaults.Personality), "stable, volatile, bullish or bearish")
	flags.IntVar(&opts.ticks, "ticks", 0, "live ticks to advance after generating the window")
	flags.Int64Var(&opts.seed, "seed", 1, "random seed; 0 picks a time based seed")
	flags.StringVar(&opts.at, "at", "", "RFC3339 time of generation; defaults to now")
	return cmd
}

func simulate(opts simulateOptions) (simulateOutput, error) {
	personality, err := simulator.ParsePersonality(opts.personality)
	if err != nil {
		return simulateOutput{}, err
	}
	params := simulator.Params{
		StartValue:  opts.start,
		Volatility:  opts.volatility,
		Personality: personality,
		Count:       opts.count,
	}
	if err := params.Validate(); err != nil {
		return simulateOutput{}, err
	}
	if opts.ticks < 0 {
		return simulateOutput{}, fmt.Errorf("ticks must not be negative, got %d", opts.ticks)
	}

	now := time.Now()
	if opts.at != "" {
		if now, err = time.Parse(time.RFC3339, opts.at); err != nil {
			return simulateOutput{}, fmt.Errorf("invalid --at: %w", err)
		}
	}

	rnd := services.NewLockedRand(opts.seed)
	state := simulator.State{Window: simulator.Generate(params, rnd, now)}
	for i := 0; i < opts.ticks; i++ {
		now = now.Add(simulator.TickInterval)
		state = simulator.Step(state, params, rnd, now)
	}

	return simulateOutput{
		StatePayload: handlers.NewStatePayload(opts.id, state),
		Personality:  personality,
		StartValue:   params.StartValue,
		Volatility:   params.Volatility,
		Ticks:        opts.ticks,
		Seed:         opts.seed,
		Analytics:    services.AnalyzeSeries(state.Window),
	}, nil
}
