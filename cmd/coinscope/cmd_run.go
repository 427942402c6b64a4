package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/coinscope/internal/explorer"
	"github.com/thebtf/coinscope/internal/metrics"
	"github.com/thebtf/coinscope/internal/plot"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a session headless and plot the result",
		Long: `Run the configured session for a fixed wall-clock time without the
dashboard, then print the curves as a terminal chart or as JSON.

Examples:
  coinscope run --for 10s
  coinscope run --n 200 --seed 7 --for 2s --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("n") {
				cfg.Session.N, _ = flags.GetInt("n")
			}
			if flags.Changed("seed") {
				cfg.Session.Seed, _ = flags.GetUint64("seed")
			}
			if flags.Changed("step-size") {
				cfg.Session.StepSize, _ = flags.GetInt("step-size")
			}
			if flags.Changed("pairwise") {
				cfg.Display.Pairwise, _ = flags.GetBool("pairwise")
			}
			duration, _ := flags.GetDuration("for")
			width, _ := flags.GetInt("width")
			height, _ := flags.GetInt("height")
			jsonOut, _ := flags.GetBool("json")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mp := metrics.Install()
			defer func() { _ = mp.Shutdown(context.Background()) }()

			ex := explorer.New(explorer.WithRecorder(metrics.Default()))
			if err := ex.Start(cfg.Session); err != nil {
				return err
			}

			opts := cfg.Display
			deadline := time.Now().Add(duration)
			for time.Now().Before(deadline) && ctx.Err() == nil {
				if _, err := ex.Advance(ctx, cfg.TickBudget(), &opts); err != nil {
					return err
				}
			}

			snap, err := ex.Snapshot(&opts)
			if err != nil {
				return err
			}

			if samples, err := mp.Collect(context.Background()); err == nil {
				for _, s := range samples {
					log.Debug().
						Str("metric", s.Name).
						Interface("attributes", s.Attributes).
						Float64("value", s.Value).
						Msg("Metric")
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(snap)
			}
			_, err = fmt.Fprint(out, plot.Render(snap, width, height))
			return err
		},
	}

	cmd.Flags().Duration("for", 5*time.Second, "Wall-clock run time")
	cmd.Flags().Int("n", 0, "Number of coins (overrides config)")
	cmd.Flags().Uint64("seed", 0, "Session seed (overrides config)")
	cmd.Flags().Int("step-size", 0, "Coins flipped per Monte Carlo step (overrides config)")
	cmd.Flags().Bool("pairwise", false, "Plot pairwise ratios instead of probabilities")
	cmd.Flags().Int("width", 100, "Chart width in columns")
	cmd.Flags().Int("height", 20, "Chart height in rows")
	cmd.Flags().Bool("json", false, "Print the final snapshot as JSON")
	return cmd
}
