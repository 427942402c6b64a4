package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/coinscope/internal/config"
	"github.com/thebtf/coinscope/internal/metrics"
	"github.com/thebtf/coinscope/internal/presets"
	"github.com/thebtf/coinscope/internal/watcher"
	"github.com/thebtf/coinscope/internal/worker"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live dashboard",
		Long: `Start the configured session and serve the live dashboard over HTTP.

Display options in the config file are reloaded when the file changes.
Named session presets are read from ~/.coinscope/presets.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}

			reg, err := presets.Load(presets.Path(config.DataDir()))
			if err != nil {
				log.Warn().Err(err).Msg("Failed to load presets, continuing without")
				reg = presets.Empty()
			}

			mp := metrics.Install()
			defer func() { _ = mp.Shutdown(context.Background()) }()

			svc, err := worker.NewService(Version, cfg,
				worker.WithPresets(reg),
				worker.WithMetrics(mp),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := svc.Start(cfg.Addr); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}

			w, err := watcher.New(cfgPath, func() {
				if err := svc.ReloadConfig(cfgPath); err != nil {
					log.Warn().Err(err).Str("path", cfgPath).Msg("Ignoring invalid config change")
				}
			})
			if err != nil {
				log.Warn().Err(err).Msg("Config watcher unavailable")
			} else {
				_ = w.Start()
				defer func() { _ = w.Stop() }()
			}

			log.Info().
				Str("version", Version).
				Str("url", "http://"+svc.Addr()).
				Msg("coinscope started")

			<-ctx.Done()
			log.Info().Msg("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return svc.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}
