package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/edgebar/internal/daemon"
)

var daemonConfigPath string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the edgebar daemon in the foreground",
	Long: `Connects to the X server named by $DISPLAY, opens the configured bars on
every display and keeps them reconciled until interrupted. SIGHUP reloads the
configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := new(slog.LevelVar)
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		d, err := daemon.New(daemon.Options{
			ConfigPath: daemonConfigPath,
			SocketPath: socketPath,
			Version:    version,
			Logger:     logger,
			Level:      level,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					logger.Info("received SIGHUP, reloading config")
					if err := d.Reload(); err != nil {
						logger.Warn("config reload failed", "error", err)
					}
				}
			}
		}()

		return d.Run(ctx)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonConfigPath, "config", "", "Config file path (default: ~/.config/edgebar/config.yaml)")
}
