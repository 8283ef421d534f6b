package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bunnylol/bunnylol/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       uint16
		watch      bool
		schedule   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bunnylol core, blocking until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			code := app.Serve(app.Options{
				ConfigPath: configPath,
				Port:       port,
				Logger:     logger,
				Watch:      watch,
				Schedule:   schedule,
			})
			if code != app.ExitOK {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.toml (default: $XDG_CONFIG_HOME/bunnylol/config.toml)")
	cmd.Flags().Uint16Var(&port, "port", 0, "override server.port from the config file")
	cmd.Flags().BoolVar(&watch, "watch", true, "watch plugin directories and reload on change")
	cmd.Flags().BoolVar(&schedule, "rescan", true, "periodically rescan plugin directories as a fsnotify fallback")
	return cmd
}
