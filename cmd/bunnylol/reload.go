package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/bunnylol/bunnylol/internal/config"
)

func newReloadCmd() *cobra.Command {
	var (
		configPath string
		port       uint16
	)

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Trigger a plugin registry reload on a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := int(port)
			if p == 0 {
				cfg, _, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				p = cfg.ServerPort
			}

			url := fmt.Sprintf("http://127.0.0.1:%d/reload", p)
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("reload request failed: %w", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("reload returned status %d", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.toml, used only to find the port if --port isn't given")
	cmd.Flags().Uint16Var(&port, "port", 0, "port of the running instance (default: read from config)")
	return cmd
}
