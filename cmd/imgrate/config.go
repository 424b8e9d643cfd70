package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manash/imgrate/internal/config"
)

var flagForce bool

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show which config file and data directory are in use",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := flagConfig
			if path == "" {
				discovered, err := config.Discover()
				if err != nil {
					return err
				}
				path = discovered
			}
			if path == "" {
				fmt.Fprintf(app.Out, "Config:   none (defaults in use; create one at %s)\n", config.DefaultPath())
			} else {
				fmt.Fprintf(app.Out, "Config:   %s\n", path)
			}
			fmt.Fprintf(app.Out, "Data dir: %s\n", app.dataDir)
			fmt.Fprintf(app.Out, "Log file: %s\n", app.cfg.LogFile(app.dataDir))
			return nil
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !flagForce {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			if err := config.Default().Write(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(app.Out, "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Annotations = map[string]string{annotationConfig: configOptional}
	initCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing config")
	cmd.AddCommand(initCmd)

	return cmd
}
