// Package cmd wires hud's cobra commands together.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/config"
	"github.com/agenthud/hud/internal/events"
)

var (
	flagDataRoot   string
	flagConfigPath string

	cfg      config.Config
	dataRoot string
)

var rootCmd = &cobra.Command{
	Use:   "hud",
	Short: "Track and query the state of concurrent Claude Code sessions",
	Long: `hud tracks the lifecycle of Claude Code agent sessions across a
machine — what each session is doing, whether it is still alive, and which
project path it last touched — so other tools can answer "is anything
running here?" without talking to the agent directly.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		dataRoot = resolveDataRoot()
		events.SetFeedPath(events.DefaultFeedPath(dataRoot))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataRoot, "data-root", "", "override hud's data directory")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config.toml")
}

func configPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return config.DefaultConfigPath()
}

func resolveDataRoot() string {
	if flagDataRoot != "" {
		return flagDataRoot
	}
	return config.DefaultDataRoot(cfg)
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
