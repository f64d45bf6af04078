package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/daemon"
)

var (
	holderPath    string
	holderKey     string
	holderSession string
	holderBase    string
)

var lockHolderCmd = &cobra.Command{
	Use:    "lock-holder",
	Short:  "Hold a liveness lock for a session until terminated (internal)",
	Hidden: true,
	RunE:   runLockHolder,
}

func init() {
	lockHolderCmd.Flags().StringVar(&holderPath, "path", "", "project path this lock claims")
	lockHolderCmd.Flags().StringVar(&holderKey, "key", "", "lock directory key (default: path)")
	lockHolderCmd.Flags().StringVar(&holderSession, "session", "", "session id this lock is bound to")
	lockHolderCmd.Flags().StringVar(&holderBase, "base", "", "lock base directory")
	rootCmd.AddCommand(lockHolderCmd)
}

func runLockHolder(cmd *cobra.Command, args []string) error {
	base := holderBase
	if base == "" {
		base = dataRoot
	}
	key := holderKey
	if key == "" {
		key = holderPath
	}
	return daemon.RunHolder(context.Background(), base, key, holderPath, holderSession)
}
