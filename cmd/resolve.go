package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/resolver"
	"github.com/agenthud/hud/internal/store"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve the session state for a project path",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	st := store.Load(store.DefaultPath(dataRoot))
	win := resolver.WindowsFromSeconds(cfg.Resolver.LockStaleSeconds, cfg.Resolver.FallbackFreshSeconds)
	result := resolver.ResolveWithWindows(dataRoot, st, args[0], win)

	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		if result == nil {
			return enc.Encode(map[string]any{"found": false})
		}
		return enc.Encode(map[string]any{
			"found":        true,
			"state":        result.State,
			"session_id":   result.SessionID,
			"cwd":          result.CWD,
			"is_from_lock": result.IsFromLock,
		})
	}

	if result == nil {
		fmt.Println("no active session")
		return nil
	}
	fmt.Printf("%s  %s  (%s)\n", result.State, result.CWD, result.SessionID)
	return nil
}
