package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Process one Claude Code hook event from stdin",
	Hidden: true,
	RunE:   runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading hook input: %w", err)
	}

	var in hooks.Input
	if err := json.Unmarshal(data, &in); err != nil {
		// A hook event that fails to parse must never fail the tool call
		// that triggered it; log and exit cleanly.
		fmt.Fprintf(os.Stderr, "hud: malformed hook input: %v\n", err)
		return nil
	}

	p := hooks.NewProcessor(dataRoot)
	if err := p.Process(in); err != nil {
		fmt.Fprintf(os.Stderr, "hud: processing %s: %v\n", in.HookEventName, err)
	}
	return nil
}
