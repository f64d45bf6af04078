package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/style"
	"github.com/agenthud/hud/internal/store"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List all tracked sessions and their current state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st := store.Load(store.DefaultPath(dataRoot))
	sessions := st.Sessions()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt) })

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	if len(sessions) == 0 {
		fmt.Println(style.Dim.Render("No tracked sessions."))
		return nil
	}

	for _, rec := range sessions {
		badge := style.StateStyle(rec.State).Render(string(rec.State))
		line := fmt.Sprintf("%-10s %s", badge, rec.CWD)
		if rec.WorkingOn != "" {
			line += style.Dim.Render("  " + rec.WorkingOn)
		}
		fmt.Println(line)
	}
	return nil
}
