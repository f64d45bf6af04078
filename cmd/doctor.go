package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/doctor"
	"github.com/agenthud/hud/internal/style"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose (and optionally fix) problems in hud's data root",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt to fix any problems found")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	staleWindow := time.Duration(cfg.Resolver.LockStaleSeconds) * time.Second
	ctx := &doctor.CheckContext{DataRoot: dataRoot, Now: time.Now(), StaleWindow: staleWindow}
	checks := doctor.All()

	var results []*doctor.CheckResult
	if doctorFix {
		results = doctor.RunAndFix(ctx, checks)
	} else {
		results = doctor.Run(ctx, checks)
	}

	failed := 0
	for _, r := range results {
		var prefix string
		switch r.Status {
		case doctor.StatusOK:
			prefix = style.SuccessPrefix
		case doctor.StatusWarning:
			prefix = style.WarningPrefix
			failed++
		default:
			prefix = style.ErrorPrefix
			failed++
		}
		fmt.Printf("%s %-24s %s\n", prefix, r.Name, r.Message)
		for _, d := range r.Details {
			fmt.Printf("    %s\n", style.Dim.Render(d))
		}
		if r.FixHint != "" && r.Status != doctor.StatusOK {
			fmt.Printf("    %s\n", style.Dim.Render(r.FixHint))
		}
	}

	if failed > 0 && !doctorFix {
		return fmt.Errorf("%d check(s) reported a problem", failed)
	}
	return nil
}
