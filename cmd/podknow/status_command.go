package main

import (
	"github.com/spf13/cobra"

	"podknow/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, system dependencies, and analysis providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			depRows := make([][]string, 0, 4)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				state := "missing"
				if status.Available {
					state = "available"
				} else if status.Optional {
					state = "missing (optional)"
				}
				depRows = append(depRows, []string{status.Name, status.Command, state, status.Detail})
			}
			printf(cmd, "%s", renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))

			checkRows := make([][]string, 0, 8)
			failed := false
			for _, result := range preflight.RunAll(runCtx, cfg) {
				state := "ok"
				if !result.Passed {
					state = "failed"
					failed = true
				}
				checkRows = append(checkRows, []string{result.Name, state, result.Detail})
			}
			printf(cmd, "%s", renderTable(
				[]string{"Check", "Status", "Detail"},
				checkRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))

			if failed {
				printf(cmd, "some checks failed; fix them before processing episodes")
			} else {
				printf(cmd, "all checks passed")
			}
			return nil
		},
	}
}
