package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"shotbridge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipConnection bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials, connectivity and media directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var tester preflight.Tester
			if !skipConnection {
				mgr, err := ctx.connectionManager()
				if err != nil {
					return err
				}
				tester = mgr
			}

			results := preflight.RunAll(cmd.Context(), cfg, tester)
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprintln(out, renderTable(out, tableSpec{
					Headers: []string{"Check", "Status", "Detail"},
					Rows:    rows,
					Colorize: func(column int, value string) text.Colors {
						switch {
						case column != 1:
							return nil
						case value == "ok":
							return text.Colors{text.FgGreen}
						default:
							return text.Colors{text.FgRed, text.Bold}
						}
					},
				}))
				if failed == 0 {
					fmt.Fprintln(out, "All checks passed")
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConnection, "skip-connection", false, "Skip the server round trip")
	return cmd
}
