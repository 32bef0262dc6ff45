package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fecclean/internal/batch"
	"fecclean/internal/store"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Clean every raw CSV at every configured pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				runner, err := batch.New(cfg, st, logger)
				if err != nil {
					return err
				}
				summary, runErr := runner.Run(cmd.Context())
				if summary == nil {
					return runErr
				}

				out := cmd.OutOrStdout()
				if len(summary.Files) == 0 {
					printStatus(out, "batch", statusWarn, fmt.Sprintf("no CSV files in %s", cfg.Paths.RawDir))
					return runErr
				}
				rows := make([][]string, 0, len(summary.Files)*len(cfg.Cleaning.Passes))
				for _, file := range summary.Files {
					for _, p := range file.Passes {
						status, rewritten := "ok", ""
						if p.Err != nil {
							status = "failed"
						} else if p.Report != nil {
							rewritten = strconv.Itoa(p.Report.CellsRewritten())
						}
						rows = append(rows, []string{
							filepath.Base(file.Input),
							p.Job.Pass.Name,
							strconv.FormatFloat(p.Job.Pass.Floor, 'f', -1, 64),
							status,
							rewritten,
							filepath.Base(p.Job.Output),
						})
					}
				}
				fmt.Fprintln(out, renderTable(out, []string{"Input", "Pass", "Floor", "Status", "Rewritten", "Output"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
				if runErr != nil {
					printStatus(out, "batch", statusError, fmt.Sprintf("%d pass(es) failed", summary.Failed()))
					return runErr
				}
				printStatus(out, "batch", statusOK, fmt.Sprintf("%d file(s) in %s", len(summary.Files), summary.Duration.Round(time.Millisecond)))
				return nil
			})
		},
	}
}
