package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fecclean/internal/resolve"
	"fecclean/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var mergesFor string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent cleaning runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				out := cmd.OutOrStdout()
				if mergesFor != "" {
					return printRunMerges(cmd, st, mergesFor)
				}
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						filepath.Base(run.InputFile),
						run.Pass,
						strconv.FormatFloat(run.Floor, 'f', -1, 64),
						string(run.Status),
						strconv.Itoa(run.Rows),
						strconv.Itoa(run.CellsRewritten),
						run.Duration().Round(time.Millisecond).String(),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Started", "Input", "Pass", "Floor", "Status", "Rows", "Rewritten", "Time"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show; 0 shows all")
	cmd.Flags().StringVar(&mergesFor, "merges", "", "Show the merges recorded for a run ID (or unique ID prefix)")
	return cmd
}

func printRunMerges(cmd *cobra.Command, st *store.Store, id string) error {
	run, err := findRun(cmd, st, id)
	if err != nil {
		return err
	}
	merges, err := st.Merges(cmd.Context(), run.ID, "")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(merges) == 0 {
		fmt.Fprintf(out, "Run %s recorded no merges\n", shortID(run.ID))
		return nil
	}
	rows := make([][]string, 0, len(merges))
	for _, m := range merges {
		match := resolve.Match{Left: m.Left, Right: m.Right, Similarity: m.Similarity}
		rows = append(rows, append([]string{m.Column}, mergeRow(match)...))
	}
	fmt.Fprintln(out, renderTable(out, []string{"Column", "Value", "Merged Into", "Similarity"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	return nil
}

func findRun(cmd *cobra.Command, st *store.Store, id string) (*store.Run, error) {
	run, err := st.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := st.ListRuns(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var found *store.Run
	for _, candidate := range runs {
		if len(candidate.ID) >= len(id) && candidate.ID[:len(id)] == id {
			if found != nil {
				return nil, fmt.Errorf("run prefix %q is ambiguous", id)
			}
			found = candidate
		}
	}
	if found == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return found, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
