package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fecclean/internal/batch"
	"fecclean/internal/cleaner"
	"fecclean/internal/resolve"
	"fecclean/internal/table"
)

func newMatchesCommand(ctx *commandContext) *cobra.Command {
	var column string
	var pass string
	var floor float64
	var limit int

	cmd := &cobra.Command{
		Use:   "matches <input.csv>",
		Short: "Preview the merges one column would receive, without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			selected, ok := cfg.Pass(pass)
			if !ok {
				return fmt.Errorf("unknown pass %q", pass)
			}
			opts := batch.Options(cfg, selected)
			if cmd.Flags().Changed("floor") {
				opts.Floor = floor
			}

			tbl, err := table.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := cleaner.New(opts, logger)
			if err != nil {
				return err
			}
			matches, err := c.Preview(tbl, column)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				printStatus(out, column, statusInfo, fmt.Sprintf("no matches at floor %v", opts.Floor))
				return nil
			}
			shown := matches
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			rows := make([][]string, 0, len(shown))
			for _, m := range shown {
				rows = append(rows, mergeRow(m))
			}
			fmt.Fprintln(out, renderTable(out, []string{"Value", "Merged Into", "Similarity"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			if len(shown) < len(matches) {
				printStatus(out, column, statusInfo, fmt.Sprintf("showing %d of %d matches", len(shown), len(matches)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Column to preview")
	cmd.Flags().StringVar(&pass, "pass", "light", "Configured pass supplying the floor")
	cmd.Flags().Float64Var(&floor, "floor", 0, "Similarity floor override in [0, 1]")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum matches to print; 0 prints all")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// mergeRow lays out m as the value that gets replaced, the value it becomes,
// and their similarity.
func mergeRow(m resolve.Match) []string {
	return []string{m.Right, m.Left, strconv.FormatFloat(m.Similarity, 'f', 4, 64)}
}
