package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fecclean/internal/batch"
	"fecclean/internal/cleaner"
	"fecclean/internal/config"
	"fecclean/internal/store"
)

type cleanFlags struct {
	pass    string
	floor   float64
	ngram   int
	topK    int
	columns string
	output  string
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var flags cleanFlags

	cmd := &cobra.Command{
		Use:   "clean <input.csv>",
		Short: "Clean one CSV file at one or every configured pass",
		Long: "Clean merges near-duplicate values in the selected columns of a CSV file.\n" +
			"Without --pass or --floor every configured pass writes its own <stem>_<pass>.csv.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}

			jobs, err := cleanJobs(cmd, cfg, input, flags)
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				runner, err := batch.New(cfg, st, logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, job := range jobs {
					res, err := runner.Clean(cmd.Context(), job)
					if err != nil {
						printStatus(out, job.Pass.Name, statusError, err.Error())
						return err
					}
					printStatus(out, job.Pass.Name, statusOK, fmt.Sprintf("%s (%d cells rewritten)", job.Output, res.Report.CellsRewritten()))
					fmt.Fprintln(out, renderReport(out, res.Report))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.pass, "pass", "", "Configured pass to run (light, deep, loose, ...)")
	cmd.Flags().Float64Var(&flags.floor, "floor", 0, "Similarity floor in [0, 1]; overrides the pass floor")
	cmd.Flags().IntVar(&flags.ngram, "ngram", 0, "Character n-gram size (default from config)")
	cmd.Flags().IntVar(&flags.topK, "top-k", 0, "Candidates kept per value (default from config)")
	cmd.Flags().StringVar(&flags.columns, "columns", "", "Comma-separated columns to clean, in order (default from config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output path (single pass only)")
	return cmd
}

func cleanJobs(cmd *cobra.Command, cfg *config.Config, input string, flags cleanFlags) ([]batch.Job, error) {
	var passes []config.Pass
	switch {
	case flags.pass != "":
		pass, ok := cfg.Pass(flags.pass)
		if !ok {
			if !cmd.Flags().Changed("floor") {
				return nil, fmt.Errorf("unknown pass %q", flags.pass)
			}
			pass = config.Pass{Name: strings.ToLower(strings.TrimSpace(flags.pass))}
		}
		passes = []config.Pass{pass}
	case cmd.Flags().Changed("floor"):
		passes = []config.Pass{{Name: "floor" + strconv.FormatFloat(flags.floor, 'f', -1, 64)}}
	default:
		passes = cfg.Cleaning.Passes
	}
	if cmd.Flags().Changed("floor") {
		passes[0].Floor = flags.floor
	}
	if flags.output != "" && len(passes) != 1 {
		return nil, fmt.Errorf("--output needs a single pass; choose one with --pass or --floor")
	}

	columns := cfg.Cleaning.Columns
	if flags.columns != "" {
		columns = parseColumns(flags.columns)
	}

	jobs := make([]batch.Job, 0, len(passes))
	for _, pass := range passes {
		opts := batch.Options(cfg, pass)
		if flags.ngram != 0 {
			opts.NGramSize = flags.ngram
		}
		if flags.topK != 0 {
			opts.TopK = flags.topK
		}
		output := batch.OutputPath(cfg.Paths.CleanedDir, input, pass.Name)
		if flags.output != "" {
			abs, err := filepath.Abs(flags.output)
			if err != nil {
				return nil, fmt.Errorf("resolve output: %w", err)
			}
			output = abs
		}
		jobs = append(jobs, batch.Job{
			Input:   input,
			Output:  output,
			Pass:    pass,
			Columns: columns,
			Options: opts,
		})
	}
	return jobs, nil
}

func renderReport(w io.Writer, report *cleaner.Report) string {
	rows := make([][]string, 0, len(report.Columns))
	for _, col := range report.Columns {
		rows = append(rows, []string{
			col.Column,
			strconv.Itoa(col.UniqueBefore),
			strconv.Itoa(col.UniqueAfter),
			strconv.Itoa(len(col.Merges)),
			strconv.Itoa(col.CellsRewritten),
			col.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(w, []string{"Column", "Unique", "After", "Merges", "Rewritten", "Time"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight})
}
