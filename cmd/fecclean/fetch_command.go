package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fecclean/internal/config"
	"fecclean/internal/fec"
	"fecclean/internal/logging"
	"fecclean/internal/store"
	"fecclean/internal/table"
)

type fetchFlags struct {
	cycle     string
	committee string
	maxPages  int
	output    string
	restart   bool
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download individual contributions from OpenFEC into the raw directory",
		Long: "Fetch pages through OpenFEC schedule_a receipts, newest first, pausing when the\n" +
			"hourly quota is spent. Progress is checkpointed after every page; running fetch\n" +
			"again continues from the stored cursor unless --restart is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-pages") {
				flags.maxPages = cfg.FEC.MaxPages
			}
			return ctx.withStore(func(st *store.Store) error {
				return runFetch(cmd, cfg, st, flags, logger)
			})
		},
	}

	cmd.Flags().StringVar(&flags.cycle, "cycle", "", "Two-year transaction period: even year 2000-2020 (default from config)")
	cmd.Flags().StringVar(&flags.committee, "committee", "", "Committee type: H, S, or P (default from config)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "Stop after this many pages; 0 fetches everything")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output CSV (default raw_dir/fec_<cycle>_<committee>.csv)")
	cmd.Flags().BoolVar(&flags.restart, "restart", false, "Discard the stored cursor and start from the newest receipt")
	return cmd
}

func runFetch(cmd *cobra.Command, cfg *config.Config, st *store.Store, flags fetchFlags, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cycleValue := flags.cycle
	if cycleValue == "" {
		cycleValue = cfg.FEC.Cycle
	}
	cycle, ok := fec.NormalizeCycle(cycleValue)
	if !ok {
		printStatus(out, "cycle", statusWarn, fmt.Sprintf("%q is not an even year between 2000 and 2020; using %s", cycleValue, cycle))
	}
	committeeValue := flags.committee
	if committeeValue == "" {
		committeeValue = cfg.FEC.CommitteeType
	}
	committee, ok := fec.NormalizeCommitteeType(committeeValue)
	if !ok {
		printStatus(out, "committee", statusWarn, fmt.Sprintf("%q is not H, S, or P; using %s", committeeValue, committee))
	}

	key := fec.CheckpointKey(cycle, committee)
	if flags.restart {
		if err := st.ClearCheckpoint(ctx, key); err != nil {
			return err
		}
	}
	cp, err := st.LoadCheckpoint(ctx, key)
	if err != nil {
		return err
	}

	output := flags.output
	switch {
	case output != "":
		if output, err = filepath.Abs(output); err != nil {
			return fmt.Errorf("resolve output: %w", err)
		}
	case cp != nil && cp.OutputFile != "":
		output = cp.OutputFile
	default:
		output = filepath.Join(cfg.Paths.RawDir, fmt.Sprintf("fec_%s_%s.csv", cycle, committee))
	}

	start := fec.Cursor{}
	priorPages := 0
	raw := fec.Rows(nil)
	if cp != nil {
		existing, err := loadExisting(output)
		if err != nil {
			return err
		}
		if existing != nil {
			raw = existing
			start = fec.Cursor{LastIndex: cp.LastIndex, LastDate: cp.LastDate}
			priorPages = cp.Pages
			printStatus(out, "resume", statusInfo, fmt.Sprintf("%d rows after %d page(s) in %s", len(raw.Rows), cp.Pages, output))
		}
	}

	client, err := fec.New(fec.Query{
		APIKey:        cfg.FEC.APIKey,
		Cycle:         cycle,
		CommitteeType: committee,
		PerPage:       cfg.FEC.PerPage,
	}, fec.WithBaseURL(cfg.FEC.BaseURL), fec.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		return err
	}

	total, err := client.TotalPages(ctx)
	switch {
	case err == nil:
		printStatus(out, "query", statusInfo, fmt.Sprintf("%d page(s) available for %s/%s", total, cycle, committee))
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		logger.Warn("page count unavailable", logging.Error(err))
	}

	fetcher, err := fec.NewFetcher(client, fec.FetcherConfig{
		HourlyQuota: cfg.FEC.HourlyQuota,
		QuotaSleep:  cfg.QuotaSleep(),
		Logger:      logger,
		Checkpoint: func(ctx context.Context, p fec.Progress) error {
			fec.AppendRows(raw, p.Contributions)
			if err := table.WriteFile(output, raw); err != nil {
				return err
			}
			return st.SaveCheckpoint(ctx, store.Checkpoint{
				Key:        key,
				LastIndex:  p.Cursor.LastIndex,
				LastDate:   p.Cursor.LastDate,
				Pages:      priorPages + p.Pages,
				Rows:       len(raw.Rows),
				OutputFile: output,
			})
		},
	})
	if err != nil {
		return err
	}

	result, err := fetcher.Run(ctx, start, flags.maxPages)
	if err != nil {
		printStatus(out, "fetch", statusError, fmt.Sprintf("stopped after %d page(s): %v", result.Pages, err))
		return err
	}
	if result.Exhausted {
		if err := st.ClearCheckpoint(ctx, key); err != nil {
			return err
		}
		printStatus(out, "fetch", statusOK, fmt.Sprintf("complete: %d rows in %s", len(raw.Rows), output))
		return nil
	}
	printStatus(out, "fetch", statusOK, fmt.Sprintf("%d page(s), %d rows in %s; run fetch again to continue", result.Pages, len(raw.Rows), output))
	return nil
}

// loadExisting reads a partially fetched table, or returns nil when the file
// is gone and the download has to start over.
func loadExisting(path string) (*table.Table, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	existing, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := fec.CheckHeader(existing); err != nil {
		return nil, fmt.Errorf("cannot resume into %s: %w", path, err)
	}
	return existing, nil
}
