// Package batch runs every configured cleaning pass over every raw CSV file
// and records each run in the history store.
//
// Passes are independent: each starts from its own copy of the raw table and
// writes <stem>_<pass>.csv into the cleaned directory. Only one batch may run
// against a state directory at a time; the runner holds an advisory file lock
// for the duration.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"fecclean/internal/cleaner"
	"fecclean/internal/config"
	"fecclean/internal/logging"
	"fecclean/internal/store"
	"fecclean/internal/table"
)

// ErrLocked reports that another process holds the run lock.
var ErrLocked = errors.New("another fecclean run is in progress")

// Job cleans one input file at one pass.
type Job struct {
	Input  string
	Output string
	Pass   config.Pass
	// Columns to clean in order; empty means every data column.
	Columns []string
	Options cleaner.Options
}

// PassResult is the outcome of one Job.
type PassResult struct {
	Job    Job
	RunID  string
	Report *cleaner.Report
	Err    error
}

// FileResult groups the pass results of one input file.
type FileResult struct {
	Input  string
	Passes []PassResult
}

// Summary is the outcome of a batch.
type Summary struct {
	Files    []FileResult
	Duration time.Duration
}

// Failed counts the passes that did not produce an output.
func (s *Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		for _, p := range f.Passes {
			if p.Err != nil {
				n++
			}
		}
	}
	return n
}

// Runner executes jobs and records them.
type Runner struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	lock   *flock.Flock
}

// New constructs a Runner. The store receives one run per job.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("batch runner requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "batch"),
		lock:   flock.New(cfg.LockPath()),
	}, nil
}

// Options returns the cleaner options the configuration implies for pass.
// Unset sizes keep the cleaner defaults.
func Options(cfg *config.Config, pass config.Pass) cleaner.Options {
	opts := cleaner.DefaultOptions(pass.Floor)
	if cfg.Cleaning.NGramSize > 0 {
		opts.NGramSize = cfg.Cleaning.NGramSize
	}
	if cfg.Cleaning.TopK > 0 {
		opts.TopK = cfg.Cleaning.TopK
	}
	opts.Workers = cfg.Cleaning.Workers
	return opts
}

// OutputPath names the cleaned file for input at pass.
func OutputPath(dir, input, pass string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_"+pass+".csv")
}

// Inputs lists the *.csv files of dir in name order.
func Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raw directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(files)
	return files, nil
}

func (r *Runner) acquire() (func(), error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, r.cfg.LockPath())
	}
	return func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

// Run cleans every raw file at every configured pass. Pass failures are
// recorded and reported in the summary; the returned error joins them.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	inputs, err := Inputs(r.cfg.Paths.RawDir)
	if err != nil {
		return nil, err
	}
	r.logger.Info("batch started",
		logging.Int("files", len(inputs)),
		logging.Int("passes", len(r.cfg.Cleaning.Passes)),
		logging.String("raw_dir", r.cfg.Paths.RawDir),
	)

	summary := &Summary{}
	var failures []error
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := r.runFile(ctx, input)
		if err != nil {
			return summary, err
		}
		for _, p := range result.Passes {
			if p.Err != nil {
				failures = append(failures, fmt.Errorf("%s (%s): %w", filepath.Base(input), p.Job.Pass.Name, p.Err))
			}
		}
		summary.Files = append(summary.Files, result)
	}
	summary.Duration = time.Since(start)

	r.logger.Info("batch finished",
		logging.Int("files", len(summary.Files)),
		logging.Int("failed", summary.Failed()),
		logging.Duration("duration", summary.Duration),
	)
	return summary, errors.Join(failures...)
}

func (r *Runner) runFile(ctx context.Context, input string) (FileResult, error) {
	result := FileResult{Input: input}
	raw, readErr := table.ReadFile(input)

	passes := r.cfg.Cleaning.Passes
	results := make([]PassResult, len(passes))
	g, gctx := errgroup.WithContext(ctx)
	for i, pass := range passes {
		job := Job{
			Input:   input,
			Output:  OutputPath(r.cfg.Paths.CleanedDir, input, pass.Name),
			Pass:    pass,
			Columns: r.cfg.Cleaning.Columns,
			Options: Options(r.cfg, pass),
		}
		g.Go(func() error {
			var src *table.Table
			if readErr == nil {
				src = raw.Clone()
			}
			res, err := r.run(gctx, job, src, readErr)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	result.Passes = results
	return result, nil
}

// Clean runs a single job under the run lock.
func (r *Runner) Clean(ctx context.Context, job Job) (PassResult, error) {
	release, err := r.acquire()
	if err != nil {
		return PassResult{Job: job}, err
	}
	defer release()

	src, readErr := table.ReadFile(job.Input)
	res, err := r.run(ctx, job, src, readErr)
	if err != nil {
		return res, err
	}
	return res, res.Err
}

// run executes job against src and records it. The returned error is reserved
// for history failures; cleaning failures land in PassResult.Err.
func (r *Runner) run(ctx context.Context, job Job, src *table.Table, readErr error) (PassResult, error) {
	result := PassResult{Job: job}
	run, err := r.store.StartRun(ctx, store.Run{
		InputFile: job.Input,
		Pass:      job.Pass.Name,
		Floor:     job.Options.Floor,
		NGramSize: job.Options.NGramSize,
		TopK:      job.Options.TopK,
	})
	if err != nil {
		return result, err
	}
	result.RunID = run.ID

	ctx = logging.WithRunID(ctx, run.ID)
	ctx = logging.WithPass(ctx, job.Pass.Name)
	ctx = logging.WithFile(ctx, filepath.Base(job.Input))
	logger := logging.WithContext(ctx, r.logger)

	report, stats, err := r.execute(ctx, job, src, readErr, logger)
	if err != nil {
		result.Err = err
		logger.Error("pass failed", logging.Error(err))
		if ferr := r.store.FailRun(ctx, run.ID, err); ferr != nil {
			return result, ferr
		}
		return result, nil
	}
	result.Report = report

	for _, col := range report.Columns {
		if err := r.store.RecordMerges(ctx, run.ID, col.Column, col.Merges); err != nil {
			return result, err
		}
	}
	if err := r.store.FinishRun(ctx, run.ID, stats); err != nil {
		return result, err
	}
	logger.Info("pass finished",
		logging.String("output", job.Output),
		logging.Int("cells_rewritten", stats.CellsRewritten),
		logging.Int("merges", stats.Merges),
		logging.Duration("duration", report.Duration),
	)
	return result, nil
}

func (r *Runner) execute(ctx context.Context, job Job, src *table.Table, readErr error, logger *slog.Logger) (*cleaner.Report, store.RunStats, error) {
	var stats store.RunStats
	if readErr != nil {
		return nil, stats, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	c, err := cleaner.New(job.Options, logger)
	if err != nil {
		return nil, stats, err
	}
	columns := job.Columns
	if len(columns) == 0 {
		columns = table.DataColumns(src)
	}
	report, err := c.Clean(src, columns)
	if err != nil {
		return nil, stats, err
	}
	if err := table.WriteFile(job.Output, src); err != nil {
		return nil, stats, err
	}

	stats = store.RunStats{
		OutputFile:     job.Output,
		Rows:           len(src.Rows),
		Columns:        len(report.Columns),
		CellsRewritten: report.CellsRewritten(),
	}
	for _, col := range report.Columns {
		stats.Merges += len(col.Merges)
	}
	return report, stats, nil
}
