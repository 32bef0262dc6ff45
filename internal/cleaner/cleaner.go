// Package cleaner drives the near-duplicate resolution pipeline over the
// target columns of a table.
//
// Each column is cleaned in turn: its distinct values form the corpus, the
// corpus is vectorized into character n-gram TF-IDF rows, every row is
// compared against every other through a bounded top-K sparse product, and the
// resulting matches rewrite the column in place. The table produced by one
// column is the input of the next; columns never influence each other's
// similarities.
package cleaner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fecclean/internal/logging"
	"fecclean/internal/ngram"
	"fecclean/internal/resolve"
	"fecclean/internal/similarity"
	"fecclean/internal/table"
	"fecclean/internal/tfidf"
)

// ErrUnknownColumn reports a target column missing from the table header.
var ErrUnknownColumn = errors.New("unknown column")

// Options are the pipeline parameters shared by every column of one pass.
type Options struct {
	NGramSize int
	TopK      int
	Floor     float64
	// Workers bounds the goroutines used for tokenization and similarity rows.
	// Zero uses GOMAXPROCS; results do not depend on it.
	Workers int
}

// DefaultOptions returns n=3, K=10 at the given floor.
func DefaultOptions(floor float64) Options {
	return Options{NGramSize: ngram.DefaultSize, TopK: 10, Floor: floor}
}

func (o Options) validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top-k must be at least 1, got %d", o.TopK)
	}
	if o.Floor < 0 || o.Floor > 1 {
		return fmt.Errorf("floor must be within [0, 1], got %v", o.Floor)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", o.Workers)
	}
	return nil
}

// Cleaner runs the pipeline with fixed options.
type Cleaner struct {
	opts   Options
	tok    ngram.Tokenizer
	logger *slog.Logger
}

// New validates opts and returns a Cleaner. A nil logger discards output.
func New(opts Options, logger *slog.Logger) (*Cleaner, error) {
	tok, err := ngram.New(opts.NGramSize)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Cleaner{
		opts:   opts,
		tok:    tok,
		logger: logging.NewComponentLogger(logger, "cleaner"),
	}, nil
}

// Options returns the options the cleaner was built with.
func (c *Cleaner) Options() Options {
	return c.opts
}

// ColumnReport summarizes one column's resolution.
type ColumnReport struct {
	Column         string
	UniqueBefore   int
	UniqueAfter    int
	Vocabulary     int
	Matches        int
	Exact          int
	CellsRewritten int
	// Merges are the fuzzy matches in the order they were applied.
	Merges   []resolve.Match
	Duration time.Duration
}

// Report summarizes a whole table.
type Report struct {
	Floor    float64
	Columns  []ColumnReport
	Duration time.Duration
}

// CellsRewritten totals rewritten cells across columns.
func (r *Report) CellsRewritten() int {
	total := 0
	for _, col := range r.Columns {
		total += col.CellsRewritten
	}
	return total
}

// Clean resolves each column in order, mutating t. Every column sees the
// table as left by the previous one.
func (c *Cleaner) Clean(t *table.Table, columns []string) (*Report, error) {
	start := time.Now()
	report := &Report{Floor: c.opts.Floor, Columns: make([]ColumnReport, 0, len(columns))}
	for _, column := range columns {
		col, err := c.CleanColumn(t, column)
		if err != nil {
			return report, err
		}
		report.Columns = append(report.Columns, col)
	}
	report.Duration = time.Since(start)
	c.logger.Info("table cleaned",
		logging.Float64("floor", c.opts.Floor),
		logging.Int("columns", len(report.Columns)),
		logging.Int("cells_rewritten", report.CellsRewritten()),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// CleanColumn resolves near duplicates in one column of t in place.
func (c *Cleaner) CleanColumn(t *table.Table, column string) (ColumnReport, error) {
	start := time.Now()
	idx, ok := t.Column(column)
	if !ok {
		return ColumnReport{}, fmt.Errorf("%w %q", ErrUnknownColumn, column)
	}

	names := t.Unique(idx)
	res, vocab, err := c.resolve(names)
	if err != nil {
		return ColumnReport{}, fmt.Errorf("column %q: %w", column, err)
	}

	values := t.Values(idx)
	changed := res.Rewrites.Apply(values)
	t.SetValues(idx, values)

	report := ColumnReport{
		Column:         column,
		UniqueBefore:   len(names),
		UniqueAfter:    len(t.Unique(idx)),
		Vocabulary:     vocab,
		Matches:        len(res.Matches),
		Exact:          res.Exact,
		CellsRewritten: changed,
		Merges:         res.Matches,
		Duration:       time.Since(start),
	}
	c.logger.Debug("column cleaned",
		logging.String(logging.FieldColumn, column),
		logging.Int("unique_before", report.UniqueBefore),
		logging.Int("unique_after", report.UniqueAfter),
		logging.Int("matches", report.Matches),
		logging.Int("cells_rewritten", report.CellsRewritten),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// Preview returns the fuzzy matches a column would apply, leaving t untouched.
func (c *Cleaner) Preview(t *table.Table, column string) ([]resolve.Match, error) {
	idx, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownColumn, column)
	}
	res, _, err := c.resolve(t.Unique(idx))
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", column, err)
	}
	return res.Matches, nil
}

func (c *Cleaner) resolve(names []string) (resolve.Result, int, error) {
	model := tfidf.Fit(names, c.tok, tfidf.WithWorkers(c.opts.Workers))
	sim, err := similarity.TopK(
		model.Matrix,
		model.Matrix.Transpose(),
		c.opts.TopK,
		c.opts.Floor,
		similarity.WithWorkers(c.opts.Workers),
	)
	if err != nil {
		return resolve.Result{}, 0, err
	}
	res, err := resolve.Resolve(sim, names)
	if err != nil {
		return resolve.Result{}, 0, err
	}
	return res, len(model.Terms), nil
}
