package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fecclean/internal/resolve"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one pass over one input file.
type Run struct {
	ID             string
	InputFile      string
	OutputFile     string
	Pass           string
	Floor          float64
	NGramSize      int
	TopK           int
	Status         RunStatus
	Rows           int
	Columns        int
	CellsRewritten int
	Merges         int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration is the wall time of a finished run, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStats are the totals recorded when a run succeeds.
type RunStats struct {
	OutputFile     string
	Rows           int
	Columns        int
	CellsRewritten int
	Merges         int
}

// Merge is one applied match, in application order within its column.
type Merge struct {
	RunID      string
	Column     string
	Seq        int
	Left       string
	Right      string
	Similarity float64
}

const runColumns = `id, input_file, output_file, pass, floor, ngram_size, top_k, status,
    row_count, column_count, cells_rewritten, merge_count, error_message, started_at, finished_at`

// StartRun inserts run in the running state. An empty ID is replaced with a
// fresh UUID; the stored run is returned.
func (s *Store) StartRun(ctx context.Context, run Run) (*Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.InputFile == "" || run.Pass == "" {
		return nil, errors.New("run requires an input file and a pass")
	}
	run.Status = RunRunning
	run.StartedAt = time.Now().UTC()

	_, err := s.exec(ctx,
		`INSERT INTO runs (id, input_file, pass, floor, ngram_size, top_k, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.InputFile,
		run.Pass,
		run.Floor,
		run.NGramSize,
		run.TopK,
		string(run.Status),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// FinishRun marks a run succeeded and records its totals.
func (s *Store) FinishRun(ctx context.Context, id string, stats RunStats) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, output_file = ?, row_count = ?, column_count = ?,
            cells_rewritten = ?, merge_count = ?, finished_at = ?
        WHERE id = ?`,
		string(RunSucceeded),
		nullableString(stats.OutputFile),
		stats.Rows,
		stats.Columns,
		stats.CellsRewritten,
		stats.Merges,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return expectOne(res, id)
}

// FailRun marks a run failed with cause.
func (s *Store) FailRun(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(RunFailed),
		msg,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun returns the run with id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		status     string
		outputFile sql.NullString
		errMsg     sql.NullString
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.InputFile,
		&outputFile,
		&run.Pass,
		&run.Floor,
		&run.NGramSize,
		&run.TopK,
		&status,
		&run.Rows,
		&run.Columns,
		&run.CellsRewritten,
		&run.Merges,
		&errMsg,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.OutputFile = outputFile.String
	run.Error = errMsg.String
	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}

// RecordMerges stores the matches applied to column during run, keeping
// their order.
func (s *Store) RecordMerges(ctx context.Context, runID, column string, matches []resolve.Match) error {
	if len(matches) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO merges (run_id, column_name, seq, left_value, right_value, similarity)
            VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, m := range matches {
			if _, err := stmt.ExecContext(ctx, runID, column, i, m.Left, m.Right, m.Similarity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record merges for %s: %w", column, err)
	}
	return nil
}

// Merges returns the merges recorded for runID, optionally limited to column.
func (s *Store) Merges(ctx context.Context, runID, column string) ([]Merge, error) {
	query := `SELECT run_id, column_name, seq, left_value, right_value, similarity
        FROM merges WHERE run_id = ?`
	args := []any{runID}
	if column != "" {
		query += ` AND column_name = ?`
		args = append(args, column)
	}
	query += ` ORDER BY column_name, seq`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list merges: %w", err)
	}
	defer rows.Close()

	var out []Merge
	for rows.Next() {
		var m Merge
		if err := rows.Scan(&m.RunID, &m.Column, &m.Seq, &m.Left, &m.Right, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan merge: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
