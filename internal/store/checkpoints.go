package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Checkpoint is the resume cursor of an OpenFEC download. Key identifies the
// query (cycle and committee type) the cursor belongs to.
type Checkpoint struct {
	Key        string
	LastIndex  string
	LastDate   string
	Pages      int
	Rows       int
	OutputFile string
	UpdatedAt  time.Time
}

// SaveCheckpoint inserts or replaces the checkpoint for cp.Key.
func (s *Store) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	if cp.Key == "" {
		return errors.New("checkpoint key is required")
	}
	_, err := s.exec(ctx,
		`INSERT INTO fetch_checkpoints (key, last_index, last_date, pages, row_count, output_file, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            last_index = excluded.last_index,
            last_date = excluded.last_date,
            pages = excluded.pages,
            row_count = excluded.row_count,
            output_file = excluded.output_file,
            updated_at = excluded.updated_at`,
		cp.Key,
		nullableString(cp.LastIndex),
		nullableString(cp.LastDate),
		cp.Pages,
		cp.Rows,
		nullableString(cp.OutputFile),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.Key, err)
	}
	return nil
}

// LoadCheckpoint returns the checkpoint for key, or nil when none is stored.
func (s *Store) LoadCheckpoint(ctx context.Context, key string) (*Checkpoint, error) {
	var (
		cp         Checkpoint
		lastIndex  sql.NullString
		lastDate   sql.NullString
		outputFile sql.NullString
		updatedAt  sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT key, last_index, last_date, pages, row_count, output_file, updated_at
        FROM fetch_checkpoints WHERE key = ?`, key,
	).Scan(&cp.Key, &lastIndex, &lastDate, &cp.Pages, &cp.Rows, &outputFile, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", key, err)
	}
	cp.LastIndex = lastIndex.String
	cp.LastDate = lastDate.String
	cp.OutputFile = outputFile.String
	if cp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse checkpoint time: %w", err)
	}
	return &cp, nil
}

// ClearCheckpoint removes the checkpoint for key so the next fetch starts over.
func (s *Store) ClearCheckpoint(ctx context.Context, key string) error {
	if _, err := s.exec(ctx, `DELETE FROM fetch_checkpoints WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w", key, err)
	}
	return nil
}
