package fec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fecclean/internal/logging"
)

// Pager fetches one page after a cursor. *Client implements it.
type Pager interface {
	Page(ctx context.Context, cursor Cursor) (*Page, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Progress is the state reported after every page.
type Progress struct {
	Cursor Cursor
	Pages  int
	Rows   int
	// Contributions holds only the rows of the page just fetched.
	Contributions []Contribution
}

// CheckpointFunc receives progress after each page. Returning an error stops
// the fetch.
type CheckpointFunc func(ctx context.Context, p Progress) error

// FetcherConfig controls pacing and progress reporting.
type FetcherConfig struct {
	// HourlyQuota is the number of calls allowed before pausing.
	HourlyQuota int
	// QuotaSleep is how long to pause once the quota is spent.
	QuotaSleep time.Duration
	Sleep      SleepFunc
	Checkpoint CheckpointFunc
	Logger     *slog.Logger
}

// Result summarizes a finished or stopped fetch.
type Result struct {
	Contributions []Contribution
	Cursor        Cursor
	Pages         int
	Pauses        int
	// Exhausted is true when the API returned an empty page or stopped
	// advancing the cursor.
	Exhausted bool
}

// Fetcher walks schedule_a pages under an hourly call quota.
type Fetcher struct {
	pager      Pager
	quota      int
	pause      time.Duration
	sleep      SleepFunc
	checkpoint CheckpointFunc
	logger     *slog.Logger
	calls      int
}

// NewFetcher builds a Fetcher over pager.
func NewFetcher(pager Pager, cfg FetcherConfig) (*Fetcher, error) {
	if pager == nil {
		return nil, errors.New("fec: pager is required")
	}
	if cfg.HourlyQuota < 1 {
		return nil, fmt.Errorf("fec: hourly quota must be positive, got %d", cfg.HourlyQuota)
	}
	if cfg.QuotaSleep < 0 {
		return nil, fmt.Errorf("fec: quota sleep must be >= 0, got %s", cfg.QuotaSleep)
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		pager:      pager,
		quota:      cfg.HourlyQuota,
		pause:      cfg.QuotaSleep,
		sleep:      sleep,
		checkpoint: cfg.Checkpoint,
		logger:     logging.NewComponentLogger(logger, "fetcher"),
	}, nil
}

// Run fetches pages starting after start until the results run out or
// maxPages pages have been fetched. maxPages <= 0 means no limit. On error the
// returned Result still holds everything fetched so far.
func (f *Fetcher) Run(ctx context.Context, start Cursor, maxPages int) (*Result, error) {
	result := &Result{Cursor: start}
	cursor := start
	quotaRetried := false

	for maxPages <= 0 || result.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if f.calls >= f.quota {
			if err := f.wait(ctx, result, "hourly quota reached"); err != nil {
				return result, err
			}
		}

		f.calls++
		page, err := f.pager.Page(ctx, cursor)
		if errors.Is(err, ErrQuota) && !quotaRetried {
			quotaRetried = true
			if err := f.wait(ctx, result, "api rejected call for rate limit"); err != nil {
				return result, err
			}
			continue
		}
		if err != nil {
			return result, fmt.Errorf("fetch page %d: %w", result.Pages+1, err)
		}
		quotaRetried = false

		if len(page.Contributions) == 0 {
			result.Exhausted = true
			break
		}
		result.Pages++
		result.Contributions = append(result.Contributions, page.Contributions...)
		f.logger.Debug("page fetched",
			logging.Int("page", result.Pages),
			logging.Int("rows", len(page.Contributions)),
			logging.String("last_index", page.Next.LastIndex),
		)

		stalled := page.Next.IsZero() || page.Next == cursor
		if !stalled {
			cursor = page.Next
			result.Cursor = cursor
		}
		if f.checkpoint != nil {
			err := f.checkpoint(ctx, Progress{
				Cursor:        result.Cursor,
				Pages:         result.Pages,
				Rows:          len(result.Contributions),
				Contributions: page.Contributions,
			})
			if err != nil {
				return result, fmt.Errorf("checkpoint after page %d: %w", result.Pages, err)
			}
		}
		if stalled {
			result.Exhausted = true
			break
		}
	}

	f.logger.Info("fetch finished",
		logging.Int("pages", result.Pages),
		logging.Int("rows", len(result.Contributions)),
		logging.Int("pauses", result.Pauses),
		logging.Bool("exhausted", result.Exhausted),
	)
	return result, nil
}

func (f *Fetcher) wait(ctx context.Context, result *Result, reason string) error {
	f.logger.Info("pausing fetch",
		logging.String("reason", reason),
		logging.Duration("sleep", f.pause),
		logging.Int("pages", result.Pages),
	)
	if err := f.sleep(ctx, f.pause); err != nil {
		return err
	}
	f.calls = 0
	result.Pauses++
	return nil
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
