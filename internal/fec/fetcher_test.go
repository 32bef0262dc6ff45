package fec

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"
)

// fakePager serves total pages of two rows each, keyed by cursor.
type fakePager struct {
	total    int
	calls    []Cursor
	failures map[int]error
}

func (p *fakePager) Page(_ context.Context, cursor Cursor) (*Page, error) {
	p.calls = append(p.calls, cursor)
	if err, ok := p.failures[len(p.calls)]; ok {
		return nil, err
	}
	next := 0
	if cursor.LastIndex != "" {
		next, _ = strconv.Atoi(cursor.LastIndex)
	}
	if next >= p.total {
		return &Page{Pages: p.total}, nil
	}
	n := next + 1
	return &Page{
		Contributions: []Contribution{
			{Occupation: "page " + strconv.Itoa(n) + " a"},
			{Occupation: "page " + strconv.Itoa(n) + " b"},
		},
		Next:  Cursor{LastIndex: strconv.Itoa(n), LastDate: "2020-01-01"},
		Pages: p.total,
	}, nil
}

type recordingSleep struct {
	calls []time.Duration
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func TestFetcherPausesWhenQuotaSpent(t *testing.T) {
	pager := &fakePager{total: 5}
	sleeper := &recordingSleep{}
	fetcher, err := NewFetcher(pager, FetcherConfig{HourlyQuota: 2, QuotaSleep: time.Hour, Sleep: sleeper.sleep})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	result, err := fetcher.Run(context.Background(), Cursor{}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Pages != 5 || len(result.Contributions) != 10 || !result.Exhausted {
		t.Fatalf("result = %d pages, %d rows, exhausted %v", result.Pages, len(result.Contributions), result.Exhausted)
	}
	// Six calls (five pages plus the empty one) under a quota of two.
	if len(sleeper.calls) != 2 || result.Pauses != 2 {
		t.Fatalf("pauses = %v", sleeper.calls)
	}
	for _, d := range sleeper.calls {
		if d != time.Hour {
			t.Fatalf("slept %s, want 1h", d)
		}
	}
	if result.Cursor.LastIndex != "5" {
		t.Fatalf("final cursor = %+v", result.Cursor)
	}
}

func TestFetcherStopsAtMaxPagesAndResumes(t *testing.T) {
	pager := &fakePager{total: 5}
	var progress []Progress
	fetcher, err := NewFetcher(pager, FetcherConfig{
		HourlyQuota: 100,
		Checkpoint: func(_ context.Context, p Progress) error {
			progress = append(progress, p)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	first, err := fetcher.Run(context.Background(), Cursor{}, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Pages != 2 || first.Exhausted {
		t.Fatalf("first run = %+v", first)
	}
	if len(progress) != 2 || progress[1].Rows != 4 || progress[1].Cursor.LastIndex != "2" {
		t.Fatalf("progress = %+v", progress)
	}
	if len(progress[1].Contributions) != 2 || progress[1].Contributions[0].Occupation != "page 2 a" {
		t.Fatalf("page rows = %+v", progress[1].Contributions)
	}

	second, err := fetcher.Run(context.Background(), first.Cursor, 0)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.Pages != 3 || !second.Exhausted {
		t.Fatalf("second run = %+v", second)
	}
	if second.Contributions[0].Occupation != "page 3 a" {
		t.Fatalf("resume started at %q", second.Contributions[0].Occupation)
	}
	if pager.calls[2] != (Cursor{LastIndex: "2", LastDate: "2020-01-01"}) {
		t.Fatalf("resume cursor = %+v", pager.calls[2])
	}
}

func TestFetcherRetriesOnceAfterRateLimit(t *testing.T) {
	pager := &fakePager{total: 1, failures: map[int]error{1: ErrQuota}}
	sleeper := &recordingSleep{}
	fetcher, err := NewFetcher(pager, FetcherConfig{HourlyQuota: 10, QuotaSleep: time.Minute, Sleep: sleeper.sleep})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	result, err := fetcher.Run(context.Background(), Cursor{}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Pages != 1 || len(sleeper.calls) != 1 {
		t.Fatalf("pages %d, sleeps %v", result.Pages, sleeper.calls)
	}

	stubborn := &fakePager{total: 1, failures: map[int]error{1: ErrQuota, 2: ErrQuota}}
	fetcher, err = NewFetcher(stubborn, FetcherConfig{HourlyQuota: 10, Sleep: sleeper.sleep})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := fetcher.Run(context.Background(), Cursor{}, 0); !errors.Is(err, ErrQuota) {
		t.Fatalf("error = %v, want ErrQuota", err)
	}
}

func TestFetcherKeepsPartialResultOnError(t *testing.T) {
	boom := errors.New("boom")
	pager := &fakePager{total: 5, failures: map[int]error{3: boom}}
	fetcher, err := NewFetcher(pager, FetcherConfig{HourlyQuota: 10})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	result, err := fetcher.Run(context.Background(), Cursor{}, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if result.Pages != 2 || result.Cursor.LastIndex != "2" {
		t.Fatalf("partial result = %+v", result)
	}
}

func TestFetcherHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher, err := NewFetcher(&fakePager{total: 3}, FetcherConfig{HourlyQuota: 1, QuotaSleep: time.Hour})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := fetcher.Run(ctx, Cursor{}, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if err := SleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("SleepWithContext = %v", err)
	}
}

func TestRowsContinueIndex(t *testing.T) {
	tbl := Rows([]Contribution{{Occupation: "Retired", Zip: "02139", Party: "DEM"}})
	AppendRows(tbl, []Contribution{{Occupation: "Attorney", Zip: ZipSentinel, Party: "REP"}})

	if err := CheckHeader(tbl); err != nil {
		t.Fatalf("CheckHeader: %v", err)
	}
	want := [][]string{
		{"0", "Retired", "", "", "", "02139", "DEM"},
		{"1", "Attorney", "", "", "", ZipSentinel, "REP"},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Fatalf("rows = %q", tbl.Rows)
	}
	tbl.Header[1] = "occupation"
	if err := CheckHeader(tbl); err == nil {
		t.Fatal("expected header mismatch")
	}
}
