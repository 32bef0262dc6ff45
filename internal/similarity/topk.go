// Package similarity computes bounded top-K sparse matrix products.
//
// TopK multiplies a row matrix A by a column matrix B and keeps, for every row
// of A, at most K products that reach a similarity floor. With A holding
// L2-normalized TF-IDF rows and B its transpose, the products are cosine
// similarities between corpus values. The dense product is never formed: each
// row only visits the columns of B that share a nonzero dimension with it.
package similarity

import (
	"container/heap"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"fecclean/internal/sparse"
)

var (
	// ErrDimensionMismatch reports operands whose inner dimensions disagree.
	ErrDimensionMismatch = errors.New("matrix multiplication requires A.shape[1] == B.shape[0]")
	// ErrInvalidParameter reports a K below one or a floor outside [0, 1].
	ErrInvalidParameter = errors.New("invalid top-k parameter")
)

type options struct {
	workers int
}

// Option configures TopK.
type Option func(*options)

// WithWorkers spreads rows of A across up to n goroutines. Values <= 0 use
// GOMAXPROCS. The result is identical for every worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// TopK returns the rows(A) x cols(B) matrix holding, for each row i, the at
// most k largest products A[i]·B[:,j] that are >= floor. Entries within a row
// are stored by decreasing similarity, ties by ascending column.
func TopK(a, b *sparse.CSR, k int, floor float64, opts ...Option) (*sparse.CSR, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrInvalidParameter)
	}
	aRows, aCols := a.Shape()
	bRows, bCols := b.Shape()
	if aCols != bRows {
		return nil, fmt.Errorf("%w (A is %dx%d, B is %dx%d)", ErrDimensionMismatch, aRows, aCols, bRows, bCols)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: A: %v", ErrInvalidParameter, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: B: %v", ErrInvalidParameter, err)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidParameter, k)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("%w: floor must be within [0, 1], got %v", ErrInvalidParameter, floor)
	}
	if a.NNZ() == 0 || b.NNZ() == 0 {
		return sparse.NewCSR(a.Rows, b.Cols), nil
	}

	cfg := options{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(1, min(workers, a.Rows))

	rows := make([][]Entry, a.Rows)
	chunk := (a.Rows + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < a.Rows; start += chunk {
		end := min(start+chunk, a.Rows)
		g.Go(func() error {
			acc := newAccumulator(b.Cols)
			for i := start; i < end; i++ {
				rows[i] = acc.row(a, b, i, k, floor)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nnz := 0
	for _, r := range rows {
		nnz += len(r)
	}
	builder := sparse.NewBuilder(b.Cols, nnz)
	for _, r := range rows {
		cols := make([]int, len(r))
		vals := make([]float64, len(r))
		for n, e := range r {
			cols[n] = e.Col
			vals[n] = e.Score
		}
		builder.AddRow(cols, vals)
	}
	return builder.Build(), nil
}

// Entry is one retained product.
type Entry struct {
	Col   int
	Score float64
}

// ranksAbove orders entries by score, then by ascending column.
func ranksAbove(x, y Entry) bool {
	if x.Score != y.Score {
		return x.Score > y.Score
	}
	return x.Col < y.Col
}

// accumulator is the per-worker scratch space for one row's products.
type accumulator struct {
	sums    []float64
	seen    []bool
	touched []int
	best    entryHeap
}

func newAccumulator(cols int) *accumulator {
	return &accumulator{
		sums: make([]float64, cols),
		seen: make([]bool, cols),
	}
}

func (acc *accumulator) row(a, b *sparse.CSR, i, k int, floor float64) []Entry {
	aCols, aVals := a.Row(i)
	for n, inner := range aCols {
		av := aVals[n]
		bCols, bVals := b.Row(inner)
		for m, j := range bCols {
			if !acc.seen[j] {
				acc.seen[j] = true
				acc.touched = append(acc.touched, j)
			}
			acc.sums[j] += av * bVals[m]
		}
	}

	acc.best = acc.best[:0]
	for _, j := range acc.touched {
		score := acc.sums[j]
		acc.sums[j] = 0
		acc.seen[j] = false
		if score < floor || score == 0 {
			continue
		}
		acc.offer(Entry{Col: j, Score: score}, k)
	}
	acc.touched = acc.touched[:0]

	if len(acc.best) == 0 {
		return nil
	}
	out := make([]Entry, len(acc.best))
	copy(out, acc.best)
	sort.Slice(out, func(x, y int) bool { return ranksAbove(out[x], out[y]) })
	return out
}

// offer keeps e if fewer than k entries are held or e outranks the weakest.
func (acc *accumulator) offer(e Entry, k int) {
	if len(acc.best) < k {
		heap.Push(&acc.best, e)
		return
	}
	if ranksAbove(e, acc.best[0]) {
		acc.best[0] = e
		heap.Fix(&acc.best, 0)
	}
}

// entryHeap is a min-heap with the lowest ranked entry on top.
type entryHeap []Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return ranksAbove(h[j], h[i]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
