// Package tfidf builds character n-gram TF-IDF matrices for one column's
// corpus of unique values.
package tfidf

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"fecclean/internal/ngram"
	"fecclean/internal/sparse"
)

// Model is the fitted vocabulary and weight matrix for a corpus.
type Model struct {
	// Vocabulary maps a gram to its matrix column.
	Vocabulary map[string]int
	// Terms is the inverse of Vocabulary, in column order.
	Terms []string
	// IDF holds the smoothed inverse document frequency per column.
	IDF []float64
	// Matrix has one L2-normalized row per corpus value.
	Matrix *sparse.CSR
}

type options struct {
	workers int
}

// Option configures Fit.
type Option func(*options)

// WithWorkers tokenizes corpus values on up to n goroutines. Values <= 0 use
// GOMAXPROCS. The fitted model does not depend on the worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Fit builds the vocabulary, IDF weights and TF-IDF matrix for values.
// Columns are assigned in order of first appearance across the corpus.
// An empty corpus yields an empty vocabulary and a 0x0 matrix.
func Fit(values []string, tok ngram.Tokenizer, opts ...Option) *Model {
	cfg := options{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	docs := countAll(values, tok, cfg.workers)

	model := &Model{Vocabulary: make(map[string]int)}
	docFreq := make([]int, 0)
	termCounts := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		counts := make(map[int]float64, len(doc.grams))
		for k, gram := range doc.grams {
			col, ok := model.Vocabulary[gram]
			if !ok {
				col = len(model.Terms)
				model.Vocabulary[gram] = col
				model.Terms = append(model.Terms, gram)
				docFreq = append(docFreq, 0)
			}
			docFreq[col]++
			counts[col] = doc.counts[k]
		}
		termCounts[i] = counts
	}

	model.IDF = make([]float64, len(model.Terms))
	n := float64(len(values))
	for col, df := range docFreq {
		model.IDF[col] = SmoothIDF(n, float64(df))
	}

	nnz := 0
	for _, counts := range termCounts {
		nnz += len(counts)
	}
	builder := sparse.NewBuilder(len(model.Terms), nnz)
	for _, counts := range termCounts {
		cols := make([]int, 0, len(counts))
		for col := range counts {
			cols = append(cols, col)
		}
		slices.Sort(cols)
		vals := make([]float64, len(cols))
		for k, col := range cols {
			vals[k] = counts[col] * model.IDF[col]
		}
		normalizeL2(vals)
		builder.AddRow(cols, vals)
	}
	model.Matrix = builder.Build()
	return model
}

// SmoothIDF returns ln((1+n)/(1+df)) + 1 for a corpus of n values where the
// gram occurs in df of them.
func SmoothIDF(n, df float64) float64 {
	return math.Log((1+n)/(1+df)) + 1
}

func normalizeL2(vals []float64) {
	var sum float64
	for _, v := range vals {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vals {
		vals[i] /= norm
	}
}

// docCounts holds the distinct grams of one value in order of first
// appearance and how often each occurs.
type docCounts struct {
	grams  []string
	counts []float64
}

func count(tok ngram.Tokenizer, value string) docCounts {
	var tc docCounts
	index := make(map[string]int)
	for gram := range tok.Seq(value) {
		k, ok := index[gram]
		if !ok {
			k = len(tc.grams)
			index[gram] = k
			tc.grams = append(tc.grams, gram)
			tc.counts = append(tc.counts, 0)
		}
		tc.counts[k]++
	}
	return tc
}

func countAll(values []string, tok ngram.Tokenizer, workers int) []docCounts {
	docs := make([]docCounts, len(values))
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(values) < 2 {
		for i, v := range values {
			docs[i] = count(tok, v)
		}
		return docs
	}

	chunk := (len(values) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(values); start += chunk {
		end := min(start+chunk, len(values))
		g.Go(func() error {
			for i := start; i < end; i++ {
				docs[i] = count(tok, values[i])
			}
			return nil
		})
	}
	// Counting cannot fail.
	g.Wait()
	return docs
}
