package similarity_test

import (
	"errors"
	"math"
	"testing"

	"fecclean/internal/ngram"
	"fecclean/internal/similarity"
	"fecclean/internal/sparse"
	"fecclean/internal/testsupport"
	"fecclean/internal/tfidf"
)

func fitCorpus(t *testing.T, values []string) *sparse.CSR {
	t.Helper()
	tok, err := ngram.New(3)
	if err != nil {
		t.Fatalf("ngram.New: %v", err)
	}
	return tfidf.Fit(values, tok).Matrix
}

func TestTopKDimensionMismatch(t *testing.T) {
	a := sparse.NewCSR(3, 3)
	b := sparse.NewCSR(2, 3)

	_, err := similarity.TopK(a, b, 10, 0.9)
	if !errors.Is(err, similarity.ErrDimensionMismatch) {
		t.Fatalf("TopK error = %v, want ErrDimensionMismatch", err)
	}
	want := "matrix multiplication requires A.shape[1] == B.shape[0] (A is 3x3, B is 2x3)"
	if err.Error() != want {
		t.Fatalf("error message = %q, want %q", err.Error(), want)
	}
}

func TestTopKAllZeroOperands(t *testing.T) {
	a := sparse.NewCSR(3, 3)
	b := sparse.NewCSR(3, 3)

	got, err := similarity.TopK(a, b, 10, 0.9)
	if err != nil {
		t.Fatalf("TopK returned error: %v", err)
	}
	if got.NNZ() != 0 {
		t.Fatalf("NNZ() = %d, want 0", got.NNZ())
	}
	if rows, cols := got.Shape(); rows != 3 || cols != 3 {
		t.Fatalf("Shape() = %dx%d, want 3x3", rows, cols)
	}
}

func TestTopKOneSidedZeroOperand(t *testing.T) {
	a := sparse.FromDense([][]float64{{1, 0}, {0, 1}}, 2)
	b := sparse.NewCSR(2, 4)
	got, err := similarity.TopK(a, b, 10, 0)
	if err != nil {
		t.Fatalf("TopK returned error: %v", err)
	}
	if rows, cols := got.Shape(); rows != 2 || cols != 4 || got.NNZ() != 0 {
		t.Fatalf("got %dx%d with %d entries, want empty 2x4", rows, cols, got.NNZ())
	}
}

func TestTopKInvalidParameters(t *testing.T) {
	m := sparse.FromDense([][]float64{{1}}, 1)
	tests := []struct {
		name  string
		k     int
		floor float64
	}{
		{"zero k", 0, 0.5},
		{"negative floor", 1, -0.1},
		{"floor above one", 1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := similarity.TopK(m, m, tt.k, tt.floor); !errors.Is(err, similarity.ErrInvalidParameter) {
				t.Fatalf("TopK error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestTopKMatchesDenseProduct(t *testing.T) {
	a := sparse.FromDense([][]float64{
		{1, 2, 0},
		{0, 1, 1},
	}, 3)
	b := sparse.FromDense([][]float64{
		{1, 0, 2},
		{0, 1, 1},
		{3, 0, 0},
	}, 3)
	// Dense A·B = [[1 2 4] [3 1 1]].
	got, err := similarity.TopK(a, b, 3, 0)
	if err != nil {
		t.Fatalf("TopK returned error: %v", err)
	}
	want := [][]float64{{1, 2, 4}, {3, 1, 1}}
	for i, row := range want {
		for j, v := range row {
			if testsupport.At(got, i, j) != v {
				t.Errorf("(%d,%d) = %v, want %v", i, j, testsupport.At(got, i, j), v)
			}
		}
	}
	cols, _ := got.Row(0)
	if cols[0] != 2 || cols[1] != 1 || cols[2] != 0 {
		t.Errorf("row 0 order = %v, want [2 1 0]", cols)
	}
	// Tie between columns 1 and 2 at 1.0 breaks by ascending column.
	cols, _ = got.Row(1)
	if cols[0] != 0 || cols[1] != 1 || cols[2] != 2 {
		t.Errorf("row 1 order = %v, want [0 1 2]", cols)
	}
}

func TestTopKBoundAndFloor(t *testing.T) {
	values := []string{
		"Self Employed", "Self-Employed", "SELF EMPLOYED", "Self Employed Attorney",
		"Self", "Employed", "Retired", "Retired Teacher", "Teacher",
	}
	m := fitCorpus(t, values)
	for _, k := range []int{1, 2, 3, 10} {
		for _, floor := range []float64{0, 0.3, 0.8, 0.95} {
			got, err := similarity.TopK(m, m.Transpose(), k, floor)
			if err != nil {
				t.Fatalf("TopK(k=%d, floor=%v) error: %v", k, floor, err)
			}
			for i := 0; i < got.Rows; i++ {
				cols, vals := got.Row(i)
				if len(cols) > k {
					t.Errorf("k=%d floor=%v row %d kept %d entries", k, floor, i, len(cols))
				}
				for n, v := range vals {
					if v < floor {
						t.Errorf("k=%d floor=%v row %d col %d score %v below floor", k, floor, i, cols[n], v)
					}
					if n > 0 && v > vals[n-1] {
						t.Errorf("row %d not ordered by decreasing score: %v", i, vals)
					}
				}
			}
		}
	}
}

func TestTopKLoweringFloorOnlyAddsEntries(t *testing.T) {
	values := []string{"Self Employed", "Self-Employed", "Self Employed Consultant", "Consultant", "Retired"}
	m := fitCorpus(t, values)
	mt := m.Transpose()

	floors := []float64{0.95, 0.8, 0.5, 0.2, 0}
	var prev *sparse.CSR
	for _, floor := range floors {
		got, err := similarity.TopK(m, mt, 10, floor)
		if err != nil {
			t.Fatalf("TopK(floor=%v): %v", floor, err)
		}
		if prev != nil {
			for i := 0; i < prev.Rows; i++ {
				cols, vals := prev.Row(i)
				for n, j := range cols {
					if testsupport.At(got, i, j) != vals[n] {
						t.Errorf("floor %v dropped (%d,%d) present at a higher floor", floor, i, j)
					}
				}
			}
			if got.NNZ() < prev.NNZ() {
				t.Errorf("floor %v has %d entries, fewer than %d at higher floor", floor, got.NNZ(), prev.NNZ())
			}
		}
		prev = got
	}
}

func TestTopKSelfSimilarityIsOne(t *testing.T) {
	values := []string{"Retired", "Attorney"}
	m := fitCorpus(t, values)
	got, err := similarity.TopK(m, m.Transpose(), 10, 0.5)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	for i := range values {
		if v := testsupport.At(got, i, i); math.Abs(v-1) > 1e-9 {
			t.Errorf("self similarity of %q = %v, want 1", values[i], v)
		}
	}
}

func TestTopKWorkersMatchSequential(t *testing.T) {
	values := []string{
		"Self Employed", "Self-Employed", "SELF EMPLOYED", "Retired", "Retire",
		"Attorney", "Atty", "Attorney At Law", "Physician", "Physician Assistant",
		"Not Employed", "None", "Homemaker", "Home Maker",
	}
	m := fitCorpus(t, values)
	mt := m.Transpose()
	seq, err := similarity.TopK(m, mt, 3, 0.1, similarity.WithWorkers(1))
	if err != nil {
		t.Fatalf("sequential TopK: %v", err)
	}
	for _, workers := range []int{2, 3, 8, 0} {
		par, err := similarity.TopK(m, mt, 3, 0.1, similarity.WithWorkers(workers))
		if err != nil {
			t.Fatalf("TopK(workers=%d): %v", workers, err)
		}
		if par.NNZ() != seq.NNZ() {
			t.Fatalf("workers=%d NNZ = %d, want %d", workers, par.NNZ(), seq.NNZ())
		}
		for n := range seq.Indices {
			if par.Indices[n] != seq.Indices[n] || par.Data[n] != seq.Data[n] {
				t.Fatalf("workers=%d differs at entry %d", workers, n)
			}
		}
	}
}

func TestTopKRejectsMalformedOperand(t *testing.T) {
	good := sparse.FromDense([][]float64{{1, 0}, {0, 1}}, 2)
	bad := &sparse.CSR{Rows: 2, Cols: 2, Indptr: []int{0, 1, 2}, Indices: []int{0, 7}, Data: []float64{1, 1}}

	if _, err := similarity.TopK(bad, good, 1, 0); !errors.Is(err, similarity.ErrInvalidParameter) {
		t.Fatalf("malformed A: error = %v, want ErrInvalidParameter", err)
	}
	if _, err := similarity.TopK(good, bad, 1, 0); !errors.Is(err, similarity.ErrInvalidParameter) {
		t.Fatalf("malformed B: error = %v, want ErrInvalidParameter", err)
	}
}
