// Package sparse implements the compressed-row matrix shared by the vectorizer,
// the similarity kernel and the match resolver.
package sparse

import "fmt"

// CSR is a compressed sparse row matrix. Row i owns the half-open range
// Indptr[i]:Indptr[i+1] of Indices and Data. Zero entries are never stored.
type CSR struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

// NewCSR returns an empty rows x cols matrix.
func NewCSR(rows, cols int) *CSR {
	return &CSR{
		Rows:    rows,
		Cols:    cols,
		Indptr:  make([]int, rows+1),
		Indices: []int{},
		Data:    []float64{},
	}
}

// Shape returns the row and column counts.
func (m *CSR) Shape() (int, int) {
	return m.Rows, m.Cols
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	if m == nil || len(m.Indptr) == 0 {
		return 0
	}
	return m.Indptr[m.Rows]
}

// Row returns views over the column indices and values stored for row i.
// The slices alias the matrix and must not be modified.
func (m *CSR) Row(i int) ([]int, []float64) {
	start, end := m.Indptr[i], m.Indptr[i+1]
	return m.Indices[start:end], m.Data[start:end]
}

// Transpose returns the cols x rows transpose. Column indices within each
// output row come out in ascending order.
func (m *CSR) Transpose() *CSR {
	out := &CSR{
		Rows:    m.Cols,
		Cols:    m.Rows,
		Indptr:  make([]int, m.Cols+1),
		Indices: make([]int, m.NNZ()),
		Data:    make([]float64, m.NNZ()),
	}
	for _, c := range m.Indices[:m.NNZ()] {
		out.Indptr[c+1]++
	}
	for c := 0; c < m.Cols; c++ {
		out.Indptr[c+1] += out.Indptr[c]
	}
	next := make([]int, m.Cols)
	copy(next, out.Indptr[:m.Cols])
	for r := 0; r < m.Rows; r++ {
		cols, vals := m.Row(r)
		for k, c := range cols {
			dst := next[c]
			out.Indices[dst] = r
			out.Data[dst] = vals[k]
			next[c]++
		}
	}
	return out
}

// Validate checks the structural invariants of the matrix.
func (m *CSR) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("sparse: negative shape %dx%d", m.Rows, m.Cols)
	}
	if len(m.Indptr) != m.Rows+1 {
		return fmt.Errorf("sparse: indptr has %d entries, want %d", len(m.Indptr), m.Rows+1)
	}
	if m.Indptr[0] != 0 {
		return fmt.Errorf("sparse: indptr[0] = %d, want 0", m.Indptr[0])
	}
	for i := 0; i < m.Rows; i++ {
		if m.Indptr[i+1] < m.Indptr[i] {
			return fmt.Errorf("sparse: indptr decreases at row %d", i)
		}
	}
	nnz := m.Indptr[m.Rows]
	if len(m.Indices) < nnz || len(m.Data) < nnz {
		return fmt.Errorf("sparse: %d stored entries but %d indices and %d values", nnz, len(m.Indices), len(m.Data))
	}
	for _, c := range m.Indices[:nnz] {
		if c < 0 || c >= m.Cols {
			return fmt.Errorf("sparse: column index %d out of range [0,%d)", c, m.Cols)
		}
	}
	return nil
}

// Builder assembles a CSR matrix one row at a time.
type Builder struct {
	m *CSR
}

// NewBuilder starts a matrix with the given column count. Rows are appended
// with AddRow.
func NewBuilder(cols, capacity int) *Builder {
	return &Builder{m: &CSR{
		Cols:    cols,
		Indptr:  []int{0},
		Indices: make([]int, 0, capacity),
		Data:    make([]float64, 0, capacity),
	}}
}

// AddRow appends a row. Zero values are skipped. Entries are stored in the
// order given.
func (b *Builder) AddRow(cols []int, vals []float64) {
	for k, c := range cols {
		if vals[k] == 0 {
			continue
		}
		b.m.Indices = append(b.m.Indices, c)
		b.m.Data = append(b.m.Data, vals[k])
	}
	b.m.Rows++
	b.m.Indptr = append(b.m.Indptr, len(b.m.Indices))
}

// Build returns the assembled matrix. The builder must not be reused.
func (b *Builder) Build() *CSR {
	return b.m
}

// FromDense builds a CSR matrix from a row-major dense slice. It exists for
// tests and small fixtures.
func FromDense(rows [][]float64, cols int) *CSR {
	b := NewBuilder(cols, 0)
	for _, row := range rows {
		idx := make([]int, 0, len(row))
		vals := make([]float64, 0, len(row))
		for j, v := range row {
			if v != 0 {
				idx = append(idx, j)
				vals = append(vals, v)
			}
		}
		b.AddRow(idx, vals)
	}
	return b.Build()
}
