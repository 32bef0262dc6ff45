package testsupport

import "fecclean/internal/sparse"

// At returns the entry of m at (i, j), or 0 when nothing is stored there.
func At(m *sparse.CSR, i, j int) float64 {
	cols, vals := m.Row(i)
	for k, c := range cols {
		if c == j {
			return vals[k]
		}
	}
	return 0
}
