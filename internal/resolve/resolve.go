// Package resolve turns a similarity matrix into match records and rewrites
// matched values to their canonical form.
//
// The rewrite policy is order dependent on purpose: for every match, in the
// order the similarity engine emitted them, each cell currently holding the
// right value becomes the left value. A cell may therefore move several times
// and ends on whatever the last applicable match wrote. Plan replays that
// sequence once over groups of values instead of once per cell, so the result
// is the same as the cell-by-cell scan.
package resolve

import (
	"errors"
	"fmt"

	"fecclean/internal/sparse"
)

// ExactCutoff is the similarity at or above which a value paired with itself
// is treated as an exact match rather than a near duplicate.
const ExactCutoff = 0.99999

// ErrNameMismatch reports a name vector that does not line up with the matrix.
var ErrNameMismatch = errors.New("name vector does not match similarity matrix shape")

// Match is one retained similarity between two corpus values.
type Match struct {
	Left       string
	Right      string
	Similarity float64
}

// Matches lists every stored entry of sim, row-major and in stored order
// within a row. Left is the row's value and Right the column's.
func Matches(sim *sparse.CSR, names []string) ([]Match, error) {
	if rows, cols := sim.Shape(); rows != len(names) || cols != len(names) {
		return nil, fmt.Errorf("%w: matrix is %dx%d, %d names", ErrNameMismatch, rows, cols, len(names))
	}
	out := make([]Match, 0, sim.NNZ())
	for i := 0; i < sim.Rows; i++ {
		cols, vals := sim.Row(i)
		for n, j := range cols {
			out = append(out, Match{Left: names[i], Right: names[j], Similarity: vals[n]})
		}
	}
	return out, nil
}

// IsExact reports whether m pairs a value with itself at self-similarity.
// Distinct values whose normalized forms coincide also score ~1.0; they are
// the strongest near duplicates and are not exact. Dropping them would leave
// "Self Employed" and "SELF EMPLOYED" unmerged at every floor.
func (m Match) IsExact() bool {
	return m.Left == m.Right && m.Similarity >= ExactCutoff
}

// FilterExact drops exact matches, keeping order.
func FilterExact(matches []Match) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.IsExact() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Rewrites maps an original value to the value its cells end up holding.
// Values that never move are absent.
type Rewrites map[string]string

// Plan replays matches in order and returns the final value of every value
// that changes.
func Plan(matches []Match) Rewrites {
	// groups[v] lists the original values whose cells currently hold v.
	groups := make(map[string][]string)
	started := make(map[string]bool)
	start := func(v string) {
		if !started[v] {
			started[v] = true
			groups[v] = append(groups[v], v)
		}
	}

	for _, m := range matches {
		if m.Left == m.Right {
			continue
		}
		start(m.Left)
		start(m.Right)
		moving := groups[m.Right]
		if len(moving) == 0 {
			continue
		}
		delete(groups, m.Right)
		target := groups[m.Left]
		if len(moving) > len(target) {
			moving, target = target, moving
		}
		groups[m.Left] = append(target, moving...)
	}

	out := make(Rewrites)
	for current, members := range groups {
		for _, original := range members {
			if original != current {
				out[original] = current
			}
		}
	}
	return out
}

// Apply rewrites values in place and returns how many cells changed.
func (r Rewrites) Apply(values []string) int {
	if len(r) == 0 {
		return 0
	}
	changed := 0
	for i, v := range values {
		if next, ok := r[v]; ok {
			values[i] = next
			changed++
		}
	}
	return changed
}

// Result is the outcome of resolving one column.
type Result struct {
	// Matches are the fuzzy matches that drove the rewrite, in iteration order.
	Matches []Match
	// Exact counts the discarded self matches.
	Exact    int
	Rewrites Rewrites
}

// Resolve enumerates, filters and plans the matches held in sim.
func Resolve(sim *sparse.CSR, names []string) (Result, error) {
	all, err := Matches(sim, names)
	if err != nil {
		return Result{}, err
	}
	fuzzy := FilterExact(all)
	return Result{
		Matches:  fuzzy,
		Exact:    len(all) - len(fuzzy),
		Rewrites: Plan(fuzzy),
	}, nil
}
