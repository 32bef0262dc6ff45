package resolve

import (
	"errors"
	"reflect"
	"testing"

	"fecclean/internal/sparse"
)

// sequentialApply is the cell-by-cell scan Plan must agree with.
func sequentialApply(matches []Match, values []string) []string {
	out := append([]string(nil), values...)
	for _, m := range matches {
		for i, v := range out {
			if v == m.Right {
				out[i] = m.Left
			}
		}
	}
	return out
}

func TestMatchesRowMajor(t *testing.T) {
	sim := sparse.FromDense([][]float64{
		{1, 0.9, 0},
		{0.9, 1, 0},
		{0, 0, 1},
	}, 3)
	got, err := Matches(sim, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	want := []Match{
		{Left: "a", Right: "a", Similarity: 1},
		{Left: "a", Right: "b", Similarity: 0.9},
		{Left: "b", Right: "a", Similarity: 0.9},
		{Left: "b", Right: "b", Similarity: 1},
		{Left: "c", Right: "c", Similarity: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Matches = %+v, want %+v", got, want)
	}
}

func TestMatchesNameMismatch(t *testing.T) {
	sim := sparse.NewCSR(2, 2)
	if _, err := Matches(sim, []string{"only"}); !errors.Is(err, ErrNameMismatch) {
		t.Fatalf("error = %v, want ErrNameMismatch", err)
	}
}

func TestFilterExactDropsSelfMatches(t *testing.T) {
	in := []Match{
		{Left: "a", Right: "a", Similarity: 1},
		{Left: "a", Right: "b", Similarity: 0.95},
		{Left: "b", Right: "b", Similarity: 0.999995},
		{Left: "c", Right: "d", Similarity: 1},
	}
	got := FilterExact(in)
	want := []Match{
		{Left: "a", Right: "b", Similarity: 0.95},
		{Left: "c", Right: "d", Similarity: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterExact = %+v, want %+v", got, want)
	}
}

func TestPlanFollowsChains(t *testing.T) {
	matches := []Match{
		{Left: "A", Right: "B"},
		{Left: "B", Right: "C"},
	}
	got := Plan(matches)
	want := Rewrites{"B": "A", "C": "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}

	reversed := []Match{
		{Left: "B", Right: "C"},
		{Left: "A", Right: "B"},
	}
	got = Plan(reversed)
	want = Rewrites{"B": "A", "C": "A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan(reversed) = %v, want %v", got, want)
	}
}

func TestPlanLastWriteWins(t *testing.T) {
	matches := []Match{
		{Left: "A", Right: "B"},
		{Left: "B", Right: "A"},
	}
	got := Plan(matches)
	want := Rewrites{"A": "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}
}

func TestPlanAgreesWithSequentialScan(t *testing.T) {
	values := []string{"w", "x", "y", "z", "x", "w", "v", "y", "u"}
	cases := [][]Match{
		{{Left: "w", Right: "x"}, {Left: "x", Right: "y"}, {Left: "y", Right: "w"}},
		{{Left: "x", Right: "w"}, {Left: "z", Right: "x"}, {Left: "w", Right: "z"}, {Left: "v", Right: "w"}},
		{{Left: "u", Right: "v"}, {Left: "v", Right: "u"}, {Left: "u", Right: "v"}},
		{{Left: "w", Right: "w"}, {Left: "y", Right: "z"}, {Left: "q", Right: "y"}},
		{{Left: "w", Right: "x"}, {Left: "w", Right: "y"}, {Left: "x", Right: "w"}, {Left: "x", Right: "y"}, {Left: "y", Right: "w"}, {Left: "y", Right: "x"}},
	}
	for i, matches := range cases {
		want := sequentialApply(matches, values)
		got := append([]string(nil), values...)
		Plan(matches).Apply(got)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("case %d: Apply = %v, sequential = %v", i, got, want)
		}
	}
}

func TestApplyCountsChangedCells(t *testing.T) {
	values := []string{"a", "b", "b", "c"}
	changed := Rewrites{"b": "a"}.Apply(values)
	if changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}
	if !reflect.DeepEqual(values, []string{"a", "a", "a", "c"}) {
		t.Fatalf("values = %v", values)
	}
	if n := (Rewrites{}).Apply(values); n != 0 {
		t.Fatalf("empty rewrites changed %d cells", n)
	}
}

func TestResolveSymmetricPair(t *testing.T) {
	sim := sparse.FromDense([][]float64{
		{1, 0.9},
		{0.9, 1},
	}, 2)
	res, err := Resolve(sim, []string{"Self Employed", "Self-Employed"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Exact != 2 {
		t.Fatalf("Exact = %d, want 2", res.Exact)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("Matches = %+v, want 2 fuzzy records", res.Matches)
	}
	// The second row's match runs last and moves everything to its left value.
	want := Rewrites{"Self Employed": "Self-Employed"}
	if !reflect.DeepEqual(res.Rewrites, want) {
		t.Fatalf("Rewrites = %v, want %v", res.Rewrites, want)
	}
}
