package ngram

import (
	"fmt"
	"iter"
)

// DefaultSize is the gram width used by every cleaning pass unless configured otherwise.
const DefaultSize = 3

// Tokenizer cuts normalized values into grams of width N.
type Tokenizer struct {
	N int
}

// New returns a tokenizer for grams of width n.
func New(n int) (Tokenizer, error) {
	if n < 1 {
		return Tokenizer{}, fmt.Errorf("ngram size must be at least 1, got %d", n)
	}
	return Tokenizer{N: n}, nil
}

// Seq yields the grams of value in order. The sequence can be ranged over any
// number of times and always produces the same grams.
func (t Tokenizer) Seq(value string) iter.Seq[string] {
	padded := Normalize(value)
	n := t.N
	return func(yield func(string) bool) {
		if n < 1 {
			return
		}
		for i := 0; i+n <= len(padded); i++ {
			if !yield(padded[i : i+n]) {
				return
			}
		}
	}
}

// NGrams returns every gram of value.
func (t Tokenizer) NGrams(value string) []string {
	padded := Normalize(value)
	count := Count(len(padded), t.N)
	if count == 0 {
		return []string{}
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, padded[i:i+t.N])
	}
	return out
}

// Any tokenizes a value of any type by formatting it as text first.
func (t Tokenizer) Any(value any) []string {
	if s, ok := value.(string); ok {
		return t.NGrams(s)
	}
	return t.NGrams(fmt.Sprint(value))
}

// Count reports how many grams of width n fit in a string of the given length.
func Count(length, n int) int {
	if n < 1 || length < n {
		return 0
	}
	return length - n + 1
}
