// Package occurrence implements character-frequency signatures of words and
// sentences. Two words or sentences are anagrams of each other exactly when
// their occurrences are equal.
package occurrence

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
)

// ErrNotSubset is returned by Subtract when the subtrahend is not contained
// in the minuend.
var ErrNotSubset = fmt.Errorf("%w: occurrence is not a subset", apperrors.ErrPrecondition)

// Count is one character of a signature and how often it occurs.
type Count struct {
	Char rune `json:"char"`
	N    int  `json:"n"`
}

// Occurrence is sorted ascending by Char, holds each Char at most once and
// never a zero count. Values are never mutated after construction.
type Occurrence []Count

// WordOccurrences lowercases every character of word and counts it. All
// characters are counted, not only letters.
func WordOccurrences(word string) Occurrence {
	return countRunes(word)
}

// SentenceOccurrences is the occurrence of the concatenation of all words.
func SentenceOccurrences(sentence []string) Occurrence {
	return countRunes(sentence...)
}

func countRunes(words ...string) Occurrence {
	counts := make(map[rune]int)
	for _, w := range words {
		for _, r := range w {
			counts[unicode.ToLower(r)]++
		}
	}
	occ := make(Occurrence, 0, len(counts))
	for r, n := range counts {
		occ = append(occ, Count{Char: r, N: n})
	}
	sort.Slice(occ, func(i, j int) bool {
		return occ[i].Char < occ[j].Char
	})
	return occ
}

// Add returns the multiset union of x and y.
func Add(x, y Occurrence) Occurrence {
	out := make(Occurrence, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i].Char < y[j].Char:
			out = append(out, x[i])
			i++
		case x[i].Char > y[j].Char:
			out = append(out, y[j])
			j++
		default:
			out = append(out, Count{Char: x[i].Char, N: x[i].N + y[j].N})
			i++
			j++
		}
	}
	out = append(out, x[i:]...)
	return append(out, y[j:]...)
}

// CanSubtract reports whether y is a sub-multiset of x.
func CanSubtract(x, y Occurrence) bool {
	i := 0
	for _, c := range y {
		for i < len(x) && x[i].Char < c.Char {
			i++
		}
		if i == len(x) || x[i].Char != c.Char || x[i].N < c.N {
			return false
		}
		i++
	}
	return true
}

// Subtract returns x minus y with zero counts dropped. y must be a
// sub-multiset of x; otherwise ErrNotSubset is returned.
func Subtract(x, y Occurrence) (Occurrence, error) {
	out := make(Occurrence, 0, len(x))
	j := 0
	for _, c := range x {
		if j < len(y) && y[j].Char < c.Char {
			return nil, fmt.Errorf("subtracting %s from %s: %w", y, x, ErrNotSubset)
		}
		if j < len(y) && y[j].Char == c.Char {
			if y[j].N > c.N {
				return nil, fmt.Errorf("subtracting %s from %s: %w", y, x, ErrNotSubset)
			}
			if rest := c.N - y[j].N; rest > 0 {
				out = append(out, Count{Char: c.Char, N: rest})
			}
			j++
			continue
		}
		out = append(out, c)
	}
	if j < len(y) {
		return nil, fmt.Errorf("subtracting %s from %s: %w", y, x, ErrNotSubset)
	}
	return out, nil
}

// MustSubtract is Subtract for callers that already checked CanSubtract. It
// panics if the precondition does not hold.
func MustSubtract(x, y Occurrence) Occurrence {
	out, err := Subtract(x, y)
	if err != nil {
		panic(err)
	}
	return out
}

// Len is the total number of characters in the occurrence.
func (o Occurrence) Len() int {
	n := 0
	for _, c := range o {
		n += c.N
	}
	return n
}

func (o Occurrence) IsEmpty() bool {
	return len(o) == 0
}

func (o Occurrence) Equal(other Occurrence) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Key is the canonical string form of the occurrence: every character
// repeated by its count, in sorted order. Equal occurrences have equal keys.
func (o Occurrence) Key() string {
	var b strings.Builder
	b.Grow(o.Len())
	for _, c := range o {
		for n := 0; n < c.N; n++ {
			b.WriteRune(c.Char)
		}
	}
	return b.String()
}

func (o Occurrence) String() string {
	parts := make([]string, len(o))
	for i, c := range o {
		parts[i] = fmt.Sprintf("(%c,%d)", c.Char, c.N)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
