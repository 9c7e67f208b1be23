package occurrence

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
)

func occ(pairs ...any) Occurrence {
	out := Occurrence{}
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Count{Char: pairs[i].(rune), N: pairs[i+1].(int)})
	}
	return out
}

func keys(occs []Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Key()
	}
	sort.Strings(out)
	return out
}

func assertCanonical(t *testing.T, o Occurrence) {
	t.Helper()
	for i, c := range o {
		assert.Positive(t, c.N, "zero count in %s", o)
		if i > 0 {
			assert.Less(t, o[i-1].Char, c.Char, "unsorted or repeated char in %s", o)
		}
	}
}

func TestWordOccurrences(t *testing.T) {
	assert.Equal(t, occ('b', 1, 'e', 1, 'o', 1, 'r', 2, 't', 1), WordOccurrences("Robert"))
	assert.Equal(t, occ('a', 2, 'b', 1, 'c', 1), WordOccurrences("abcA"))
	assert.True(t, WordOccurrences("").IsEmpty())
}

func TestWordOccurrencesAnagramsShareSignature(t *testing.T) {
	eat := WordOccurrences("eat")
	assert.True(t, eat.Equal(WordOccurrences("tea")))
	assert.True(t, eat.Equal(WordOccurrences("ATE")))
	assert.False(t, eat.Equal(WordOccurrences("tan")))
}

func TestWordOccurrencesCountsNonLetters(t *testing.T) {
	// Apostrophes and digits are part of the signature, so "it's" and "tits"
	// are not anagrams while "it's" and "'tis" are.
	o := WordOccurrences("it's")
	assert.Equal(t, occ('\'', 1, 'i', 1, 's', 1, 't', 1), o)
	assert.True(t, o.Equal(WordOccurrences("'tis")))
	assert.False(t, o.Equal(WordOccurrences("tits")))
	assert.Equal(t, occ('2', 1, 'b', 1), WordOccurrences("B2"))
}

func TestWordOccurrencesCanonical(t *testing.T) {
	for _, w := range []string{"Mississippi", "Hello, World!", "zyxwvutsrqponmlkjihgfedcba", "aaaa"} {
		assertCanonical(t, WordOccurrences(w))
	}
}

func TestSentenceOccurrences(t *testing.T) {
	s := SentenceOccurrences([]string{"abcd", "e"})
	assert.Equal(t, occ('a', 1, 'b', 1, 'c', 1, 'd', 1, 'e', 1), s)

	s = SentenceOccurrences([]string{"Yes", "man"})
	assert.True(t, s.Equal(WordOccurrences("yesman")))
	assert.True(t, SentenceOccurrences(nil).IsEmpty())
}

func TestAdd(t *testing.T) {
	got := Add(occ('a', 1, 'c', 2), occ('b', 1, 'c', 1, 'z', 3))
	assert.Equal(t, occ('a', 1, 'b', 1, 'c', 3, 'z', 3), got)
	assert.Equal(t, occ('a', 1), Add(Occurrence{}, occ('a', 1)))
}

func TestCanSubtract(t *testing.T) {
	lard := occ('a', 1, 'd', 1, 'l', 1, 'r', 1)
	assert.True(t, CanSubtract(lard, occ('r', 1)))
	assert.True(t, CanSubtract(lard, lard))
	assert.True(t, CanSubtract(lard, Occurrence{}))
	assert.False(t, CanSubtract(lard, occ('r', 2)))
	assert.False(t, CanSubtract(lard, occ('b', 1)))
	assert.False(t, CanSubtract(lard, occ('z', 1)))
	assert.False(t, CanSubtract(Occurrence{}, occ('a', 1)))
}

func TestSubtract(t *testing.T) {
	lard := occ('a', 1, 'd', 1, 'l', 1, 'r', 1)
	got, err := Subtract(lard, occ('r', 1))
	require.NoError(t, err)
	assert.Equal(t, occ('a', 1, 'd', 1, 'l', 1), got)

	got, err = Subtract(occ('a', 3, 'b', 1), occ('a', 2))
	require.NoError(t, err)
	assert.Equal(t, occ('a', 1, 'b', 1), got)

	got, err = Subtract(lard, lard)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestSubtractPrecondition(t *testing.T) {
	cases := []struct {
		name string
		x, y Occurrence
	}{
		{"count too large", occ('a', 1), occ('a', 2)},
		{"missing char in middle", occ('a', 1, 'c', 1), occ('b', 1)},
		{"missing char at end", occ('a', 1), occ('a', 1, 'z', 1)},
		{"from empty", Occurrence{}, occ('a', 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Subtract(tc.x, tc.y)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotSubset)
			assert.ErrorIs(t, err, apperrors.ErrPrecondition)
			assert.Panics(t, func() { MustSubtract(tc.x, tc.y) })
		})
	}
}

func TestKeyAndString(t *testing.T) {
	o := WordOccurrences("Banana")
	assert.Equal(t, "aaabnn", o.Key())
	assert.Equal(t, "[(a,3),(b,1),(n,2)]", o.String())
	assert.Equal(t, 6, o.Len())
	assert.Equal(t, WordOccurrences("nabana").Key(), o.Key())
}
