package occurrence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinationsEmpty(t *testing.T) {
	combos := Combinations(Occurrence{})
	require.Len(t, combos, 1)
	assert.True(t, combos[0].IsEmpty())
}

func TestCombinationsAB(t *testing.T) {
	combos := Combinations(WordOccurrences("ab"))
	assert.Equal(t, []string{"", "a", "ab", "b"}, keys(combos))
}

func TestCombinationsAbba(t *testing.T) {
	abba := occ('a', 2, 'b', 2)
	want := []Occurrence{
		{},
		occ('a', 1),
		occ('a', 2),
		occ('b', 1),
		occ('a', 1, 'b', 1),
		occ('a', 2, 'b', 1),
		occ('b', 2),
		occ('a', 1, 'b', 2),
		occ('a', 2, 'b', 2),
	}
	assert.Equal(t, keys(want), keys(Combinations(abba)))
}

func TestCombinationsCountAndDistinct(t *testing.T) {
	for _, w := range []string{"a", "aaa", "abc", "mississippi", "hello world"} {
		t.Run(w, func(t *testing.T) {
			o := WordOccurrences(w)
			want := 1
			for _, c := range o {
				want *= c.N + 1
			}

			combos := Combinations(o)
			require.Len(t, combos, want)
			assert.Equal(t, want, CountCombinations(o))

			seen := make(map[string]struct{}, len(combos))
			for _, c := range combos {
				assertCanonical(t, c)
				_, dup := seen[c.Key()]
				assert.False(t, dup, "duplicate combination %s", c)
				seen[c.Key()] = struct{}{}
			}
			assert.Contains(t, seen, "")
			assert.Contains(t, seen, o.Key())
		})
	}
}

func TestCombinationsSubtractRoundTrip(t *testing.T) {
	x := WordOccurrences("assessment")
	for _, y := range Combinations(x) {
		require.True(t, CanSubtract(x, y), "%s should be contained in %s", y, x)
		rest, err := Subtract(x, y)
		require.NoError(t, err)
		assertCanonical(t, rest)
		assert.True(t, Add(rest, y).Equal(x), "%s + %s != %s", rest, y, x)
	}
}

func TestCountCombinationsSaturates(t *testing.T) {
	huge := make(Occurrence, 0, 64)
	for i := range 64 {
		huge = append(huge, Count{Char: rune('\u0100' + i), N: 9})
	}
	assert.Equal(t, math.MaxInt, CountCombinations(huge))
	assert.Equal(t, 1, CountCombinations(nil))
}
