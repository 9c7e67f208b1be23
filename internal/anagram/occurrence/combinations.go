package occurrence

import "math"

// Combinations returns every sub-multiset of occ, including the empty
// occurrence and occ itself. For per-character counts c1..ck the result has
// exactly (c1+1)*...*(ck+1) elements: each character independently picks a
// count in 0..ci, and a zero pick contributes no entry.
func Combinations(occ Occurrence) []Occurrence {
	total := 1
	for _, c := range occ {
		total *= c.N + 1
	}
	result := make([]Occurrence, 1, total)
	result[0] = Occurrence{}
	for _, c := range occ {
		next := make([]Occurrence, 0, total)
		for _, prefix := range result {
			next = append(next, prefix)
			for n := 1; n <= c.N; n++ {
				combo := make(Occurrence, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, Count{Char: c.Char, N: n}))
			}
		}
		result = next
	}
	return result
}

// CountCombinations returns len(Combinations(occ)) without building them,
// saturating at math.MaxInt.
func CountCombinations(occ Occurrence) int {
	total := 1
	for _, c := range occ {
		if total > math.MaxInt/(c.N+1) {
			return math.MaxInt
		}
		total *= c.N + 1
	}
	return total
}
