// Package solver finds every anagram sentence of an input sentence that can
// be spelled with dictionary words.
//
// The search runs in two phases. A cover search picks multisets of candidate
// signatures whose union is exactly the sentence's occurrence, visiting
// candidates in non-decreasing order so each multiset is found once. Each
// cover is then expanded into word choices and every distinct ordering of
// those words.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/tracing"
)

// Lexicon resolves a signature to the dictionary words that spell it.
type Lexicon interface {
	Lookup(occ occurrence.Occurrence) []string
}

// Result is the outcome of one sentence search.
type Result struct {
	Sentence   []string
	Signature  occurrence.Occurrence
	Candidates int
	Covers     int
	Anagrams   [][]string
	Duration   time.Duration
}

type candidate struct {
	occ   occurrence.Occurrence
	words []string
}

type Solver struct {
	lexicon     Lexicon
	parallelism int
	logger      *slog.Logger
}

// New creates a Solver over lex. parallelism bounds how many top-level
// branches of the cover search run concurrently; values below 1 mean 1.
func New(lex Lexicon, parallelism int) *Solver {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Solver{
		lexicon:     lex,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "anagram-solver"),
	}
}

// SentenceAnagrams returns every anagram of sentence, sorted and free of
// duplicates. An empty sentence yields exactly one empty sentence; a
// sentence that cannot be covered yields an empty list.
func (s *Solver) SentenceAnagrams(ctx context.Context, sentence []string) ([][]string, error) {
	res, err := s.Solve(ctx, sentence)
	if err != nil {
		return nil, err
	}
	return res.Anagrams, nil
}

// Solve is SentenceAnagrams with search statistics.
func (s *Solver) Solve(ctx context.Context, sentence []string) (*Result, error) {
	start := time.Now()
	target := occurrence.SentenceOccurrences(sentence)
	res := &Result{
		Sentence:  sentence,
		Signature: target,
	}
	if target.IsEmpty() {
		res.Anagrams = [][]string{{}}
		res.Duration = time.Since(start)
		return res, nil
	}

	_, span := tracing.Start(ctx, "candidates")
	cands := s.candidates(target)
	res.Candidates = len(cands)
	span.SetAttr("candidates", res.Candidates)
	span.End()

	_, span = tracing.Start(ctx, "covers")
	covers, err := s.covers(ctx, cands, target)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("searching covers of %s: %w", target, err)
	}
	res.Covers = len(covers)
	span.SetAttr("covers", res.Covers)

	_, span = tracing.Start(ctx, "expand")
	anagrams, err := expandAll(ctx, cands, covers)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("expanding covers of %s: %w", target, err)
	}
	res.Anagrams = anagrams
	span.SetAttr("anagrams", len(anagrams))
	res.Duration = time.Since(start)

	s.logger.Debug("sentence solved",
		"signature", target.Key(),
		"candidates", res.Candidates,
		"covers", res.Covers,
		"anagrams", len(res.Anagrams),
		"duration", res.Duration,
	)
	return res, nil
}

// candidates returns every non-empty sub-multiset of target that spells at
// least one dictionary word.
func (s *Solver) candidates(target occurrence.Occurrence) []candidate {
	var cands []candidate
	for _, combo := range occurrence.Combinations(target) {
		if combo.IsEmpty() {
			continue
		}
		if words := s.lexicon.Lookup(combo); len(words) > 0 {
			cands = append(cands, candidate{occ: combo, words: words})
		}
	}
	return cands
}

// covers fans the first pick of the cover search out over an errgroup and
// concatenates branch results in candidate order.
func (s *Solver) covers(ctx context.Context, cands []candidate, target occurrence.Occurrence) ([][]int, error) {
	branches := make([][][]int, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range cands {
		if !occurrence.CanSubtract(target, cands[i].occ) {
			continue
		}
		g.Go(func() error {
			rest := occurrence.MustSubtract(target, cands[i].occ)
			return cover(gctx, cands, rest, i, []int{i}, func(picked []int) {
				branches[i] = append(branches[i], slices.Clone(picked))
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all [][]int
	for _, b := range branches {
		all = append(all, b...)
	}
	return all, nil
}

// cover extends picked with candidates at index >= from until remaining is
// exhausted. Every step removes at least one character, so recursion depth
// is bounded by the sentence length.
func cover(ctx context.Context, cands []candidate, remaining occurrence.Occurrence, from int, picked []int, emit func([]int)) error {
	if remaining.IsEmpty() {
		emit(picked)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := from; i < len(cands); i++ {
		if !occurrence.CanSubtract(remaining, cands[i].occ) {
			continue
		}
		rest := occurrence.MustSubtract(remaining, cands[i].occ)
		if err := cover(ctx, cands, rest, i, append(picked, i), emit); err != nil {
			return err
		}
	}
	return nil
}

// expandAll turns covers into sentences, dropping any repeats, and sorts
// them.
func expandAll(ctx context.Context, cands []candidate, covers [][]int) ([][]string, error) {
	seen := make(map[string]struct{})
	out := make([][]string, 0)
	for _, c := range covers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expand(cands, c, func(sentence []string) {
			key := strings.Join(sentence, "\x00")
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			out = append(out, slices.Clone(sentence))
		})
	}
	slices.SortFunc(out, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return out, nil
}

// expand picks one word per slot of the cover and emits every distinct
// permutation of the chosen words. Slots holding the same candidate pick
// words in non-decreasing order so each word multiset is produced once.
func expand(cands []candidate, cov []int, emit func([]string)) {
	chosen := make([]string, len(cov))
	var choose func(slot, minWord int)
	choose = func(slot, minWord int) {
		if slot == len(cov) {
			permutations(chosen, emit)
			return
		}
		words := cands[cov[slot]].words
		for w := minWord; w < len(words); w++ {
			chosen[slot] = words[w]
			next := 0
			if slot+1 < len(cov) && cov[slot+1] == cov[slot] {
				next = w
			}
			choose(slot+1, next)
		}
	}
	choose(0, 0)
}

// permutations emits each distinct ordering of words exactly once, in
// lexicographic order.
func permutations(words []string, emit func([]string)) {
	perm := slices.Clone(words)
	slices.Sort(perm)
	for {
		emit(perm)
		if !nextPermutation(perm) {
			return
		}
	}
}

// nextPermutation rearranges p into the next lexicographically greater
// permutation and reports whether one existed.
func nextPermutation(p []string) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	slices.Reverse(p[i+1:])
	return true
}
