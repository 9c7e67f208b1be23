package solver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/tracing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func solve(t *testing.T, words []string, sentence ...string) [][]string {
	t.Helper()
	s := New(dictionary.NewIndex(words), 4)
	got, err := s.SentenceAnagrams(context.Background(), sentence)
	require.NoError(t, err)
	return got
}

func TestEmptySentence(t *testing.T) {
	got := solve(t, []string{"a"})
	assert.Equal(t, [][]string{{}}, got)
}

func TestUnmatchableSentence(t *testing.T) {
	got := solve(t, []string{"eat", "tea", "tan"}, "xyz")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSingleSignature(t *testing.T) {
	got := solve(t, []string{"eat", "tea", "ate", "tan"}, "Eta")
	assert.Equal(t, [][]string{{"ate"}, {"eat"}, {"tea"}}, got)
}

func TestSplitsAndOrders(t *testing.T) {
	got := solve(t, []string{"ab", "ba", "a", "b"}, "ab")
	assert.Equal(t, [][]string{{"a", "b"}, {"ab"}, {"b", "a"}, {"ba"}}, got)
}

func TestRepeatedWords(t *testing.T) {
	got := solve(t, []string{"a", "aa"}, "aaa")
	assert.Equal(t, [][]string{{"a", "a", "a"}, {"a", "aa"}, {"aa", "a"}}, got)
}

func TestRepeatedSignatureWithSeveralWords(t *testing.T) {
	got := solve(t, []string{"ab", "ba"}, "ab", "ba")
	assert.Equal(t, [][]string{
		{"ab", "ab"},
		{"ab", "ba"},
		{"ba", "ab"},
		{"ba", "ba"},
	}, got)
}

func TestCasePreservedInOutput(t *testing.T) {
	got := solve(t, []string{"Tea", "ate"}, "EAT")
	assert.Equal(t, [][]string{{"Tea"}, {"ate"}}, got)
}

var yesManDictionary = []string{
	"yes", "man", "en", "as", "my", "men", "say", "sane", "Sean", "nay",
	"any", "may", "yea", "me", "an", "ye", "mean", "name", "same", "seam",
	"my", "sa", "a", "nasty",
}

func TestMatchesBruteForce(t *testing.T) {
	for _, sentence := range [][]string{{"yes", "man"}, {"any", "me"}, {"a", "man"}} {
		t.Run(strings.Join(sentence, "_"), func(t *testing.T) {
			got := solve(t, yesManDictionary, sentence...)
			want := bruteForce(yesManDictionary, occurrence.SentenceOccurrences(sentence))
			assert.ElementsMatch(t, want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestRoundTripAndNoDuplicates(t *testing.T) {
	sentence := []string{"yes", "man"}
	target := occurrence.SentenceOccurrences(sentence)
	got := solve(t, yesManDictionary, sentence...)

	seen := make(map[string]struct{}, len(got))
	for _, a := range got {
		assert.True(t, occurrence.SentenceOccurrences(a).Equal(target), "%v does not spell %v", a, sentence)
		key := strings.Join(a, " ")
		_, dup := seen[key]
		assert.False(t, dup, "duplicate anagram %q", key)
		seen[key] = struct{}{}
	}
	assert.Contains(t, got, []string{"yes", "man"})
	assert.Contains(t, got, []string{"man", "yes"})
	assert.Contains(t, got, []string{"my", "Sean"})
}

func TestParallelismDoesNotChangeResult(t *testing.T) {
	idx := dictionary.NewIndex(yesManDictionary)
	serial, err := New(idx, 1).SentenceAnagrams(context.Background(), []string{"yes", "man"})
	require.NoError(t, err)
	parallel, err := New(idx, 16).SentenceAnagrams(context.Background(), []string{"yes", "man"})
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestSolveStats(t *testing.T) {
	res, err := New(dictionary.NewIndex([]string{"a", "aa"}), 0).Solve(context.Background(), []string{"aaa"})
	require.NoError(t, err)
	assert.Equal(t, "aaa", res.Signature.Key())
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Covers)
	assert.Len(t, res.Anagrams, 3)
}

func TestSolveRecordsPhaseSpans(t *testing.T) {
	ctx, root := tracing.Start(context.Background(), "sentence")
	_, err := New(dictionary.NewIndex([]string{"a", "aa"}), 2).Solve(ctx, []string{"aaa"})
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 3)
	assert.Equal(t, "candidates", children[0].Name)
	assert.Equal(t, "covers", children[1].Name)
	assert.Equal(t, "expand", children[2].Name)
	n, ok := children[2].Attr("anagrams")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(dictionary.NewIndex(yesManDictionary), 2).SentenceAnagrams(ctx, []string{"yes", "man"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNextPermutationDistinct(t *testing.T) {
	var got []string
	permutations([]string{"b", "a", "a"}, func(p []string) {
		got = append(got, strings.Join(p, ""))
	})
	assert.Equal(t, []string{"aab", "aba", "baa"}, got)
}

// bruteForce enumerates ordered word sequences directly, without the cover
// and permutation phases.
func bruteForce(words []string, target occurrence.Occurrence) [][]string {
	distinct := dictionary.NewIndex(words).Snapshot()
	var all []string
	for _, e := range distinct {
		all = append(all, e.Words...)
	}

	var out [][]string
	var walk func(remaining occurrence.Occurrence, prefix []string)
	walk = func(remaining occurrence.Occurrence, prefix []string) {
		if remaining.IsEmpty() {
			out = append(out, append([]string{}, prefix...))
			return
		}
		for _, w := range all {
			wo := occurrence.WordOccurrences(w)
			if !occurrence.CanSubtract(remaining, wo) {
				continue
			}
			walk(occurrence.MustSubtract(remaining, wo), append(prefix, w))
		}
	}
	walk(target, nil)
	return out
}
