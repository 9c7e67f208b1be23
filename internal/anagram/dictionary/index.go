// Package dictionary loads word lists and indexes them by occurrence
// signature.
package dictionary

import (
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
)

// Index maps each occurrence signature to the dictionary words sharing it,
// in dictionary order. It is built once and never mutated, so it is safe for
// concurrent readers without locking.
type Index struct {
	bySignature map[string][]string
	wordCount   int
}

// SignatureEntry is one row of an index snapshot.
type SignatureEntry struct {
	Signature string
	Words     []string
}

// NewIndex groups words by their occurrence signature. Exact duplicate
// words are kept once; words differing only in case are both kept.
func NewIndex(words []string) *Index {
	idx := &Index{
		bySignature: make(map[string][]string),
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		key := occurrence.WordOccurrences(w).Key()
		idx.bySignature[key] = append(idx.bySignature[key], w)
		idx.wordCount++
	}
	return idx
}

// Lookup returns the words whose signature equals occ, or nil.
func (i *Index) Lookup(occ occurrence.Occurrence) []string {
	words, ok := i.bySignature[occ.Key()]
	if !ok {
		return nil
	}
	return slices.Clone(words)
}

// WordAnagrams returns every dictionary word that is an anagram of word,
// including word itself when it is in the dictionary. The result is empty,
// never nil, when nothing matches.
func (i *Index) WordAnagrams(word string) []string {
	words := i.Lookup(occurrence.WordOccurrences(word))
	if words == nil {
		return []string{}
	}
	return words
}

// Len is the number of distinct words indexed.
func (i *Index) Len() int {
	return i.wordCount
}

// Signatures is the number of distinct signatures indexed.
func (i *Index) Signatures() int {
	return len(i.bySignature)
}

// Snapshot returns all entries sorted by signature.
func (i *Index) Snapshot() []SignatureEntry {
	entries := make([]SignatureEntry, 0, len(i.bySignature))
	for sig, words := range i.bySignature {
		entries = append(entries, SignatureEntry{
			Signature: sig,
			Words:     slices.Clone(words),
		})
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Signature < entries[b].Signature
	})
	return entries
}
