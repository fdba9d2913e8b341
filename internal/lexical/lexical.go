// Package lexical turns text into terms and sparse term-frequency vectors for
// the keyword leg of hybrid search.
package lexical

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// English and German function words; legal text in both languages is indexed.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "should", "now", "any", "all", "not", "no", "which",
		"der", "die", "das", "den", "dem", "des", "ein", "eine", "einer", "eines", "einem", "einen", "und",
		"oder", "aber", "wenn", "dann", "für", "zu", "von", "vom", "zum", "zur", "im", "am", "an", "auf",
		"mit", "als", "ist", "sind", "war", "waren", "sein", "wird", "werden", "wurde", "es", "dies", "diese",
		"dieser", "dieses", "aus", "bei", "nach", "vor", "über", "unter", "durch", "nicht", "kein", "keine",
		"auch", "nur", "so", "sich", "dass", "daß", "wie", "hat", "haben",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokenize lowercases text and returns its terms in order, without stopwords
// and single-character tokens.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if len([]rune(t)) < 2 {
			continue
		}
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SparseVector holds term weights keyed by hashed term index, sorted by index.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Empty reports whether the vector has no terms.
func (v SparseVector) Empty() bool { return len(v.Indices) == 0 }

// TermIndex maps a term to its sparse dimension.
func TermIndex(term string) uint32 {
	return uint32(xxhash.Sum64String(term))
}

// Vectorize returns raw term counts for text. Inverse document frequency is
// left to the search service.
func Vectorize(text string) SparseVector {
	counts := make(map[uint32]float32)
	for _, t := range Tokenize(text) {
		counts[TermIndex(t)]++
	}
	v := SparseVector{
		Indices: make([]uint32, 0, len(counts)),
		Values:  make([]float32, 0, len(counts)),
	}
	for idx := range counts {
		v.Indices = append(v.Indices, idx)
	}
	sort.Slice(v.Indices, func(i, j int) bool { return v.Indices[i] < v.Indices[j] })
	for _, idx := range v.Indices {
		v.Values = append(v.Values, counts[idx])
	}
	return v
}

// Frequencies returns term counts for text, keyed by term.
func Frequencies(text string) map[string]int {
	tf := make(map[string]int)
	for _, t := range Tokenize(text) {
		tf[t]++
	}
	return tf
}
