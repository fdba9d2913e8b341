package storage

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/lexical"
)

// rrfK is the rank constant of reciprocal-rank fusion.
const rrfK = 60

// MemoryStorage is an in-process Index using brute-force cosine similarity
// and term-frequency scoring. It backs tests and single-machine runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex
}

type memoryIndex struct {
	schema Schema
	docs   map[string]Document
}

// NewMemoryStorage returns an empty in-memory index service.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{indexes: make(map[string]*memoryIndex)}
}

// Health always succeeds.
func (s *MemoryStorage) Health(ctx context.Context) error { return nil }

// EnsureIndex creates the index once; later calls leave it untouched.
func (s *MemoryStorage) EnsureIndex(ctx context.Context, schema Schema) (EnsureResult, error) {
	if err := schema.Validate(); err != nil {
		return IndexExists, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[schema.Name]; ok {
		return IndexExists, nil
	}
	s.indexes[schema.Name] = &memoryIndex{schema: schema, docs: make(map[string]Document)}
	return IndexCreated, nil
}

// Schema returns the schema an index was created with.
func (s *MemoryStorage) Schema(index string) (Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[index]
	if !ok {
		return Schema{}, false
	}
	return idx.schema, true
}

// Upload replaces documents by key. Invalid records fail individually.
func (s *MemoryStorage) Upload(ctx context.Context, index string, docs []Document) ([]UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	results := make([]UploadResult, len(docs))
	for i, doc := range docs {
		key, err := validateDocument(idx.schema, doc)
		if err != nil {
			results[i] = UploadResult{Key: key, StatusCode: http.StatusBadRequest, Err: err}
			continue
		}
		stored := make(Document, len(doc))
		for k, v := range doc {
			stored[k] = v
		}
		idx.docs[key] = stored
		results[i] = UploadResult{Key: key, Succeeded: true, StatusCode: http.StatusOK}
	}
	return results, nil
}

// Count returns the number of documents matching f.
func (s *MemoryStorage) Count(ctx context.Context, index string, f filter.Expr) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[index]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	var n int64
	for _, doc := range idx.docs {
		if filter.Matches(f, doc) {
			n++
		}
	}
	return n, nil
}

// Search ranks filtered documents by vector similarity, lexical score, or
// their reciprocal-rank fusion when both legs are present.
func (s *MemoryStorage) Search(ctx context.Context, index string, req SearchRequest) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	candidates := make([]Document, 0, len(idx.docs))
	for _, doc := range idx.docs {
		if filter.Matches(req.Filter, doc) {
			candidates = append(candidates, doc)
		}
	}
	keyField := idx.schema.Key()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].String(keyField) < candidates[j].String(keyField)
	})

	var vectorRank, textRank []Hit
	if req.Vector != nil {
		if len(req.Vector.Vector) != idx.schema.Vector.Dimensions {
			return nil, fmt.Errorf("query vector %w", dimensionError(len(req.Vector.Vector), idx.schema.Vector.Dimensions))
		}
		vectorRank = rankByVector(candidates, idx.schema.Vector.Field, req.Vector)
	}
	if req.HasText() {
		textRank = rankByText(candidates, idx.schema.SearchableFields(), req.Text)
	}

	var hits []Hit
	switch {
	case req.Vector != nil && req.HasText():
		hits = fuse(keyField, vectorRank, textRank)
	case req.Vector != nil:
		hits = vectorRank
	case req.HasText():
		hits = textRank
	default:
		hits = make([]Hit, len(candidates))
		for i, doc := range candidates {
			hits[i] = Hit{Document: doc, Score: 1}
		}
	}

	orderHits(hits, req.OrderBy)

	top := req.Top
	if top <= 0 && req.Vector != nil {
		top = req.Vector.K
	}
	if top > 0 && len(hits) > top {
		hits = hits[:top]
	}
	for i := range hits {
		hits[i].Document = hits[i].Document.Project(req.Select, idx.schema.Vector.Field)
	}
	return hits, nil
}

func rankByVector(docs []Document, field string, q *VectorQuery) []Hit {
	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		v := doc.Vector(field)
		if len(v) == 0 {
			continue
		}
		hits = append(hits, Hit{Document: doc, Score: cosine(v, q.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if q.K > 0 && len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits
}

// rankByText scores documents with smoothed TF-IDF over the searchable fields.
func rankByText(docs []Document, fields []string, text string) []Hit {
	terms := lexical.Tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	freqs := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		freqs[i] = lexical.Frequencies(searchableText(doc, fields))
		for term := range freqs[i] {
			df[term]++
		}
	}
	n := float64(len(docs))
	var hits []Hit
	for i, doc := range docs {
		score := 0.0
		for _, term := range terms {
			if tf := freqs[i][term]; tf > 0 {
				score += float64(tf) * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			}
		}
		if score > 0 {
			hits = append(hits, Hit{Document: doc, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

func searchableText(doc Document, fields []string) string {
	var b strings.Builder
	for _, f := range fields {
		switch v := doc[f].(type) {
		case string:
			b.WriteString(v)
		default:
			b.WriteString(strings.Join(doc.Strings(f), " "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// fuse merges ranked lists with reciprocal-rank fusion.
func fuse(keyField string, lists ...[]Hit) []Hit {
	scores := make(map[string]float64)
	docs := make(map[string]Document)
	var order []string
	for _, list := range lists {
		for rank, h := range list {
			key := h.Document.String(keyField)
			if _, seen := docs[key]; !seen {
				docs[key] = h.Document
				order = append(order, key)
			}
			scores[key] += 1 / float64(rrfK+rank+1)
		}
	}
	hits := make([]Hit, len(order))
	for i, key := range order {
		hits[i] = Hit{Document: docs[key], Score: scores[key]}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
