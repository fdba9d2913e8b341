package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
)

// Document is one index record: field name to value. Collections are
// []string, the vector is []float32, integers are int or int64.
type Document map[string]any

// String returns a string field, or "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int returns an integer field, or 0.
func (d Document) Int(field string) int {
	switch v := d[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns a boolean field and whether it was present.
func (d Document) Bool(field string) (value, ok bool) {
	value, ok = d[field].(bool)
	return value, ok
}

// Strings returns a string collection field. Missing fields yield an empty, non-nil slice.
func (d Document) Strings(field string) []string {
	switch v := d[field].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// Vector returns a vector field converted to float32.
func (d Document) Vector(field string) []float32 {
	switch v := d[field].(type) {
	case []float32:
		return v
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out
	}
	return nil
}

// Time parses a date field stored as RFC 3339 text.
func (d Document) Time(field string) time.Time {
	switch v := d[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Project returns a copy holding only the selected fields. An empty selection
// keeps every field except the vector.
func (d Document) Project(selectFields []string, vectorField string) Document {
	out := make(Document, len(d))
	if len(selectFields) == 0 {
		for k, v := range d {
			if k != vectorField {
				out[k] = v
			}
		}
		return out
	}
	for _, f := range selectFields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}

// VectorQuery is the nearest-neighbour part of a search.
type VectorQuery struct {
	Vector []float32
	// K is the number of nearest neighbours to retrieve.
	K     int
	Field string
	// Exhaustive forces an exact scan instead of the HNSW graph.
	Exhaustive bool
}

// SearchRequest is a hybrid query. Text "" or "*" disables the lexical leg.
// Top 0 caps vector queries at K and leaves filter-only queries unbounded.
type SearchRequest struct {
	Text    string
	Filter  filter.Expr
	Vector  *VectorQuery
	Select  []string
	Top     int
	OrderBy string
}

// HasText reports whether the request carries lexical query text.
func (r SearchRequest) HasText() bool {
	t := strings.TrimSpace(r.Text)
	return t != "" && t != "*"
}

// Hit is one ranked search result.
type Hit struct {
	Document Document
	Score    float64
}

// UploadResult is the outcome for a single record of a batch upload.
type UploadResult struct {
	Key        string
	Succeeded  bool
	StatusCode int
	Err        error
}

// Failed returns the unsuccessful entries of results.
func Failed(results []UploadResult) []UploadResult {
	var out []UploadResult
	for _, r := range results {
		if !r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}

// Index is a vector-capable search service holding named indexes.
type Index interface {
	// EnsureIndex creates the index if it is missing. An existing index is never altered.
	EnsureIndex(ctx context.Context, schema Schema) (EnsureResult, error)
	// Upload upserts documents by key and reports per-record status.
	Upload(ctx context.Context, index string, docs []Document) ([]UploadResult, error)
	Search(ctx context.Context, index string, req SearchRequest) ([]Hit, error)
	Count(ctx context.Context, index string, f filter.Expr) (int64, error)
}

// orderHits sorts hits by "field" or "field desc"; an empty orderBy keeps score order.
func orderHits(hits []Hit, orderBy string) {
	parts := strings.Fields(orderBy)
	if len(parts) == 0 {
		return
	}
	field := parts[0]
	desc := len(parts) > 1 && strings.EqualFold(parts[1], "desc")
	sort.SliceStable(hits, func(i, j int) bool {
		less := compareValues(hits[i].Document[field], hits[j].Document[field])
		if desc {
			return less > 0
		}
		return less < 0
	})
}

func compareValues(a, b any) int {
	an, aNum := number(a)
	bn, bNum := number(b)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// validateDocument checks key and vector length before a record is sent.
func validateDocument(schema Schema, doc Document) (string, error) {
	key := doc.String(schema.Key())
	if key == "" {
		return "", ErrMissingKey
	}
	if n := len(doc.Vector(schema.Vector.Field)); n != schema.Vector.Dimensions {
		return key, dimensionError(n, schema.Vector.Dimensions)
	}
	return key, nil
}
