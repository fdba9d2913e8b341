package storage

import (
	"fmt"
)

// FieldType names the data type of an index field.
type FieldType string

const (
	TypeString           FieldType = "Edm.String"
	TypeInt32            FieldType = "Edm.Int32"
	TypeBoolean          FieldType = "Edm.Boolean"
	TypeDateTimeOffset   FieldType = "Edm.DateTimeOffset"
	TypeStringCollection FieldType = "Collection(Edm.String)"
	TypeVector           FieldType = "Collection(Edm.Single)"
)

// Field declares one field of an index.
type Field struct {
	Name       string
	Type       FieldType
	Key        bool
	Searchable bool
	Filterable bool
	Sortable   bool
	Facetable  bool
}

// Metric is the vector similarity function.
type Metric string

const MetricCosine Metric = "cosine"

// HNSW holds the graph parameters of an approximate nearest-neighbour index.
// EfSearch applies at query time.
type HNSW struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// VectorConfig describes the vector field of an index.
type VectorConfig struct {
	Field      string
	Dimensions int
	Metric     Metric
	HNSW       HNSW
}

// Schema is the declaration of one index.
type Schema struct {
	Name   string
	Fields []Field
	Vector VectorConfig
}

// EnsureResult reports what EnsureIndex did.
type EnsureResult int

const (
	IndexExists EnsureResult = iota
	IndexCreated
)

func (r EnsureResult) String() string {
	if r == IndexCreated {
		return "created"
	}
	return "exists"
}

// Validate checks the schema is internally consistent.
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(s.Fields))
	keys := 0
	vectorDeclared := false
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s: field without name", ErrInvalidSchema, s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Key {
			if f.Type != TypeString {
				return fmt.Errorf("%w: %s: key field %q must be a string", ErrInvalidSchema, s.Name, f.Name)
			}
			keys++
		}
		if f.Type == TypeVector {
			if f.Name != s.Vector.Field {
				return fmt.Errorf("%w: %s: vector field %q has no vector configuration", ErrInvalidSchema, s.Name, f.Name)
			}
			vectorDeclared = true
		}
	}
	if keys != 1 {
		return fmt.Errorf("%w: %s: exactly one key field required, got %d", ErrInvalidSchema, s.Name, keys)
	}
	if !vectorDeclared {
		return fmt.Errorf("%w: %s: vector field %q is not declared", ErrInvalidSchema, s.Name, s.Vector.Field)
	}
	if s.Vector.Dimensions <= 0 {
		return fmt.Errorf("%w: %s: vector dimensions must be positive", ErrInvalidSchema, s.Name)
	}
	if s.Vector.Metric != MetricCosine {
		return fmt.Errorf("%w: %s: unsupported metric %q", ErrInvalidSchema, s.Name, s.Vector.Metric)
	}
	if s.Vector.HNSW.M <= 0 || s.Vector.HNSW.EfConstruction <= 0 || s.Vector.HNSW.EfSearch <= 0 {
		return fmt.Errorf("%w: %s: hnsw parameters must be positive", ErrInvalidSchema, s.Name)
	}
	return nil
}

// Key returns the name of the key field.
func (s Schema) Key() string {
	for _, f := range s.Fields {
		if f.Key {
			return f.Name
		}
	}
	return ""
}

// Field looks up a field declaration by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SearchableFields returns the text fields that feed lexical matching.
func (s Schema) SearchableFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Searchable && (f.Type == TypeString || f.Type == TypeStringCollection) {
			out = append(out, f.Name)
		}
	}
	return out
}

// IndexedFields returns the fields that need a payload index for filtering or sorting.
func (s Schema) IndexedFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Type == TypeVector {
			continue
		}
		if f.Filterable || f.Sortable || f.Facetable {
			out = append(out, f)
		}
	}
	return out
}
