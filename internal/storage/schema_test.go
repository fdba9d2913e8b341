package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, testSchema("docs").Validate())

	tests := map[string]func(*Schema){
		"no name":        func(s *Schema) { s.Name = "" },
		"duplicate":      func(s *Schema) { s.Fields = append(s.Fields, Field{Name: "title", Type: TypeString}) },
		"no key":         func(s *Schema) { s.Fields[0].Key = false },
		"zero dims":      func(s *Schema) { s.Vector.Dimensions = 0 },
		"vector missing": func(s *Schema) { s.Vector.Field = "vec" },
		"bad metric":     func(s *Schema) { s.Vector.Metric = "dot" },
		"bad hnsw":       func(s *Schema) { s.Vector.HNSW.EfSearch = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := testSchema("docs")
			s.Fields = append([]Field(nil), s.Fields...)
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSchema)
		})
	}
}

func TestSchemaHelpers(t *testing.T) {
	s := testSchema("docs")

	assert.Equal(t, "id", s.Key())
	assert.Equal(t, []string{"title", "paragraph", "keyphrases"}, s.SearchableFields())

	var indexed []string
	for _, f := range s.IndexedFields() {
		indexed = append(indexed, f.Name)
	}
	assert.Equal(t, []string{"id", "filename", "ParagraphId"}, indexed)

	f, ok := s.Field("ParagraphId")
	assert.True(t, ok)
	assert.Equal(t, TypeInt32, f.Type)
}

func TestDocumentAccessors(t *testing.T) {
	d := Document{
		"title":       "T",
		"ParagraphId": int64(3),
		"isCompliant": false,
		"tags":        []any{"a", "b"},
		"embedding":   []float64{0.5, 1},
	}

	assert.Equal(t, "T", d.String("title"))
	assert.Equal(t, 3, d.Int("ParagraphId"))
	v, ok := d.Bool("isCompliant")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = d.Bool("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, d.Strings("tags"))
	assert.Equal(t, []string{}, d.Strings("missing"))
	assert.Equal(t, []float32{0.5, 1}, d.Vector("embedding"))
}
