package legal

import (
	"time"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

// DocumentSchema declares the Document index.
func DocumentSchema(name string) storage.Schema {
	return storage.Schema{
		Name: name,
		Fields: []storage.Field{
			{Name: FieldID, Type: storage.TypeString, Key: true, Sortable: true},
			{Name: FieldTitle, Type: storage.TypeString, Searchable: true},
			{Name: FieldParagraph, Type: storage.TypeString, Searchable: true},
			{Name: FieldParagraphID, Type: storage.TypeInt32, Filterable: true, Sortable: true},
			{Name: FieldKeyphrases, Type: storage.TypeStringCollection, Searchable: true},
			{Name: FieldSummary, Type: storage.TypeString, Searchable: true},
			{Name: FieldEmbedding, Type: storage.TypeVector, Searchable: true},
			{Name: FieldFilename, Type: storage.TypeString, Filterable: true},
			{Name: FieldDepartment, Type: storage.TypeString, Filterable: true},
			{Name: FieldDate, Type: storage.TypeDateTimeOffset, Filterable: true},
			{Name: FieldGroup, Type: storage.TypeStringCollection, Filterable: true},
			{Name: FieldIsCompliant, Type: storage.TypeBoolean, Filterable: true},
			{Name: FieldCompliant, Type: storage.TypeStringCollection},
			{Name: FieldNonCompliant, Type: storage.TypeStringCollection},
		},
		Vector: storage.VectorConfig{
			Field:      FieldEmbedding,
			Dimensions: EmbeddingDimensions,
			Metric:     storage.MetricCosine,
			HNSW:       storage.HNSW{M: 4, EfConstruction: 250, EfSearch: 100},
		},
	}
}

// PolicySchema declares the Policy index.
func PolicySchema(name string) storage.Schema {
	return storage.Schema{
		Name: name,
		Fields: []storage.Field{
			{Name: FieldID, Type: storage.TypeString, Key: true, Sortable: true},
			{Name: FieldPolicyID, Type: storage.TypeString, Filterable: true},
			{Name: FieldTitle, Type: storage.TypeString, Searchable: true, Filterable: true},
			{Name: FieldInstruction, Type: storage.TypeString, Searchable: true},
			{Name: FieldEmbedding, Type: storage.TypeVector, Searchable: true},
			{Name: FieldTags, Type: storage.TypeStringCollection, Filterable: true, Facetable: true},
			{Name: FieldLocked, Type: storage.TypeBoolean, Filterable: true},
			{Name: FieldGroups, Type: storage.TypeStringCollection, Filterable: true},
			{Name: FieldSeverity, Type: storage.TypeInt32, Filterable: true},
			{Name: FieldLanguage, Type: storage.TypeString, Filterable: true},
		},
		Vector: storage.VectorConfig{
			Field:      FieldEmbedding,
			Dimensions: EmbeddingDimensions,
			Metric:     storage.MetricCosine,
			HNSW:       storage.HNSW{M: 5, EfConstruction: 300, EfSearch: 400},
		},
	}
}

// Document converts the chunk to an index record.
func (c Chunk) Document() storage.Document {
	return storage.Document{
		FieldID:           c.ID,
		FieldTitle:        c.Title,
		FieldParagraph:    c.Paragraph,
		FieldParagraphID:  c.ParagraphID,
		FieldKeyphrases:   nonNil(c.Keyphrases),
		FieldSummary:      c.Summary,
		FieldEmbedding:    c.Embedding,
		FieldFilename:     c.Filename,
		FieldDepartment:   c.Department,
		FieldDate:         c.Date.UTC().Format(time.RFC3339Nano),
		FieldGroup:        nonNil(c.Group),
		FieldIsCompliant:  c.IsCompliant,
		FieldCompliant:    nonNil(c.CompliantCollection),
		FieldNonCompliant: nonNil(c.NonCompliantCollection),
	}
}

// ChunkFromDocument reads a chunk back from a (possibly projected) record.
// A missing isCompliant is read as compliant.
func ChunkFromDocument(d storage.Document) Chunk {
	compliant, ok := d.Bool(FieldIsCompliant)
	if !ok {
		compliant = true
	}
	return Chunk{
		ID:                     d.String(FieldID),
		Title:                  d.String(FieldTitle),
		Paragraph:              d.String(FieldParagraph),
		Summary:                d.String(FieldSummary),
		Keyphrases:             d.Strings(FieldKeyphrases),
		Embedding:              d.Vector(FieldEmbedding),
		Filename:               d.String(FieldFilename),
		ParagraphID:            d.Int(FieldParagraphID),
		Date:                   d.Time(FieldDate),
		Department:             d.String(FieldDepartment),
		Group:                  d.Strings(FieldGroup),
		IsCompliant:            compliant,
		CompliantCollection:    d.Strings(FieldCompliant),
		NonCompliantCollection: d.Strings(FieldNonCompliant),
	}
}

// Document converts the policy to an index record.
func (p Policy) Document() storage.Document {
	return storage.Document{
		FieldID:          p.ID,
		FieldPolicyID:    p.ID,
		FieldTitle:       p.Title,
		FieldInstruction: p.Instruction,
		FieldEmbedding:   p.Embedding,
		FieldTags:        nonNil(p.Tags),
		FieldLocked:      p.Locked,
		FieldGroups:      nonNil(p.Groups),
		FieldSeverity:    int(p.Severity),
		FieldLanguage:    string(p.Language),
	}
}

// PolicyFromDocument reads a policy back from a (possibly projected) record.
func PolicyFromDocument(d storage.Document) Policy {
	id := d.String(FieldPolicyID)
	if id == "" {
		id = d.String(FieldID)
	}
	locked, _ := d.Bool(FieldLocked)
	return Policy{
		ID:          id,
		Title:       d.String(FieldTitle),
		Instruction: d.String(FieldInstruction),
		Embedding:   d.Vector(FieldEmbedding),
		Tags:        d.Strings(FieldTags),
		Severity:    Severity(d.Int(FieldSeverity)),
		Language:    Language(d.String(FieldLanguage)),
		Locked:      locked,
		Groups:      d.Strings(FieldGroups),
	}
}
