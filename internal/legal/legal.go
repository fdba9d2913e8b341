// Package legal defines contract chunks and policies as they are stored in
// the Document and Policy indexes.
package legal

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EmbeddingDimensions is the vector length of every stored embedding.
const EmbeddingDimensions = 1536

// Index field names.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldParagraph    = "paragraph"
	FieldSummary      = "summary"
	FieldKeyphrases   = "keyphrases"
	FieldEmbedding    = "embedding"
	FieldFilename     = "filename"
	FieldParagraphID  = "ParagraphId"
	FieldDate         = "date"
	FieldDepartment   = "department"
	FieldGroup        = "group"
	FieldIsCompliant  = "isCompliant"
	FieldCompliant    = "CompliantCollection"
	FieldNonCompliant = "NonCompliantCollection"

	FieldPolicyID    = "PolicyId"
	FieldInstruction = "instruction"
	FieldTags        = "tags"
	FieldSeverity    = "severity"
	FieldLanguage    = "language"
	FieldLocked      = "locked"
	FieldGroups      = "groups"
)

// Severity ranks how serious a policy breach is.
type Severity int

const (
	SeverityCritical Severity = 1
	SeverityWarning  Severity = 2
)

// Valid reports whether s is Critical or Warning.
func (s Severity) Valid() bool { return s == SeverityCritical || s == SeverityWarning }

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityWarning:
		return "Warning"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Language is the language a policy is written in.
type Language string

const (
	English Language = "English"
	German  Language = "German"
)

// ParseLanguage maps a one-word model answer to a Language. Surrounding
// space, quotes and trailing punctuation are ignored; anything other than
// German or Deutsch is English.
func ParseLanguage(answer string) Language {
	word := strings.Trim(strings.TrimSpace(answer), `"'.!`)
	if strings.EqualFold(word, "german") || strings.EqualFold(word, "deutsch") {
		return German
	}
	return English
}

// Stem returns the part of a file name before its first dot.
func Stem(filename string) string {
	base := filepath.Base(filename)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// ChunkID builds the document-index key of a chunk: <stem>-<localID>.
func ChunkID(filename string, localID int) string {
	return fmt.Sprintf("%s-%d", Stem(filename), localID)
}

// Chunk is one section of a contract in the Document index.
type Chunk struct {
	ID          string
	Title       string
	Paragraph   string
	Summary     string
	Keyphrases  []string
	Embedding   []float32
	Filename    string
	ParagraphID int
	Date        time.Time
	Department  string
	// Group is a placeholder for tenant scoping and is written empty.
	Group                  []string
	IsCompliant            bool
	CompliantCollection    []string
	NonCompliantCollection []string
}

// Policy is one rule in the Policy index. ID doubles as PolicyId.
type Policy struct {
	ID          string
	Title       string
	Instruction string
	Embedding   []float32
	Tags        []string
	Severity    Severity
	Language    Language
	Locked      bool
	// Groups is a placeholder for tenant scoping and is written empty.
	Groups []string
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
