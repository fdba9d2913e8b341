// Package metadata turns legal text into structured records with a chat model:
// chunk lists, per-paragraph compliance metadata and policy fields. It also
// detects the language of a text and rewrites questions into search intents.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
)

const (
	// DefaultMaxTokens is the maximum content length before truncation (in tokens).
	DefaultMaxTokens = 16000

	// DefaultTemperature is used for extraction calls.
	DefaultTemperature = 0.2
)

// SchemaKind selects one of the three output contracts.
type SchemaKind int

const (
	ChunkList SchemaKind = iota + 1
	ParagraphMetadata
	PolicyMetadata
)

func (k SchemaKind) String() string {
	switch k {
	case ChunkList:
		return "ChunkList"
	case ParagraphMetadata:
		return "ParagraphMetadata"
	case PolicyMetadata:
		return "PolicyMetadata"
	}
	return "SchemaKind(" + strconv.Itoa(int(k)) + ")"
}

// ChunkRecord is one chunk of a document. LocalID runs 1..N in document order.
type ChunkRecord struct {
	LocalID    int
	Title      string
	Paragraph  string
	Keyphrases []string
	Summary    string
}

// ParagraphRecord is the analysis of a single paragraph.
type ParagraphRecord struct {
	Title                  string
	Keyphrases             []string
	Summary                string
	IsCompliant            bool
	CompliantCollection    []string
	NonCompliantCollection []string
}

// PolicyRecord holds the fields extracted from a policy document.
type PolicyRecord struct {
	Title       string
	Instruction string
	Tags        []string
	Severity    legal.Severity
}

// Result carries exactly one payload, selected by Kind.
type Result struct {
	Kind      SchemaKind
	Chunks    []ChunkRecord
	Paragraph *ParagraphRecord
	Policy    *PolicyRecord
}

// ResponseSchema is a named JSON schema the model must follow.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// CompletionRequest is a single system+user chat turn.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	// Schema, when set, asks for strict JSON following it.
	Schema *ResponseSchema
}

// Completer sends one chat turn and returns the answer text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Extractor produces structured metadata from text.
type Extractor struct {
	completer   Completer
	logger      *slog.Logger
	maxTokens   int
	temperature float64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxTokens sets the truncation limit. Non-positive values are ignored.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature of extraction calls.
func WithTemperature(t float64) Option {
	return func(e *Extractor) { e.temperature = t }
}

// NewExtractor creates an Extractor on top of a chat completer.
func NewExtractor(completer Completer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		completer:   completer,
		logger:      logger,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractStructured asks the model for the given schema kind and decodes the
// answer strictly. Any decoding or validation problem wraps ErrMalformedOutput.
func (e *Extractor) ExtractStructured(ctx context.Context, text string, kind SchemaKind) (*Result, error) {
	var (
		system string
		schema *ResponseSchema
	)
	switch kind {
	case ChunkList:
		system, schema = chunkPrompt, chunkListSchema
	case ParagraphMetadata:
		system, schema = paragraphPrompt, paragraphSchema
	case PolicyMetadata:
		system, schema = policyPrompt, policySchema
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchemaKind, int(kind))
	}

	answer, err := e.completer.Complete(ctx, CompletionRequest{
		System:      system,
		User:        e.truncateContent(text),
		Temperature: e.temperature,
		Schema:      schema,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}

	res := &Result{Kind: kind}
	switch kind {
	case ChunkList:
		res.Chunks, err = e.decodeChunks(answer)
	case ParagraphMetadata:
		res.Paragraph, err = decodeParagraph(answer)
	case PolicyMetadata:
		res.Policy, err = decodePolicy(answer)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	return res, nil
}

// ExtractChunks splits a whole document into chunks.
func (e *Extractor) ExtractChunks(ctx context.Context, text string) ([]ChunkRecord, error) {
	res, err := e.ExtractStructured(ctx, text, ChunkList)
	if err != nil {
		return nil, err
	}
	return res.Chunks, nil
}

// ExtractParagraph analyses one paragraph.
func (e *Extractor) ExtractParagraph(ctx context.Context, text string) (*ParagraphRecord, error) {
	res, err := e.ExtractStructured(ctx, text, ParagraphMetadata)
	if err != nil {
		return nil, err
	}
	return res.Paragraph, nil
}

// ExtractPolicy reads the fields of a policy document.
func (e *Extractor) ExtractPolicy(ctx context.Context, text string) (*PolicyRecord, error) {
	res, err := e.ExtractStructured(ctx, text, PolicyMetadata)
	if err != nil {
		return nil, err
	}
	return res.Policy, nil
}

func (e *Extractor) decodeChunks(answer string) ([]ChunkRecord, error) {
	var out struct {
		Chunks []struct {
			ID         string   `json:"id"`
			Title      string   `json:"title"`
			Paragraph  string   `json:"paragraph"`
			Keyphrases []string `json:"keyphrases"`
			Summary    string   `json:"summary"`
		} `json:"chunks"`
	}
	if err := decodeStrict(answer, &out); err != nil {
		return nil, err
	}
	if len(out.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", ErrMalformedOutput)
	}

	chunks := make([]ChunkRecord, len(out.Chunks))
	renumbered := false
	for i, c := range out.Chunks {
		if strings.TrimSpace(c.Paragraph) == "" {
			return nil, fmt.Errorf("%w: chunk %d has an empty paragraph", ErrMalformedOutput, i+1)
		}
		if id, err := strconv.Atoi(strings.TrimSpace(c.ID)); err != nil || id != i+1 {
			renumbered = true
		}
		chunks[i] = ChunkRecord{
			LocalID:    i + 1,
			Title:      c.Title,
			Paragraph:  c.Paragraph,
			Keyphrases: orEmpty(c.Keyphrases),
			Summary:    c.Summary,
		}
	}
	if renumbered {
		e.logger.Warn("Chunk ids were not sequential, renumbered by position", "chunks", len(chunks))
	}
	return chunks, nil
}

func decodeParagraph(answer string) (*ParagraphRecord, error) {
	var out struct {
		Title                  string   `json:"title"`
		Keyphrases             []string `json:"keyphrases"`
		Summary                string   `json:"summary"`
		IsCompliant            *bool    `json:"isCompliant"`
		CompliantCollection    []string `json:"CompliantCollection"`
		NonCompliantCollection []string `json:"NonCompliantCollection"`
	}
	if err := decodeStrict(answer, &out); err != nil {
		return nil, err
	}
	if out.IsCompliant == nil {
		return nil, fmt.Errorf("%w: isCompliant missing", ErrMalformedOutput)
	}
	return &ParagraphRecord{
		Title:                  out.Title,
		Keyphrases:             orEmpty(out.Keyphrases),
		Summary:                out.Summary,
		IsCompliant:            *out.IsCompliant,
		CompliantCollection:    orEmpty(out.CompliantCollection),
		NonCompliantCollection: orEmpty(out.NonCompliantCollection),
	}, nil
}

func decodePolicy(answer string) (*PolicyRecord, error) {
	var out struct {
		Title       string   `json:"title"`
		Instruction string   `json:"instruction"`
		Tags        []string `json:"tags"`
		Severity    int      `json:"severity"`
	}
	if err := decodeStrict(answer, &out); err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(out.Title) == "":
		return nil, fmt.Errorf("%w: policy title is empty", ErrMalformedOutput)
	case strings.TrimSpace(out.Instruction) == "":
		return nil, fmt.Errorf("%w: policy instruction is empty", ErrMalformedOutput)
	case !legal.Severity(out.Severity).Valid():
		return nil, fmt.Errorf("%w: severity %d", ErrMalformedOutput, out.Severity)
	}
	return &PolicyRecord{
		Title:       out.Title,
		Instruction: out.Instruction,
		Tags:        orEmpty(out.Tags),
		Severity:    legal.Severity(out.Severity),
	}, nil
}

// decodeStrict parses a single JSON object and rejects unknown fields.
// Markdown code fences around the object are tolerated.
func decodeStrict(answer string, v any) error {
	body := stripFences(answer)
	if body == "" {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, ErrEmptyAnswer)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedOutput)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncateContent truncates content to fit within token limits.
func (e *Extractor) truncateContent(content string) string {
	return truncate(content, e.maxTokens, e.logger)
}

// truncate cuts content at maxTokens using a rough estimate of 4 characters
// per token, backing off to a rune boundary.
func truncate(content string, maxTokens int, logger *slog.Logger) string {
	maxChars := maxTokens * 4
	if len(content) <= maxChars {
		return content
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}

	logger.Warn("Truncating content",
		"from_chars", len(content), "to_chars", cut, "max_tokens", maxTokens)
	return content[:cut]
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
