package metadata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
)

// fakeCompleter returns canned answers in order and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	answers  []string
	err      error
	requests []CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "", nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func TestExtractChunks(t *testing.T) {
	fc := &fakeCompleter{answers: []string{`{"chunks":[
		{"id":"1","title":"Parties","paragraph":"This agreement is made between A and B.","keyphrases":["A","B"],"summary":"Names the parties."},
		{"id":"2","title":"Payment","paragraph":"Invoices are payable within 30 days.","keyphrases":["30 days"],"summary":"Payment terms."}
	]}`}}
	e := NewExtractor(fc, nil)

	chunks, err := e.ExtractChunks(context.Background(), "contract text")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].LocalID)
	assert.Equal(t, 2, chunks[1].LocalID)
	assert.Equal(t, "Payment", chunks[1].Title)
	assert.Equal(t, []string{"30 days"}, chunks[1].Keyphrases)

	require.Len(t, fc.requests, 1)
	req := fc.requests[0]
	assert.Equal(t, chunkPrompt, req.System)
	assert.Equal(t, "contract text", req.User)
	require.NotNil(t, req.Schema)
	assert.Equal(t, "chunk_list", req.Schema.Name)
}

func TestExtractChunks_RenumbersOutOfOrderIDs(t *testing.T) {
	fc := &fakeCompleter{answers: []string{`{"chunks":[
		{"id":"3","title":"a","paragraph":"first","keyphrases":[],"summary":""},
		{"id":"x","title":"b","paragraph":"second","keyphrases":[],"summary":""}
	]}`}}
	chunks, err := NewExtractor(fc, nil).ExtractChunks(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 1, chunks[0].LocalID)
	assert.Equal(t, 2, chunks[1].LocalID)
}

func TestExtractChunks_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"not json", "Here are your chunks!"},
		{"unknown field", `{"chunks":[{"id":"1","title":"t","paragraph":"p","keyphrases":[],"summary":"s","extra":1}]}`},
		{"no chunks", `{"chunks":[]}`},
		{"empty paragraph", `{"chunks":[{"id":"1","title":"t","paragraph":"  ","keyphrases":[],"summary":"s"}]}`},
		{"empty answer", ""},
		{"trailing data", `{"chunks":[{"id":"1","title":"t","paragraph":"p","keyphrases":[],"summary":"s"}]} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{answers: []string{tt.answer}}
			_, err := NewExtractor(fc, nil).ExtractChunks(context.Background(), "text")
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestExtractStructured_CodeFence(t *testing.T) {
	fc := &fakeCompleter{answers: []string{"```json\n{\"title\":\"Travel Expenses\",\"instruction\":\"Economy class only.\",\"tags\":[\"travel\",\"expenses\"],\"severity\":2}\n```"}}

	res, err := NewExtractor(fc, nil).ExtractStructured(context.Background(), "policy", PolicyMetadata)
	require.NoError(t, err)
	assert.Equal(t, PolicyMetadata, res.Kind)
	assert.Nil(t, res.Chunks)
	assert.Nil(t, res.Paragraph)
	require.NotNil(t, res.Policy)
	assert.Equal(t, legal.SeverityWarning, res.Policy.Severity)
	assert.Equal(t, "Economy class only.", res.Policy.Instruction)
}

func TestExtractStructured_UnknownKind(t *testing.T) {
	fc := &fakeCompleter{}
	_, err := NewExtractor(fc, nil).ExtractStructured(context.Background(), "x", SchemaKind(9))
	assert.ErrorIs(t, err, ErrUnknownSchemaKind)
	assert.Empty(t, fc.requests)
}

func TestExtractStructured_ProviderError(t *testing.T) {
	boom := errors.New("provider down")
	fc := &fakeCompleter{err: boom}
	_, err := NewExtractor(fc, nil).ExtractStructured(context.Background(), "x", ChunkList)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMalformedOutput)
}

func TestExtractParagraph(t *testing.T) {
	fc := &fakeCompleter{answers: []string{`{"title":"Liability","keyphrases":["cap"],"summary":"Caps liability.","isCompliant":false,"CompliantCollection":[],"NonCompliantCollection":["P1"]}`}}

	rec, err := NewExtractor(fc, nil).ExtractParagraph(context.Background(), "Liability is capped.")
	require.NoError(t, err)
	assert.False(t, rec.IsCompliant)
	assert.Equal(t, []string{"P1"}, rec.NonCompliantCollection)
	assert.Equal(t, []string{}, rec.CompliantCollection)
}

func TestExtractParagraph_MissingCompliance(t *testing.T) {
	fc := &fakeCompleter{answers: []string{`{"title":"t","keyphrases":[],"summary":"s","CompliantCollection":[],"NonCompliantCollection":[]}`}}
	_, err := NewExtractor(fc, nil).ExtractParagraph(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestExtractPolicy_Validation(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"bad severity", `{"title":"t","instruction":"i","tags":[],"severity":3}`},
		{"empty instruction", `{"title":"t","instruction":"","tags":[],"severity":1}`},
		{"empty title", `{"title":" ","instruction":"i","tags":[],"severity":1}`},
		{"severity as string", `{"title":"t","instruction":"i","tags":[],"severity":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{answers: []string{tt.answer}}
			_, err := NewExtractor(fc, nil).ExtractPolicy(context.Background(), "policy")
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestExtractor_Temperature(t *testing.T) {
	fc := &fakeCompleter{answers: []string{`{"title":"t","instruction":"i","tags":["a","b"],"severity":1}`}}
	_, err := NewExtractor(fc, nil, WithTemperature(0.7)).ExtractPolicy(context.Background(), "policy")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, fc.requests[0].Temperature, 1e-9)
}

func TestSchemaKindString(t *testing.T) {
	assert.Equal(t, "ChunkList", ChunkList.String())
	assert.Equal(t, "ParagraphMetadata", ParagraphMetadata.String())
	assert.Equal(t, "PolicyMetadata", PolicyMetadata.String())
	assert.Equal(t, "SchemaKind(0)", SchemaKind(0).String())
}

// TestTruncateContent verifies truncation works correctly for very long content.
func TestTruncateContent(t *testing.T) {
	e := NewExtractor(&fakeCompleter{}, nil)

	// ~100k chars, well over 16k tokens
	longContent := strings.Repeat("This is a test content. ", 4000)
	truncated := e.truncateContent(longContent)

	assert.Len(t, truncated, DefaultMaxTokens*4)
	assert.True(t, strings.HasPrefix(longContent, truncated))
}

func TestTruncateContent_Short(t *testing.T) {
	e := NewExtractor(&fakeCompleter{}, nil)
	short := strings.Repeat("Short. ", 140)
	assert.Equal(t, short, e.truncateContent(short))
}

func TestTruncateContent_CustomMaxTokens(t *testing.T) {
	e := NewExtractor(&fakeCompleter{}, nil, WithMaxTokens(100))
	assert.Len(t, e.truncateContent(strings.Repeat("x", 1000)), 400)

	e = NewExtractor(&fakeCompleter{}, nil, WithMaxTokens(-5))
	assert.Equal(t, DefaultMaxTokens, e.maxTokens)
}

func TestTruncateContent_RuneBoundary(t *testing.T) {
	e := NewExtractor(&fakeCompleter{}, nil, WithMaxTokens(1))
	// "Größe" has multi-byte runes; the cut must not split one.
	out := e.truncateContent("Größe der Vertragsstrafe")
	assert.True(t, strings.HasPrefix("Größe der Vertragsstrafe", out))
	assert.LessOrEqual(t, len(out), 4)
	assert.Equal(t, "Grö", out)
}
