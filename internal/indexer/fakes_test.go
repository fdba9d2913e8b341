package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

const (
	testDocIndex    = "legal-documents"
	testPolicyIndex = "legal-instructions"
)

var errFake = errors.New("fake failure")

// fakeExtractor makes one chunk per line of the document text. Any text
// containing failOn makes the corresponding call fail.
type fakeExtractor struct {
	failOn      string
	failChunks  bool
	failPolicy  bool
	failLang    bool
	lang        legal.Language
	policy      metadata.PolicyRecord
	onChunk     func()
	mu          sync.Mutex
	chunkCalls  int
	policyCalls int
}

func (f *fakeExtractor) ExtractChunks(ctx context.Context, text string) ([]metadata.ChunkRecord, error) {
	f.mu.Lock()
	f.chunkCalls++
	hook := f.onChunk
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.failChunks || (f.failOn != "" && strings.Contains(text, f.failOn)) {
		return nil, metadata.ErrMalformedOutput
	}
	var out []metadata.ChunkRecord
	for i, line := range strings.Split(text, "\n") {
		out = append(out, metadata.ChunkRecord{
			LocalID:    i + 1,
			Title:      "Title " + line,
			Paragraph:  line,
			Keyphrases: []string{line},
			Summary:    "Summary " + line,
		})
	}
	return out, nil
}

func (f *fakeExtractor) ExtractParagraph(ctx context.Context, text string) (*metadata.ParagraphRecord, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, metadata.ErrMalformedOutput
	}
	return &metadata.ParagraphRecord{
		Title:                  "Title " + text,
		Keyphrases:             []string{text},
		Summary:                "Summary " + text,
		IsCompliant:            !strings.Contains(text, "penalty"),
		CompliantCollection:    []string{},
		NonCompliantCollection: nonCompliantFor(text),
	}, nil
}

func nonCompliantFor(text string) []string {
	if strings.Contains(text, "penalty") {
		return []string{"P1"}
	}
	return []string{}
}

func (f *fakeExtractor) ExtractPolicy(ctx context.Context, text string) (*metadata.PolicyRecord, error) {
	f.mu.Lock()
	f.policyCalls++
	f.mu.Unlock()
	if f.failPolicy {
		return nil, metadata.ErrMalformedOutput
	}
	rec := f.policy
	return &rec, nil
}

func (f *fakeExtractor) DetectLanguage(ctx context.Context, text string) (legal.Language, error) {
	if f.failLang {
		return "", errFake
	}
	if f.lang == "" {
		return legal.English, nil
	}
	return f.lang, nil
}

// fakeEmbedder returns a unit-ish vector derived from the text length. A
// non-zero dims overrides the vector length.
type fakeEmbedder struct {
	failOn string
	dims   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errFake
	}
	if f.dims > 0 {
		vec := make([]float32, f.dims)
		vec[0] = 1
		return vec, nil
	}
	vec := make([]float32, legal.EmbeddingDimensions)
	vec[0] = 1
	vec[len(text)%legal.EmbeddingDimensions] += 1
	return vec, nil
}

// failingIndex rejects every upload with a transport error.
type failingIndex struct {
	*storage.MemoryStorage
}

func (f failingIndex) Upload(ctx context.Context, index string, docs []storage.Document) ([]storage.UploadResult, error) {
	results := make([]storage.UploadResult, len(docs))
	for i, d := range docs {
		results[i] = storage.UploadResult{Key: d.String(legal.FieldID), StatusCode: 503, Err: errFake}
	}
	return results, errFake
}

func newTestStorage(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	s := storage.NewMemoryStorage()
	ctx := context.Background()
	_, err := s.EnsureIndex(ctx, legal.DocumentSchema(testDocIndex))
	require.NoError(t, err)
	_, err = s.EnsureIndex(ctx, legal.PolicySchema(testPolicyIndex))
	require.NoError(t, err)
	return s
}

// chunksOf returns the stored chunks of filename ordered by ParagraphId.
func chunksOf(t *testing.T, idx storage.Index, filename string) []legal.Chunk {
	t.Helper()
	hits, err := idx.Search(context.Background(), testDocIndex, storage.SearchRequest{
		Filter:  filter.Eq(legal.FieldFilename, filename),
		OrderBy: legal.FieldParagraphID,
	})
	require.NoError(t, err)
	out := make([]legal.Chunk, len(hits))
	for i, h := range hits {
		out[i] = legal.ChunkFromDocument(h.Document)
	}
	return out
}
