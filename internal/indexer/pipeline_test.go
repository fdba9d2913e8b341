package indexer

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

func newDocumentPipeline(ex DocumentExtractor, emb Embedder, idx storage.Index) *DocumentPipeline {
	p := NewDocumentPipeline(ex, emb, idx, testDocIndex, 2, nil)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	return p
}

func TestIndexDocument_IDsAndParagraphIDs(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{}, store)
	ctx := context.Background()

	indexed, err := p.IsIndexed(ctx, "MSA.v2.docx")
	require.NoError(t, err)
	assert.False(t, indexed)

	doc, err := p.IndexDocument(ctx, "MSA.v2.docx", "Scope\nPayment\nTermination")
	require.NoError(t, err)
	assert.True(t, doc.Confirmed)
	assert.Equal(t, 3, doc.Records)
	assert.Equal(t, 3, doc.Uploaded)

	chunks := chunksOf(t, store, "MSA.v2.docx")
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("MSA-%d", i+1), c.ID)
		assert.Equal(t, i+1, c.ParagraphID)
		assert.Equal(t, "MSA.v2.docx", c.Filename)
		assert.Equal(t, "", c.Department)
		assert.Equal(t, []string{}, c.Group)
		assert.False(t, c.IsCompliant)
		assert.Equal(t, []string{}, c.CompliantCollection)
		assert.Equal(t, []string{}, c.NonCompliantCollection)
		assert.Equal(t, time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC), c.Date)
	}
	assert.Equal(t, "Payment", chunks[1].Paragraph)
	assert.Equal(t, "Title Payment", chunks[1].Title)
	assert.Equal(t, "Summary Payment", chunks[1].Summary)
	assert.Equal(t, []string{"Payment"}, chunks[1].Keyphrases)

	n, err := p.IndexedCount(ctx, "MSA.v2.docx")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIndexDocument_ReindexOverwrites(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{}, store)
	ctx := context.Background()

	_, err := p.IndexDocument(ctx, "a.docx", "one\ntwo")
	require.NoError(t, err)
	_, err = p.IndexDocument(ctx, "a.docx", "one\nthree")
	require.NoError(t, err)

	chunks := chunksOf(t, store, "a.docx")
	require.Len(t, chunks, 2)
	assert.Equal(t, "three", chunks[1].Paragraph)
}

func TestIndexDocument_ExtractionFailure(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{failChunks: true}, &fakeEmbedder{}, store)

	_, err := p.IndexDocument(context.Background(), "a.docx", "text")
	assert.ErrorIs(t, err, metadata.ErrMalformedOutput)
	assert.Empty(t, chunksOf(t, store, "a.docx"))
}

func TestIndexDocument_EmbeddingFailureAbortsDocument(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{failOn: "broken"}, store)

	_, err := p.IndexDocument(context.Background(), "a.docx", "fine\nbroken\nfine again")
	assert.ErrorIs(t, err, errFake)
	assert.Empty(t, chunksOf(t, store, "a.docx"), "nothing is written when any chunk fails")
}

func TestIndexDocument_UploadFailureIsNotRaised(t *testing.T) {
	store := failingIndex{newTestStorage(t)}
	p := newDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{}, store)

	doc, err := p.IndexDocument(context.Background(), "a.docx", "one\ntwo")
	require.NoError(t, err)
	assert.False(t, doc.Confirmed)
	assert.Len(t, doc.Failed, 2)
	assert.Zero(t, doc.Uploaded)
}

func TestIndexDocument_DimensionMismatchFailsAtUpload(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{dims: 3}, store)

	doc, err := p.IndexDocument(context.Background(), "a.docx", "one\ntwo")
	require.NoError(t, err)
	assert.False(t, doc.Confirmed)
	assert.Equal(t, 2, doc.Records)
	assert.Zero(t, doc.Uploaded)
	require.Len(t, doc.Failed, 2)
	for _, f := range doc.Failed {
		assert.Equal(t, http.StatusBadRequest, f.StatusCode)
		assert.ErrorIs(t, f.Err, storage.ErrDimensionMismatch)
	}
	assert.Empty(t, chunksOf(t, store, "a.docx"))
}

func TestIndexParagraphs_SkipsFailedParagraphs(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{failOn: "garbled"}, &fakeEmbedder{failOn: "unembeddable"}, store)

	paras := []string{"Services", "garbled", "A penalty of 5% applies", "unembeddable", "Governing law"}
	doc, err := p.IndexParagraphs(context.Background(), "sow.docx", paras)
	require.NoError(t, err)
	assert.True(t, doc.Confirmed)
	assert.Equal(t, []int{2, 4}, doc.Skipped)

	chunks := chunksOf(t, store, "sow.docx")
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.ParagraphID)
		assert.Equal(t, fmt.Sprintf("sow-%d", i+1), c.ID)
		assert.Equal(t, "Legal", c.Department)
	}
	assert.Equal(t, "A penalty of 5% applies", chunks[1].Paragraph)
	assert.False(t, chunks[1].IsCompliant)
	assert.Equal(t, []string{"P1"}, chunks[1].NonCompliantCollection)
	assert.True(t, chunks[2].IsCompliant)
}

func TestIndexParagraphs_NothingIndexed(t *testing.T) {
	store := newTestStorage(t)
	p := newDocumentPipeline(&fakeExtractor{failOn: "x"}, &fakeEmbedder{}, store)

	_, err := p.IndexParagraphs(context.Background(), "a.docx", []string{"x1", "x2"})
	assert.ErrorIs(t, err, ErrNothingIndexed)
}

func TestIsIndexed_UnknownIndex(t *testing.T) {
	p := NewDocumentPipeline(&fakeExtractor{}, &fakeEmbedder{}, storage.NewMemoryStorage(), "missing", 0, nil)
	_, err := p.IsIndexed(context.Background(), "a.docx")
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}
