// Package indexer turns contracts and policy documents into index records:
// extraction, embedding and one batch upload per document.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

// DefaultConcurrency bounds parallel extraction and embedding calls per document.
const DefaultConcurrency = 4

// legalDepartment is stamped on records produced by per-paragraph analysis.
const legalDepartment = "Legal"

// ErrNothingIndexed is returned when no paragraph of a document survived analysis.
var ErrNothingIndexed = errors.New("no paragraph could be analysed")

// Embedder turns one text into one vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentExtractor is the part of the metadata extractor used for contracts.
type DocumentExtractor interface {
	ExtractChunks(ctx context.Context, text string) ([]metadata.ChunkRecord, error)
	ExtractParagraph(ctx context.Context, text string) (*metadata.ParagraphRecord, error)
}

// IndexedDocument describes the outcome of indexing one document.
type IndexedDocument struct {
	Filename string
	// Records is the number of records sent in the batch.
	Records int
	Uploaded int
	// Skipped lists 1-based source paragraph positions dropped by per-paragraph analysis.
	Skipped []int
	Failed  []storage.UploadResult
	// Confirmed is true only when every record was stored.
	Confirmed bool
}

// DocumentPipeline indexes contracts into the Document index.
type DocumentPipeline struct {
	extractor   DocumentExtractor
	embedder    Embedder
	index       storage.Index
	indexName   string
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewDocumentPipeline creates a document pipeline writing to indexName.
func NewDocumentPipeline(
	extractor DocumentExtractor,
	embedder Embedder,
	index storage.Index,
	indexName string,
	concurrency int,
	logger *slog.Logger,
) *DocumentPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &DocumentPipeline{
		extractor:   extractor,
		embedder:    embedder,
		index:       index,
		indexName:   indexName,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// IndexDocument chunks the whole document text, embeds every chunk paragraph
// and uploads the records in one batch. Extraction or embedding failures abort
// the document before anything is written. Upload failures are logged and
// leave the document unconfirmed.
func (p *DocumentPipeline) IndexDocument(ctx context.Context, filename, text string) (*IndexedDocument, error) {
	chunks, err := p.extractor.ExtractChunks(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	p.logger.Debug("Chunked document", "filename", filename, "chunks", len(chunks))

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, c.Paragraph)
			if err != nil {
				return fmt.Errorf("embed paragraph %d: %w", c.LocalID, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embeddings %s: %w", filename, err)
	}

	date := p.now().UTC()
	records := make([]legal.Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = legal.Chunk{
			ID:                     legal.ChunkID(filename, c.LocalID),
			Title:                  c.Title,
			Paragraph:              c.Paragraph,
			Summary:                c.Summary,
			Keyphrases:             c.Keyphrases,
			Embedding:              vectors[i],
			Filename:               filename,
			ParagraphID:            c.LocalID,
			Date:                   date,
			Department:             "",
			Group:                  []string{},
			IsCompliant:            false,
			CompliantCollection:    []string{},
			NonCompliantCollection: []string{},
		}
	}

	return p.upload(ctx, filename, records, nil), nil
}

// IndexParagraphs analyses every paragraph on its own, keeping the compliance
// fields the model returns. A paragraph whose analysis or embedding fails is
// skipped and logged. Surviving paragraphs get contiguous ParagraphIds from 1.
func (p *DocumentPipeline) IndexParagraphs(ctx context.Context, filename string, paragraphs []string) (*IndexedDocument, error) {
	type analysed struct {
		meta *metadata.ParagraphRecord
		vec  []float32
	}
	results := make([]*analysed, len(paragraphs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, para := range paragraphs {
		g.Go(func() error {
			meta, err := p.extractor.ExtractParagraph(gctx, para)
			if err != nil {
				p.logger.Warn("Paragraph analysis failed, skipping",
					"filename", filename, "paragraph", i+1, "error", err)
				return gctx.Err()
			}
			vec, err := p.embedder.Embed(gctx, para)
			if err != nil {
				p.logger.Warn("Paragraph embedding failed, skipping",
					"filename", filename, "paragraph", i+1, "error", err)
				return gctx.Err()
			}
			results[i] = &analysed{meta: meta, vec: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyse %s: %w", filename, err)
	}

	date := p.now().UTC()
	var (
		records []legal.Chunk
		skipped []int
	)
	for i, r := range results {
		if r == nil {
			skipped = append(skipped, i+1)
			continue
		}
		pid := len(records) + 1
		records = append(records, legal.Chunk{
			ID:                     legal.ChunkID(filename, pid),
			Title:                  r.meta.Title,
			Paragraph:              paragraphs[i],
			Summary:                r.meta.Summary,
			Keyphrases:             r.meta.Keyphrases,
			Embedding:              r.vec,
			Filename:               filename,
			ParagraphID:            pid,
			Date:                   date,
			Department:             legalDepartment,
			Group:                  []string{},
			IsCompliant:            r.meta.IsCompliant,
			CompliantCollection:    r.meta.CompliantCollection,
			NonCompliantCollection: r.meta.NonCompliantCollection,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNothingIndexed)
	}

	return p.upload(ctx, filename, records, skipped), nil
}

func (p *DocumentPipeline) upload(ctx context.Context, filename string, records []legal.Chunk, skipped []int) *IndexedDocument {
	docs := make([]storage.Document, len(records))
	for i, r := range records {
		docs[i] = r.Document()
	}

	out := &IndexedDocument{Filename: filename, Records: len(docs), Skipped: skipped}
	results, err := p.index.Upload(ctx, p.indexName, docs)
	if err != nil {
		p.logger.Error("Document upload failed", "filename", filename, "index", p.indexName, "error", err)
	}
	out.Failed = storage.Failed(results)
	out.Uploaded = len(results) - len(out.Failed)
	out.Confirmed = err == nil && len(out.Failed) == 0 && out.Uploaded == len(docs)

	for _, f := range out.Failed {
		p.logger.Warn("Record not stored",
			"filename", filename, "id", f.Key, "status", f.StatusCode, "error", f.Err)
	}
	if out.Confirmed {
		p.logger.Info("Indexed document", "filename", filename, "records", out.Records)
	}
	return out
}

// IsIndexed reports whether any record of filename exists in the Document index.
func (p *DocumentPipeline) IsIndexed(ctx context.Context, filename string) (bool, error) {
	n, err := p.IndexedCount(ctx, filename)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IndexedCount returns the number of records stored for filename.
func (p *DocumentPipeline) IndexedCount(ctx context.Context, filename string) (int64, error) {
	n, err := p.index.Count(ctx, p.indexName, filter.Eq(legal.FieldFilename, filename))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", filename, err)
	}
	return n, nil
}
