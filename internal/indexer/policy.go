package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

// PolicyExtractor is the part of the metadata extractor used for policies.
type PolicyExtractor interface {
	metadata.LanguageDetector
	ExtractPolicy(ctx context.Context, text string) (*metadata.PolicyRecord, error)
}

// IndexedPolicy describes the outcome of indexing one policy document.
type IndexedPolicy struct {
	Filename  string
	Policy    legal.Policy
	Confirmed bool
}

// PolicyPipeline indexes policy documents into the Policy index. Every run
// creates a new record; re-indexing a file produces a duplicate policy.
type PolicyPipeline struct {
	extractor PolicyExtractor
	embedder  Embedder
	index     storage.Index
	indexName string
	newID     func() string
	logger    *slog.Logger
}

// NewPolicyPipeline creates a policy pipeline writing to indexName.
func NewPolicyPipeline(extractor PolicyExtractor, embedder Embedder, index storage.Index, indexName string, logger *slog.Logger) *PolicyPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyPipeline{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		indexName: indexName,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// IndexPolicy detects the language of text, extracts the policy fields,
// embeds the instruction and uploads one record. Language detection falls
// back to English; extraction and embedding failures are returned. An upload
// failure is logged and leaves the policy unconfirmed.
func (p *PolicyPipeline) IndexPolicy(ctx context.Context, filename, text string) (*IndexedPolicy, error) {
	lang := metadata.DetectOrDefault(ctx, p.extractor, text, p.logger.With("filename", filename))

	rec, err := p.extractor.ExtractPolicy(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract policy %s: %w", filename, err)
	}

	vec, err := p.embedder.Embed(ctx, rec.Instruction)
	if err != nil {
		return nil, fmt.Errorf("embed instruction %s: %w", filename, err)
	}

	policy := legal.Policy{
		ID:          p.newID(),
		Title:       rec.Title,
		Instruction: rec.Instruction,
		Embedding:   vec,
		Tags:        rec.Tags,
		Severity:    rec.Severity,
		Language:    lang,
		Locked:      false,
		Groups:      []string{},
	}

	out := &IndexedPolicy{Filename: filename, Policy: policy}
	results, err := p.index.Upload(ctx, p.indexName, []storage.Document{policy.Document()})
	switch {
	case err != nil:
		p.logger.Error("Policy upload failed", "filename", filename, "policy_id", policy.ID, "error", err)
	case len(storage.Failed(results)) > 0:
		f := storage.Failed(results)[0]
		p.logger.Error("Policy not stored", "filename", filename, "policy_id", policy.ID,
			"status", f.StatusCode, "error", f.Err)
	default:
		out.Confirmed = true
		p.logger.Info("Indexed policy", "filename", filename, "policy_id", policy.ID,
			"title", policy.Title, "language", string(lang), "severity", policy.Severity.String())
	}
	return out, nil
}
