// Package compliance assembles the per-clause compliance view of a contract,
// joining non-compliant clauses with the policies they violate.
package compliance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

var (
	chunkSelect = []string{
		legal.FieldID, legal.FieldParagraphID, legal.FieldTitle, legal.FieldSummary,
		legal.FieldKeyphrases, legal.FieldIsCompliant, legal.FieldCompliant, legal.FieldNonCompliant,
	}
	policySelect = []string{
		legal.FieldID, legal.FieldTitle, legal.FieldInstruction, legal.FieldTags, legal.FieldSeverity,
	}
)

// PolicyInfo is a resolved policy reference.
type PolicyInfo struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Instruction string         `json:"instruction"`
	Tags        []string       `json:"tags"`
	Severity    legal.Severity `json:"severity"`
}

// ChunkSummary is one clause of the report. NonCompliantPolicies is set only
// for non-compliant clauses.
type ChunkSummary struct {
	ID                     string       `json:"id"`
	ParagraphID            int          `json:"paragraphId"`
	Title                  string       `json:"title"`
	Summary                string       `json:"summary"`
	Keyphrases             []string     `json:"keyphrases"`
	IsCompliant            bool         `json:"isCompliant"`
	CompliantCollection    []string     `json:"CompliantCollection"`
	NonCompliantCollection []string     `json:"NonCompliantCollection"`
	NonCompliantPolicies   []PolicyInfo `json:"NonCompliantPolicies,omitempty"`
}

// Report is the compliance view of one document.
type Report struct {
	Filename string         `json:"filename"`
	Chunks   []ChunkSummary `json:"chunks"`
	// MissingPolicies lists referenced policy ids that were not found.
	MissingPolicies []string `json:"missingPolicies,omitempty"`
}

// NonCompliantCount returns the number of non-compliant clauses.
func (r *Report) NonCompliantCount() int {
	n := 0
	for _, c := range r.Chunks {
		if !c.IsCompliant {
			n++
		}
	}
	return n
}

// Aggregator builds compliance reports from the Document and Policy indexes.
type Aggregator struct {
	index         storage.Index
	documentIndex string
	policyIndex   string
	logger        *slog.Logger
}

// NewAggregator creates an Aggregator over the configured indexes.
func NewAggregator(index storage.Index, search config.SearchServiceConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		index:         index,
		documentIndex: search.DocumentIndex,
		policyIndex:   search.PolicyIndex,
		logger:        logger,
	}
}

// Report returns every clause of filename ordered by ParagraphId. Policy ids
// of non-compliant clauses are resolved by exact PolicyId match; ids that do
// not resolve are skipped with a warning.
func (a *Aggregator) Report(ctx context.Context, filename string) (*Report, error) {
	hits, err := a.index.Search(ctx, a.documentIndex, storage.SearchRequest{
		Filter:  filter.Eq(legal.FieldFilename, filename),
		Select:  chunkSelect,
		OrderBy: legal.FieldParagraphID,
	})
	if err != nil {
		return nil, fmt.Errorf("load chunks of %s: %w", filename, err)
	}

	report := &Report{Filename: filename, Chunks: make([]ChunkSummary, 0, len(hits))}
	resolved := make(map[string]*PolicyInfo)
	missing := make(map[string]bool)

	for _, h := range hits {
		c := legal.ChunkFromDocument(h.Document)
		summary := ChunkSummary{
			ID:                     c.ID,
			ParagraphID:            c.ParagraphID,
			Title:                  c.Title,
			Summary:                c.Summary,
			Keyphrases:             c.Keyphrases,
			IsCompliant:            c.IsCompliant,
			CompliantCollection:    c.CompliantCollection,
			NonCompliantCollection: c.NonCompliantCollection,
		}
		if !c.IsCompliant {
			summary.NonCompliantPolicies = []PolicyInfo{}
			for _, id := range c.NonCompliantCollection {
				info, ok := resolved[id]
				if !ok && !missing[id] {
					info, err = a.lookupPolicy(ctx, id)
					if err != nil {
						return nil, err
					}
					resolved[id] = info
				}
				if info == nil {
					if !missing[id] {
						missing[id] = true
						report.MissingPolicies = append(report.MissingPolicies, id)
					}
					a.logger.Warn("No policy found for id",
						"filename", filename, "paragraph_id", c.ParagraphID, "policy_id", id)
					continue
				}
				summary.NonCompliantPolicies = append(summary.NonCompliantPolicies, *info)
			}
		}
		report.Chunks = append(report.Chunks, summary)
	}
	return report, nil
}

// lookupPolicy returns nil without error when no policy has the id.
func (a *Aggregator) lookupPolicy(ctx context.Context, id string) (*PolicyInfo, error) {
	hits, err := a.index.Search(ctx, a.policyIndex, storage.SearchRequest{
		Filter: filter.Eq(legal.FieldPolicyID, id),
		Select: policySelect,
		Top:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve policy %s: %w", id, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	p := legal.PolicyFromDocument(hits[0].Document)
	return &PolicyInfo{
		ID:          p.ID,
		Title:       p.Title,
		Instruction: p.Instruction,
		Tags:        p.Tags,
		Severity:    p.Severity,
	}, nil
}
