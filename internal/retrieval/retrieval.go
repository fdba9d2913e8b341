// Package retrieval runs the hybrid lexical and vector queries behind the
// review workflow: clause search within one contract, policy listing and
// language-aware policy lookup.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

// ErrMissingFilename is returned by SearchDocuments without a filename.
var ErrMissingFilename = errors.New("filename is required")

var (
	documentSelect = []string{legal.FieldTitle, legal.FieldParagraph, legal.FieldKeyphrases, legal.FieldSummary}
	policySelect   = []string{legal.FieldTitle, legal.FieldInstruction}
)

// DocumentQuery searches the clauses of one contract.
type DocumentQuery struct {
	Filename string
	Text     string
	// Vector is the query embedding. Nil runs a lexical-only search.
	Vector []float32
	Groups []string
}

// DocumentResult is one matching clause.
type DocumentResult struct {
	Title      string   `json:"title"`
	Paragraph  string   `json:"paragraph"`
	Keyphrases []string `json:"keyphrases"`
	Summary    string   `json:"summary"`
	Score      float64  `json:"score"`
}

// PolicyQuery searches the Policy index.
type PolicyQuery struct {
	Text   string
	Vector []float32
	Groups []string
}

// PolicySummary is the title and rule text of a policy.
type PolicySummary struct {
	Title       string `json:"title"`
	Instruction string `json:"instruction"`
}

// PolicySearchResult holds language-aware matches and the language used.
type PolicySearchResult struct {
	Language legal.Language  `json:"language"`
	Policies []PolicySummary `json:"policies"`
}

// Service answers retrieval queries against the Document and Policy indexes.
type Service struct {
	index         storage.Index
	documentIndex string
	policyIndex   string
	cfg           config.RetrievalConfig
	detector      metadata.LanguageDetector
	logger        *slog.Logger
}

// NewService creates a retrieval service. detector is used by SearchPolicies.
func NewService(
	index storage.Index,
	search config.SearchServiceConfig,
	cfg config.RetrievalConfig,
	detector metadata.LanguageDetector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		index:         index,
		documentIndex: search.DocumentIndex,
		policyIndex:   search.PolicyIndex,
		cfg:           cfg,
		detector:      detector,
		logger:        logger,
	}
}

// SearchDocuments runs a hybrid search restricted to one filename with an
// exhaustive nearest-neighbour leg. The group filter is only applied when
// enforcement is enabled.
func (s *Service) SearchDocuments(ctx context.Context, q DocumentQuery) ([]DocumentResult, error) {
	if q.Filename == "" {
		return nil, ErrMissingFilename
	}
	expr := filter.Expr(filter.Eq(legal.FieldFilename, q.Filename))

	groupFilter, err := s.groupFilter(legal.FieldGroup, q.Groups)
	if err != nil {
		return nil, err
	}
	if s.cfg.EnforceGroupFilter {
		expr = filter.And(expr, groupFilter)
	}

	hits, err := s.index.Search(ctx, s.documentIndex, storage.SearchRequest{
		Text:   q.Text,
		Filter: expr,
		Vector: vectorQuery(q.Vector, s.cfg.DocumentK, true),
		Select: documentSelect,
		Top:    s.cfg.DocumentTop,
	})
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	out := make([]DocumentResult, len(hits))
	for i, h := range hits {
		out[i] = DocumentResult{
			Title:      h.Document.String(legal.FieldTitle),
			Paragraph:  h.Document.String(legal.FieldParagraph),
			Keyphrases: h.Document.Strings(legal.FieldKeyphrases),
			Summary:    h.Document.String(legal.FieldSummary),
			Score:      h.Score,
		}
	}
	return out, nil
}

// ListPolicies searches policies visible to the caller's groups. While the
// static fallback is enabled the fixed topic list is returned instead.
func (s *Service) ListPolicies(ctx context.Context, q PolicyQuery) ([]PolicySummary, error) {
	groupFilter, err := s.groupFilter(legal.FieldGroups, q.Groups)
	if err != nil {
		return nil, err
	}
	if s.cfg.StaticPolicyFallback {
		s.logger.Debug("Returning static policy list")
		return StaticPolicies(), nil
	}

	hits, err := s.index.Search(ctx, s.policyIndex, storage.SearchRequest{
		Text:   q.Text,
		Filter: groupFilter,
		Vector: vectorQuery(q.Vector, s.cfg.PolicyListK, false),
		Select: policySelect,
		Top:    s.cfg.PolicyListK,
	})
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return policySummaries(hits), nil
}

// SearchPolicies detects the language of the query text and returns the
// closest policies written in that language. Detection failures fall back to
// English.
func (s *Service) SearchPolicies(ctx context.Context, q PolicyQuery) (*PolicySearchResult, error) {
	lang := legal.English
	if s.detector != nil {
		lang = metadata.DetectOrDefault(ctx, s.detector, q.Text, s.logger)
	}
	expr := filter.Expr(filter.Eq(legal.FieldLanguage, lang))

	groupFilter, err := s.groupFilter(legal.FieldGroups, q.Groups)
	if err != nil {
		return nil, err
	}
	if s.cfg.EnforceGroupFilter {
		expr = filter.And(expr, groupFilter)
	}

	hits, err := s.index.Search(ctx, s.policyIndex, storage.SearchRequest{
		Text:   q.Text,
		Filter: expr,
		Vector: vectorQuery(q.Vector, s.cfg.PolicySearchK, false),
		Select: policySelect,
		Top:    s.cfg.PolicySearchK,
	})
	if err != nil {
		return nil, fmt.Errorf("search policies: %w", err)
	}
	return &PolicySearchResult{Language: lang, Policies: policySummaries(hits)}, nil
}

// groupFilter builds the membership filter for groups. No groups matches
// nothing, so a caller without groups sees no group-scoped records.
func (s *Service) groupFilter(field string, groups []string) (filter.Expr, error) {
	m, err := filter.AnyIn(field, groups)
	if err != nil {
		return nil, fmt.Errorf("group filter: %w", err)
	}
	return m, nil
}

func vectorQuery(vec []float32, k int, exhaustive bool) *storage.VectorQuery {
	if len(vec) == 0 {
		return nil
	}
	return &storage.VectorQuery{
		Vector:     vec,
		K:          k,
		Field:      legal.FieldEmbedding,
		Exhaustive: exhaustive,
	}
}

func policySummaries(hits []storage.Hit) []PolicySummary {
	out := make([]PolicySummary, len(hits))
	for i, h := range hits {
		out[i] = PolicySummary{
			Title:       h.Document.String(legal.FieldTitle),
			Instruction: h.Document.String(legal.FieldInstruction),
		}
	}
	return out
}
