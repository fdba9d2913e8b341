package indexer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/metadata"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/storage"
)

var travelPolicy = metadata.PolicyRecord{
	Title:       "Travel Expenses",
	Instruction: "Employees must book economy class for flights under six hours.",
	Tags:        []string{"travel", "expenses"},
	Severity:    legal.SeverityWarning,
}

func storedPolicies(t *testing.T, idx storage.Index) []legal.Policy {
	t.Helper()
	hits, err := idx.Search(context.Background(), testPolicyIndex, storage.SearchRequest{
		Select: []string{legal.FieldID, legal.FieldPolicyID, legal.FieldTitle, legal.FieldInstruction,
			legal.FieldEmbedding, legal.FieldTags, legal.FieldSeverity, legal.FieldLanguage,
			legal.FieldLocked, legal.FieldGroups},
	})
	require.NoError(t, err)
	out := make([]legal.Policy, len(hits))
	for i, h := range hits {
		out[i] = legal.PolicyFromDocument(h.Document)
	}
	return out
}

func TestIndexPolicy_TravelExpenses(t *testing.T) {
	store := newTestStorage(t)
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy}, &fakeEmbedder{}, store, testPolicyIndex, nil)

	res, err := p.IndexPolicy(context.Background(), "travel.docx", "Travel Expenses\nEconomy class only.")
	require.NoError(t, err)
	assert.True(t, res.Confirmed)

	_, err = uuid.Parse(res.Policy.ID)
	assert.NoError(t, err, "policy id is a fresh uuid")

	policies := storedPolicies(t, store)
	require.Len(t, policies, 1)
	got := policies[0]
	assert.Equal(t, res.Policy.ID, got.ID)
	assert.Equal(t, "Travel Expenses", got.Title)
	assert.Equal(t, legal.SeverityWarning, got.Severity)
	assert.Equal(t, legal.English, got.Language)
	assert.False(t, got.Locked)
	assert.Equal(t, []string{}, got.Groups)
	assert.Len(t, got.Embedding, legal.EmbeddingDimensions)

	n, err := store.Count(context.Background(), testPolicyIndex, filter.Eq(legal.FieldPolicyID, res.Policy.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIndexPolicy_EmbedsInstruction(t *testing.T) {
	store := newTestStorage(t)
	emb := &fakeEmbedder{failOn: "economy"}
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy}, emb, store, testPolicyIndex, nil)

	// The source text does not contain the trigger; the instruction does.
	_, err := p.IndexPolicy(context.Background(), "travel.docx", "Reisekosten")
	assert.ErrorIs(t, err, errFake)
	assert.Empty(t, storedPolicies(t, store))
}

func TestIndexPolicy_GermanDetection(t *testing.T) {
	store := newTestStorage(t)
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy, lang: legal.German}, &fakeEmbedder{}, store, testPolicyIndex, nil)

	res, err := p.IndexPolicy(context.Background(), "reise.docx", "Reisekosten")
	require.NoError(t, err)
	assert.Equal(t, legal.German, res.Policy.Language)
}

func TestIndexPolicy_LanguageFailureDefaultsToEnglish(t *testing.T) {
	store := newTestStorage(t)
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy, failLang: true}, &fakeEmbedder{}, store, testPolicyIndex, nil)

	res, err := p.IndexPolicy(context.Background(), "reise.docx", "Reisekosten")
	require.NoError(t, err)
	assert.Equal(t, legal.English, res.Policy.Language)
	assert.True(t, res.Confirmed)
}

func TestIndexPolicy_ExtractionFailure(t *testing.T) {
	store := newTestStorage(t)
	p := NewPolicyPipeline(&fakeExtractor{failPolicy: true}, &fakeEmbedder{}, store, testPolicyIndex, nil)

	_, err := p.IndexPolicy(context.Background(), "bad.docx", "text")
	assert.ErrorIs(t, err, metadata.ErrMalformedOutput)
	assert.Empty(t, storedPolicies(t, store))
}

func TestIndexPolicy_RerunCreatesDuplicate(t *testing.T) {
	store := newTestStorage(t)
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy}, &fakeEmbedder{}, store, testPolicyIndex, nil)
	ctx := context.Background()

	first, err := p.IndexPolicy(ctx, "travel.docx", "text")
	require.NoError(t, err)
	second, err := p.IndexPolicy(ctx, "travel.docx", "text")
	require.NoError(t, err)

	assert.NotEqual(t, first.Policy.ID, second.Policy.ID)
	assert.Len(t, storedPolicies(t, store), 2)
}

func TestIndexPolicy_UploadFailureIsNotRaised(t *testing.T) {
	store := failingIndex{newTestStorage(t)}
	p := NewPolicyPipeline(&fakeExtractor{policy: travelPolicy}, &fakeEmbedder{}, store, testPolicyIndex, nil)

	res, err := p.IndexPolicy(context.Background(), "travel.docx", "text")
	require.NoError(t, err)
	assert.False(t, res.Confirmed)
}
