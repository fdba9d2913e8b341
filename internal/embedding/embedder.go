// Package embedding turns text into vectors with OpenAI or Azure OpenAI,
// retrying rate limits and caching results in Redis when configured.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is used when no model or deployment is configured.
	DefaultModel = "text-embedding-3-small"

	// Dimension is the vector length every index expects.
	Dimension = 1536
)

// ErrEmptyText is returned for blank input; the provider rejects it anyway.
var ErrEmptyText = errors.New("cannot embed empty text")

// VectorCache stores vectors by key. Misses return ok=false and no error.
type VectorCache interface {
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Embedder turns one text into one vector, with exponential backoff on rate
// limit errors and an optional cache in front of the provider.
type Embedder struct {
	client *Client
	model  string
	cache  VectorCache
	logger *slog.Logger
}

// NewEmbedder creates an Embedder. cache may be nil.
func NewEmbedder(client *Client, model string, cache VectorCache, logger *slog.Logger) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{client: client, model: model, cache: cache, logger: logger}
}

// Embed returns the embedding of text. Only vectors of length Dimension are
// cached.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	key := e.cacheKey(text)
	if e.cache != nil {
		vec, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn("Embedding cache read failed", "error", err)
		} else if ok && len(vec) == Dimension {
			return vec, nil
		}
	}

	vec, err := e.embedWithRetry(ctx, text)
	if err != nil {
		return nil, err
	}
	// A wrong length is rejected per record by the index at upload.
	if len(vec) != Dimension {
		e.logger.Warn("Embedding has unexpected dimensions", "got", len(vec), "want", Dimension)
		return vec, nil
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, vec); err != nil {
			e.logger.Warn("Embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// embedWithRetry retries with exponential backoff on rate limit errors (HTTP 429).
// Other errors are treated as permanent and fail immediately.
func (e *Embedder) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				e.logger.Debug("Embedding rate limited, backing off")
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(errors.New("provider returned no embedding"))
		}
		vec = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

func (e *Embedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + e.model + ":" + hex.EncodeToString(sum[:])
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
