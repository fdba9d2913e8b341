package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

// IntentRewriter turns a question into a short list of search intents.
type IntentRewriter interface {
	SearchIntents(ctx context.Context, question string) (string, error)
}

// Embedder turns one text into one vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IntentEmbedder builds query vectors from rewritten search intents. When
// rewriting fails the question itself is embedded.
type IntentEmbedder struct {
	rewriter IntentRewriter
	embedder Embedder
	logger   *slog.Logger
}

// NewIntentEmbedder creates an IntentEmbedder. rewriter may be nil, in which
// case questions are embedded as given.
func NewIntentEmbedder(rewriter IntentRewriter, embedder Embedder, logger *slog.Logger) *IntentEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentEmbedder{rewriter: rewriter, embedder: embedder, logger: logger}
}

// QueryVector returns the embedding used for a question and the text that
// was embedded.
func (e *IntentEmbedder) QueryVector(ctx context.Context, question string) ([]float32, string, error) {
	text := question
	if e.rewriter != nil {
		intents, err := e.rewriter.SearchIntents(ctx, question)
		if err != nil {
			e.logger.Warn("Search intent rewrite failed, embedding question", "error", err)
		} else {
			text = intents
		}
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("query embedding: %w", err)
	}
	return vec, text, nil
}
