package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
)

// languageSampleTokens bounds how much text is sent for language detection.
const languageSampleTokens = 1000

// LanguageDetector reports the language of a text.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (legal.Language, error)
}

// DetectLanguage asks the model whether text is English or German.
func (e *Extractor) DetectLanguage(ctx context.Context, text string) (legal.Language, error) {
	sample := truncate(text, languageSampleTokens, e.logger)
	answer, err := e.completer.Complete(ctx, CompletionRequest{
		System:      languageSystemPrompt,
		User:        fmt.Sprintf(languageUserPrompt, sample),
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("detect language: %w", ErrEmptyAnswer)
	}
	return legal.ParseLanguage(answer), nil
}

// DetectOrDefault runs detection and falls back to English on any failure.
func DetectOrDefault(ctx context.Context, d LanguageDetector, text string, logger *slog.Logger) legal.Language {
	if logger == nil {
		logger = slog.Default()
	}
	lang, err := d.DetectLanguage(ctx, text)
	if err != nil {
		logger.Warn("Language detection failed, defaulting to English", "error", err)
		return legal.English
	}
	return lang
}

// SearchIntents rewrites a question into a comma separated list of three
// search intents.
func (e *Extractor) SearchIntents(ctx context.Context, question string) (string, error) {
	answer, err := e.completer.Complete(ctx, CompletionRequest{
		System:      intentsPrompt,
		User:        e.truncateContent(question),
		Temperature: e.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("search intents: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("search intents: %w", ErrEmptyAnswer)
	}
	return answer, nil
}
