package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		answer string
		want   legal.Language
	}{
		{"German", legal.German},
		{"  german.\n", legal.German},
		{"English", legal.English},
		{"French", legal.English},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			fc := &fakeCompleter{answers: []string{tt.answer}}
			lang, err := NewExtractor(fc, nil).DetectLanguage(context.Background(), "Die Reisekosten werden erstattet.")
			require.NoError(t, err)
			assert.Equal(t, tt.want, lang)

			req := fc.requests[0]
			assert.Equal(t, languageSystemPrompt, req.System)
			assert.Contains(t, req.User, "Die Reisekosten werden erstattet.")
			assert.Zero(t, req.Temperature)
			assert.Nil(t, req.Schema)
		})
	}
}

func TestDetectLanguage_EmptyAnswer(t *testing.T) {
	fc := &fakeCompleter{answers: []string{"  "}}
	_, err := NewExtractor(fc, nil).DetectLanguage(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestDetectOrDefault_FallsBackToEnglish(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("timeout")}
	lang := DetectOrDefault(context.Background(), NewExtractor(fc, nil), "Die Parteien vereinbaren", nil)
	assert.Equal(t, legal.English, lang)
}

func TestDetectOrDefault_UsesDetection(t *testing.T) {
	fc := &fakeCompleter{answers: []string{"German"}}
	lang := DetectOrDefault(context.Background(), NewExtractor(fc, nil), "Die Parteien vereinbaren", nil)
	assert.Equal(t, legal.German, lang)
}

func TestSearchIntents(t *testing.T) {
	fc := &fakeCompleter{answers: []string{" payment terms, late fees, invoice deadlines \n"}}
	intents, err := NewExtractor(fc, nil).SearchIntents(context.Background(), "When do we have to pay?")
	require.NoError(t, err)
	assert.Equal(t, "payment terms, late fees, invoice deadlines", intents)
	assert.Equal(t, intentsPrompt, fc.requests[0].System)
	assert.Equal(t, "When do we have to pay?", fc.requests[0].User)
}

func TestSearchIntents_Errors(t *testing.T) {
	_, err := NewExtractor(&fakeCompleter{answers: []string{""}}, nil).SearchIntents(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	boom := errors.New("boom")
	_, err = NewExtractor(&fakeCompleter{err: boom}, nil).SearchIntents(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}
