package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer answers /chat/completions with a fixed content. The first
// rateLimited requests get HTTP 429.
type chatServer struct {
	content     string
	rateLimited int32
	calls       atomic.Int32
	lastBody    atomic.Value
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.calls.Add(1)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.lastBody.Store(body)

	w.Header().Set("Content-Type", "application/json")
	if n <= s.rateLimited {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   body["model"],
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": s.content},
		}},
	})
}

func newTestChat(t *testing.T, s *chatServer) *OpenAIChat {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("sk-test"),
		option.WithMaxRetries(0),
	)
	return NewOpenAIChat(&client, "gpt4o", nil)
}

func TestOpenAIChat_StrictSchema(t *testing.T) {
	s := &chatServer{content: `{"title":"t","instruction":"i","tags":["a","b"],"severity":1}`}
	chat := newTestChat(t, s)

	rec, err := NewExtractor(chat, nil).ExtractPolicy(context.Background(), "policy text")
	require.NoError(t, err)
	assert.Equal(t, "i", rec.Instruction)

	body := s.lastBody.Load().(map[string]any)
	assert.Equal(t, "gpt4o", body["model"])
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "policy_metadata", schema["name"])
	assert.Equal(t, true, schema["strict"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIChat_PlainText(t *testing.T) {
	s := &chatServer{content: "German"}
	chat := newTestChat(t, s)

	answer, err := chat.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, "German", answer)

	body := s.lastBody.Load().(map[string]any)
	_, hasFormat := body["response_format"]
	assert.False(t, hasFormat)
}

func TestOpenAIChat_RetriesRateLimit(t *testing.T) {
	s := &chatServer{content: "English", rateLimited: 1}
	chat := newTestChat(t, s)

	answer, err := chat.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, "English", answer)
	assert.Equal(t, int32(2), s.calls.Load())
}
