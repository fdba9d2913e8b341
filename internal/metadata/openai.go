package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// DefaultChatModel is used when no chat model or deployment is configured.
const DefaultChatModel = "gpt-4o"

// OpenAIChat is a Completer backed by the chat completions API.
type OpenAIChat struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIChat creates a completer for the given model. On Azure the model
// is the deployment name.
func NewOpenAIChat(client *openai.Client, model string, logger *slog.Logger) *OpenAIChat {
	if model == "" {
		model = DefaultChatModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIChat{client: client, model: model, logger: logger}
}

// Complete sends one system+user turn. Rate limits are retried with
// exponential backoff; every other error is returned as is.
func (c *OpenAIChat) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name,
					Schema: req.Schema.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	var content string
	operation := func() error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				c.logger.Debug("Chat completion rate limited, backing off")
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyAnswer)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return content, nil
}
