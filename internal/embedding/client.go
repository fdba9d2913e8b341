package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
)

// Client wraps the OpenAI client shared by embedding and chat calls.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI or Azure OpenAI client from the provider settings.
// SDK retries are disabled; callers retry rate limits with their own backoff.
func NewClient(cfg config.LLMProviderConfig) (*Client, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	switch cfg.Provider {
	case config.ProviderAzure:
		if cfg.Endpoint == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("azure endpoint and api key are required")
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case config.ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., metadata extraction).
func (c *Client) Client() *openai.Client {
	return c.client
}
