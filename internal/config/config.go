// Package config holds the typed configuration for the indexing jobs and the
// retrieval server. Values come from an optional YAML file and are then
// overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate when one or more settings are missing or wrong.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	BackendQdrant = "qdrant"
	BackendMemory = "memory"

	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	ModeChunk     = "chunk"
	ModeParagraph = "paragraph"

	ServerModeStdio = "stdio"
	ServerModeHTTP  = "http"
)

// SearchServiceConfig describes the vector-search service and the two index names.
type SearchServiceConfig struct {
	Backend       string `yaml:"backend"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	UseTLS        bool   `yaml:"use_tls"`
	DocumentIndex string `yaml:"document_index"`
	PolicyIndex   string `yaml:"policy_index"`
}

// LLMProviderConfig describes the chat and embedding provider.
// For Azure, ChatModel and EmbeddingModel are deployment names.
type LLMProviderConfig struct {
	Provider       string  `yaml:"provider"`
	Endpoint       string  `yaml:"endpoint"`
	APIKey         string  `yaml:"api_key"`
	APIVersion     string  `yaml:"api_version"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// IndexingConfig controls the folder batch jobs.
type IndexingConfig struct {
	DocumentFolder   string `yaml:"document_folder"`
	PolicyFolder     string `yaml:"policy_folder"`
	Mode             string `yaml:"mode"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
	SkipIndexed      bool   `yaml:"skip_indexed"`
}

// RetrievalConfig holds query-time knobs and the two transitional toggles.
type RetrievalConfig struct {
	// StaticPolicyFallback replaces policy listing results with the fixed topic list.
	StaticPolicyFallback bool `yaml:"static_policy_fallback"`
	// EnforceGroupFilter composes the group filter into document and language-aware searches.
	EnforceGroupFilter bool `yaml:"enforce_group_filter"`

	DocumentK     int `yaml:"document_k"`
	DocumentTop   int `yaml:"document_top"`
	PolicyListK   int `yaml:"policy_list_k"`
	PolicySearchK int `yaml:"policy_search_k"`
}

// CacheConfig configures the optional Redis embedding cache. An empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Port      string `yaml:"port"`
	Mode      string `yaml:"mode"`
	Stateless bool   `yaml:"stateless"`
}

// Config is the root configuration passed to components at construction.
type Config struct {
	Search    SearchServiceConfig `yaml:"search"`
	LLM       LLMProviderConfig   `yaml:"llm"`
	Indexing  IndexingConfig      `yaml:"indexing"`
	Retrieval RetrievalConfig     `yaml:"retrieval"`
	Cache     CacheConfig         `yaml:"cache"`
	Server    ServerConfig        `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Search: SearchServiceConfig{
			Backend:       BackendQdrant,
			Host:          "localhost",
			Port:          6334,
			DocumentIndex: "legal-documents",
			PolicyIndex:   "legal-instructions",
		},
		LLM: LLMProviderConfig{
			Provider:       ProviderOpenAI,
			APIVersion:     "2024-06-01",
			ChatModel:      "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			MaxTokens:      16000,
		},
		Indexing: IndexingConfig{
			DocumentFolder:   "contract_documents",
			PolicyFolder:     "policy_documents",
			Mode:             ModeChunk,
			EmbedConcurrency: 4,
			SkipIndexed:      true,
		},
		Retrieval: RetrievalConfig{
			StaticPolicyFallback: true,
			DocumentK:            50,
			DocumentTop:          10,
			PolicyListK:          10,
			PolicySearchK:        1,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Port: "8080",
			Mode: ServerModeStdio,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("SEARCH_BACKEND", &c.Search.Backend)
	str("QDRANT_HOST", &c.Search.Host)
	num("QDRANT_PORT", &c.Search.Port)
	str("QDRANT_API_KEY", &c.Search.APIKey)
	flag("QDRANT_USE_TLS", &c.Search.UseTLS)
	str("DOCUMENT_INDEX", &c.Search.DocumentIndex)
	str("POLICY_INDEX", &c.Search.PolicyIndex)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("CHAT_MODEL", &c.LLM.ChatModel)
	str("EMBEDDING_MODEL", &c.LLM.EmbeddingModel)
	if c.LLM.Provider == ProviderAzure {
		str("AZURE_OPENAI_ENDPOINT", &c.LLM.Endpoint)
		str("AZURE_OPENAI_API_KEY", &c.LLM.APIKey)
		str("AZURE_OPENAI_API_VERSION", &c.LLM.APIVersion)
	} else {
		str("OPENAI_BASE_URL", &c.LLM.Endpoint)
		str("OPENAI_API_KEY", &c.LLM.APIKey)
	}

	str("DOCUMENT_FOLDER", &c.Indexing.DocumentFolder)
	str("POLICY_FOLDER", &c.Indexing.PolicyFolder)
	str("INDEXING_MODE", &c.Indexing.Mode)

	flag("STATIC_POLICY_FALLBACK", &c.Retrieval.StaticPolicyFallback)
	flag("ENFORCE_GROUP_FILTER", &c.Retrieval.EnforceGroupFilter)

	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.Password)

	str("PORT", &c.Server.Port)
	str("SERVER_MODE", &c.Server.Mode)
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Search.Backend {
	case BackendQdrant:
		if c.Search.Host == "" {
			problems = append(problems, "search.host is required")
		}
		if c.Search.Port <= 0 {
			problems = append(problems, "search.port must be positive")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("search.backend %q is not one of qdrant, memory", c.Search.Backend))
	}
	if c.Search.DocumentIndex == "" {
		problems = append(problems, "search.document_index is required")
	}
	if c.Search.PolicyIndex == "" {
		problems = append(problems, "search.policy_index is required")
	}
	if c.Search.DocumentIndex != "" && c.Search.DocumentIndex == c.Search.PolicyIndex {
		problems = append(problems, "search.document_index and search.policy_index must differ")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required")
		}
	case ProviderAzure:
		if c.LLM.Endpoint == "" {
			problems = append(problems, "AZURE_OPENAI_ENDPOINT is required")
		}
		if c.LLM.APIKey == "" {
			problems = append(problems, "AZURE_OPENAI_API_KEY is required")
		}
		if c.LLM.APIVersion == "" {
			problems = append(problems, "llm.api_version is required for azure")
		}
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not one of openai, azure", c.LLM.Provider))
	}
	if c.LLM.ChatModel == "" {
		problems = append(problems, "llm.chat_model is required")
	}
	if c.LLM.EmbeddingModel == "" {
		problems = append(problems, "llm.embedding_model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be within [0, 2]")
	}

	if c.Indexing.Mode != ModeChunk && c.Indexing.Mode != ModeParagraph {
		problems = append(problems, fmt.Sprintf("indexing.mode %q is not one of chunk, paragraph", c.Indexing.Mode))
	}
	if c.Indexing.EmbedConcurrency <= 0 {
		problems = append(problems, "indexing.embed_concurrency must be positive")
	}

	for name, v := range map[string]int{
		"retrieval.document_k":      c.Retrieval.DocumentK,
		"retrieval.document_top":    c.Retrieval.DocumentTop,
		"retrieval.policy_list_k":   c.Retrieval.PolicyListK,
		"retrieval.policy_search_k": c.Retrieval.PolicySearchK,
	} {
		if v <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}

	if c.Server.Mode != ServerModeStdio && c.Server.Mode != ServerModeHTTP {
		problems = append(problems, fmt.Sprintf("server.mode %q is not one of stdio, http", c.Server.Mode))
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
