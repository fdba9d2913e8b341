package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Search.Backend = config.BackendMemory
	cfg.LLM.APIKey = "sk-test"
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	assert.NotNil(t, a.Job)
	assert.NotNil(t, a.Retrieval)
	assert.NotNil(t, a.Intents)
	assert.NotNil(t, a.Compliance)
	require.NoError(t, a.Search.Health(ctx))

	require.NoError(t, a.EnsureIndexes(ctx))
	require.NoError(t, a.EnsureIndexes(ctx), "existing indexes are left alone")

	indexed, err := a.Documents.IsIndexed(ctx, "msa.docx")
	require.NoError(t, err)
	assert.False(t, indexed)

	report, err := a.Compliance.Report(ctx, "msa.docx")
	require.NoError(t, err)
	assert.Empty(t, report.Chunks)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Search.Backend = "elastic"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_MissingAPIKey(t *testing.T) {
	cfg := memoryConfig()
	cfg.LLM.APIKey = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  backend: memory\nindexing:\n  mode: paragraph\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Search.Backend)
	assert.Equal(t, config.ModeParagraph, cfg.Indexing.Mode)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: grpc\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-env")

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
