package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: ollama
  model: llama3
  temperature: 0.7
database:
  backend: memory
processor:
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 4
server:
  port: "9090"
`)

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, 500, cfg.Processor.ChunkSize)
	assert.Equal(t, 50, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("LLM_MODEL_NAME", "")
	t.Setenv("EMBEDDING_MODEL_NAME", "")

	path := writeConfig(t, `
llm:
  provider: openai
`)

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, "pgvector", cfg.Database.Backend)
	assert.Equal(t, "documents", cfg.Database.TableName)
	assert.Equal(t, 1536, cfg.Database.VectorDim)
	assert.Equal(t, 1000, cfg.Processor.ChunkSize)
	assert.Equal(t, 100, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, 32, cfg.Retrieval.FetchK)
	assert.Equal(t, 0.5, cfg.Retrieval.MMRLambda)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "docs", cfg.Server.UploadDir)
}

func TestLoadConfig_EmbeddingInheritsLLMCredentials(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
  api_key: sk-test
  base_url: https://llm.example.com/v1
`)

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "https://llm.example.com/v1", cfg.Embedding.BaseURL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LLM_MODEL_NAME", "gpt-4o")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-3.5-turbo
`)

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not: valid")
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func validConfig() *config.Config {
	cfg, _ := config.LoadConfig("")
	cfg.Database.Backend = "memory"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{
			name:   "bad provider",
			mutate: func(c *config.Config) { c.LLM.Provider = "gemini" },
			field:  "llm.provider",
		},
		{
			name:   "max tokens out of range",
			mutate: func(c *config.Config) { c.LLM.MaxTokens = 10000 },
			field:  "llm.max_tokens",
		},
		{
			name:   "temperature out of range",
			mutate: func(c *config.Config) { c.LLM.Temperature = 2.5 },
			field:  "llm.temperature",
		},
		{
			name:   "bad backend",
			mutate: func(c *config.Config) { c.Database.Backend = "redis" },
			field:  "database.backend",
		},
		{
			name:   "pgvector without url",
			mutate: func(c *config.Config) { c.Database.Backend = "pgvector"; c.Database.URL = "" },
			field:  "database.url",
		},
		{
			name:   "overlap not below chunk size",
			mutate: func(c *config.Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			field:  "processor.chunk_overlap",
		},
		{
			name:   "fetch_k below top_k",
			mutate: func(c *config.Config) { c.Retrieval.FetchK = c.Retrieval.TopK - 1 },
			field:  "retrieval.fetch_k",
		},
		{
			name:   "lambda out of range",
			mutate: func(c *config.Config) { c.Retrieval.MMRLambda = 1.5 },
			field:  "retrieval.mmr_lambda",
		},
		{
			name:   "zero top_k",
			mutate: func(c *config.Config) { c.Retrieval.TopK = 0 },
			field:  "retrieval.top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Validate()
			require.NotEmpty(t, errs)

			fields := make([]string, 0, len(errs))
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
