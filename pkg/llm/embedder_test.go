package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/pkg/llm"
)

func TestNewEmbedderWithConfig_OpenAI(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: "openai",
		APIKey:   "sk-test",
	})

	require.NoError(t, err)
	assert.NotNil(t, embedder)
}

func TestNewEmbedderWithConfig_Ollama(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: "ollama",
		Model:    "nomic-embed-text",
		BaseURL:  "http://localhost:11434",
	})

	require.NoError(t, err)
	assert.NotNil(t, embedder)
}

func TestEmbedDocuments_EmptyInput(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	// No provider call is made for an empty batch.
	vectors, err := embedder.EmbedDocuments(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vectors)
}
