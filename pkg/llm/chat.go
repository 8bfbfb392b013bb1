package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/askdocs/askdocs/internal/models"
)

// NoContextAnswer is returned verbatim when a question retrieves no chunks.
// The model is never called in that case.
const NoContextAnswer = "No relevant documents were found to answer this question."

// DefaultNonAnswers are model replies that must not be returned directly;
// they trigger the summary fallback instead. Matching is done on the
// trimmed, lowercased answer.
var DefaultNonAnswers = []string{
	"i don't know",
	"i dont know",
	"unknown",
	"not sure",
	"",
}

const (
	defaultMapTemplate = `Use the following excerpt from a document to answer the question.
If the excerpt does not contain the answer, reply with "I don't know".

Excerpt:
%s

Question: %s

Answer:`

	defaultCombineTemplate = `The following partial answers were produced from separate document excerpts.
Combine them into a single final answer to the question.
If none of them answer the question, reply with "I don't know".

Partial answers:
%s

Question: %s

Final answer:`

	defaultSummaryTemplate = `Summarize the following document content briefly:

%s`
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider        string // "openai" (default) or "ollama"
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxTokens       int
	MapTemplate     string
	CombineTemplate string
	SummaryTemplate string
	NonAnswers      []string
}

// ChatEngine synthesizes answers from retrieved chunks with a map-reduce
// strategy: each chunk is answered against independently, then the partial
// answers are combined. A vague or empty final answer is replaced by a brief
// summary of the retrieved content, so callers always get something useful
// when any context was found.
type ChatEngine struct {
	config     ChatConfig
	llm        llms.Model
	nonAnswers map[string]struct{}
}

// NewWithConfig creates a ChatEngine backed by the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	model, err := newChatModel(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return NewWithModel(model, config)
}

// NewWithModel creates a ChatEngine around an existing model. Used by tests
// and by callers that build the model themselves.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.MapTemplate == "" {
		config.MapTemplate = defaultMapTemplate
	}
	if config.CombineTemplate == "" {
		config.CombineTemplate = defaultCombineTemplate
	}
	if config.SummaryTemplate == "" {
		config.SummaryTemplate = defaultSummaryTemplate
	}
	if len(config.NonAnswers) == 0 {
		config.NonAnswers = DefaultNonAnswers
	}

	nonAnswers := make(map[string]struct{}, len(config.NonAnswers))
	for _, s := range config.NonAnswers {
		nonAnswers[normalizeAnswer(s)] = struct{}{}
	}

	return &ChatEngine{
		config:     config,
		llm:        model,
		nonAnswers: nonAnswers,
	}, nil
}

func newChatModel(config ChatConfig) (llms.Model, error) {
	switch config.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		return ollama.New(opts...)
	default:
		opts := []openai.Option{openai.WithModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		return openai.New(opts...)
	}
}

// Answer produces an answer to the question from the retrieved chunks.
// With no chunks it returns NoContextAnswer without calling the model.
func (ce *ChatEngine) Answer(ctx context.Context, question string, docs []models.Chunk) (string, error) {
	if len(docs) == 0 {
		return NoContextAnswer, nil
	}

	answer, err := ce.mapReduce(ctx, question, docs)
	if err != nil {
		return "", err
	}

	if _, vague := ce.nonAnswers[normalizeAnswer(answer)]; !vague {
		return answer, nil
	}

	// The model declined to answer; fall back to summarizing whatever
	// context was retrieved instead of echoing the non-answer.
	return ce.summarize(ctx, docs)
}

func (ce *ChatEngine) mapReduce(ctx context.Context, question string, docs []models.Chunk) (string, error) {
	partials := make([]string, 0, len(docs))
	for _, doc := range docs {
		prompt := fmt.Sprintf(ce.config.MapTemplate, doc.Content, question)
		partial, err := ce.generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("chat error: %w", err)
		}
		partials = append(partials, strings.TrimSpace(partial))
	}

	prompt := fmt.Sprintf(ce.config.CombineTemplate, strings.Join(partials, "\n- "), question)
	answer, err := ce.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (ce *ChatEngine) summarize(ctx context.Context, docs []models.Chunk) (string, error) {
	var combined strings.Builder
	for i, doc := range docs {
		if i > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(doc.Content)
	}

	prompt := fmt.Sprintf(ce.config.SummaryTemplate, combined.String())
	summary, err := ce.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summary fallback error: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func (ce *ChatEngine) generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
