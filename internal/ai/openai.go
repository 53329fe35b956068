package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

const (
	defaultOllamaURL   = "http://localhost:11434/v1"
	defaultOllamaModel = "gemma3:4b"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultMaxTokens   = 300
)

// OpenAIClassifier classifies through any OpenAI-compatible chat API,
// including Ollama's /v1 endpoint.
type OpenAIClassifier struct {
	client    *openai.Client
	name      string
	model     string
	maxTokens int
	prompt    string
	actions   *intent.ActionSet
}

// NewOpenAIClassifier creates an OpenAI-compatible classifier. Ollama needs
// no API key; OpenAI does.
func NewOpenAIClassifier(p ProviderConfig, actions *intent.ActionSet) (*OpenAIClassifier, error) {
	isOllama := strings.EqualFold(p.Type, TypeOllama)

	apiKey := ""
	if keys := p.Keys(); len(keys) > 0 {
		apiKey = keys[0]
	}
	if apiKey == "" {
		if !isOllama {
			return nil, fmt.Errorf("provider %s: API key is required", p.Name)
		}
		apiKey = "ollama"
	}

	model := p.Model
	baseURL := p.BaseURL
	if isOllama {
		if model == "" {
			model = defaultOllamaModel
		}
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
	} else if model == "" {
		model = defaultOpenAIModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	name := p.Name
	if name == "" {
		name = strings.ToLower(p.Type)
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAIClassifier{
		client:    openai.NewClientWithConfig(config),
		name:      name,
		model:     model,
		maxTokens: maxTokens,
		prompt:    SystemPrompt(actions),
		actions:   actions,
	}, nil
}

func (c *OpenAIClassifier) Name() string {
	return c.name
}

func (c *OpenAIClassifier) Classify(ctx context.Context, key string) (intent.Template, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompt},
			{Role: openai.ChatMessageRoleUser, Content: key},
		},
		MaxTokens: c.maxTokens,
		// omitempty drops an exact zero
		Temperature: math.SmallestNonzeroFloat32,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", c.name)
	}

	content := resp.Choices[0].Message.Content
	logger.Trace("[OpenAI] %s raw response for %q: %s", c.name, key, content)
	return ParseTemplate(content, c.actions)
}
