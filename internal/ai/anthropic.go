package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClassifier classifies through the Anthropic messages API.
type AnthropicClassifier struct {
	client    *anthropic.Client
	name      string
	model     string
	maxTokens int
	prompt    string
	actions   *intent.ActionSet
}

func NewAnthropicClassifier(p ProviderConfig, actions *intent.ActionSet) (*AnthropicClassifier, error) {
	keys := p.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("provider %s: API key is required", p.Name)
	}

	var opts []anthropic.ClientOption
	if p.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
	}

	model := p.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	name := p.Name
	if name == "" {
		name = TypeAnthropic
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicClassifier{
		client:    anthropic.NewClient(keys[0], opts...),
		name:      name,
		model:     model,
		maxTokens: maxTokens,
		prompt:    SystemPrompt(actions),
		actions:   actions,
	}, nil
}

func (c *AnthropicClassifier) Name() string {
	return c.name
}

func (c *AnthropicClassifier) Classify(ctx context.Context, key string) (intent.Template, error) {
	temperature := float32(0)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      c.prompt,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(key)},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.name, err)
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == anthropic.MessagesContentTypeText {
			sb.WriteString(part.GetText())
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("%s returned no text content", c.name)
	}

	logger.Trace("[Anthropic] %s raw response for %q: %s", c.name, key, sb.String())
	return ParseTemplate(sb.String(), c.actions)
}
