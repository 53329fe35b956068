package ai

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kayz/dogcmd/internal/intent"
)

// Provider types understood by the registry.
const (
	TypeRules     = "rules"
	TypeOpenAI    = "openai"
	TypeOllama    = "ollama"
	TypeAnthropic = "anthropic"
)

// ProviderConfig describes one classifier backend.
type ProviderConfig struct {
	Name      string        `yaml:"name"`
	Type      string        `yaml:"type"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	APIKeys   []string      `yaml:"api_keys,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	MaxTokens int           `yaml:"max_tokens,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Disabled  bool          `yaml:"disabled,omitempty"`
}

// Keys returns the non-blank API keys, api_key first.
func (p *ProviderConfig) Keys() []string {
	var keys []string
	if k := strings.TrimSpace(p.APIKey); k != "" {
		keys = append(keys, k)
	}
	for _, k := range p.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

type providersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadProviders reads a providers.yaml file.
func LoadProviders(path string) ([]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var pf providersFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return pf.Providers, nil
}

// NewClassifier builds the classifier for a single provider.
func NewClassifier(p ProviderConfig, actions *intent.ActionSet) (Classifier, error) {
	switch strings.ToLower(p.Type) {
	case TypeRules, "":
		return NewRules(p.Name, actions), nil
	case TypeOpenAI, TypeOllama:
		return NewOpenAIClassifier(p, actions)
	case TypeAnthropic:
		return NewAnthropicClassifier(p, actions)
	default:
		return nil, fmt.Errorf("unknown classifier type %q for provider %q", p.Type, p.Name)
	}
}

// Build turns the configured providers into a failover router. Disabled
// providers are skipped; with nothing left the rule-based classifier is used.
func Build(providers []ProviderConfig, actions *intent.ActionSet, cooldown time.Duration) (*Router, error) {
	var classifiers []Classifier
	for _, p := range providers {
		if p.Disabled {
			continue
		}
		c, err := NewClassifier(p, actions)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, c)
	}
	if len(classifiers) == 0 {
		classifiers = append(classifiers, NewRules("rules", actions))
	}
	return NewRouter(classifiers, cooldown), nil
}
