package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kayz/dogcmd/internal/ai"
	"github.com/kayz/dogcmd/internal/intent"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Logging    LoggingConfig       `yaml:"logging"`
	Cache      CacheConfig         `yaml:"cache"`
	Engine     EngineConfig        `yaml:"engine"`
	Defaults   intent.Defaults     `yaml:"defaults"`
	Synonyms   map[string]string   `yaml:"synonyms,omitempty"`
	Actions    []intent.ActionSpec `yaml:"actions,omitempty"`
	Classifier ClassifierConfig    `yaml:"classifier"`
	Publish    PublishConfig       `yaml:"publish,omitempty"`
	Server     ServerConfig        `yaml:"server,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// CacheConfig configures the template cache and its snapshot store.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	// SnapshotPath is the SQLite file templates are persisted to. Empty
	// disables persistence.
	SnapshotPath string `yaml:"snapshot_path,omitempty"`
	// SnapshotSchedule is a cron expression (5 or 6 fields) or @every spec.
	SnapshotSchedule string `yaml:"snapshot_schedule,omitempty"`
	// Preload warms the cache from the snapshot store at startup.
	Preload bool `yaml:"preload"`
}

type EngineConfig struct {
	// UnknownPolicy is "drop" or "report".
	UnknownPolicy    string        `yaml:"unknown_policy"`
	MinutesToSeconds bool          `yaml:"minutes_to_seconds"`
	ClassifyTimeout  time.Duration `yaml:"classify_timeout"`
}

type ClassifierConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
	// ProvidersFile points to an extra providers.yaml appended after Providers.
	ProvidersFile string              `yaml:"providers_file,omitempty"`
	Providers     []ai.ProviderConfig `yaml:"providers,omitempty"`
}

type PublishConfig struct {
	Stdout       bool   `yaml:"stdout"`
	WebSocketURL string `yaml:"websocket_url,omitempty"`
	Token        string `yaml:"token,omitempty"`
	// Topics maps an action name (or "default") to a topic.
	Topics map[string]string `yaml:"topics,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			TTLSeconds:       int(intent.DefaultTTL / time.Second),
			SnapshotPath:     filepath.Join(ConfigDir(), "templates.db"),
			SnapshotSchedule: "@every 5m",
			Preload:          true,
		},
		Engine: EngineConfig{
			UnknownPolicy:   "drop",
			ClassifyTimeout: intent.DefaultClassifyTimeout,
		},
		Defaults: intent.DefaultDefaults(),
		Synonyms: intent.DefaultSynonyms(),
		Actions:  intent.DefaultActionSpecs(),
		Classifier: ClassifierConfig{
			Cooldown: time.Minute,
			Providers: []ai.ProviderConfig{
				{Name: "rules", Type: ai.TypeRules},
			},
		},
		Publish: PublishConfig{
			Stdout: true,
			Topics: map[string]string{"default": "intent/hat"},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8686",
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".dogcmd")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".dogcmd.yaml")
}

func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads a YAML config over the defaults. A missing file yields
// the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.Classifier.ProvidersFile != "" {
		extra, err := ai.LoadProviders(cfg.Classifier.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.Classifier.Providers = append(cfg.Classifier.Providers, extra...)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadRaw reads path over the defaults without environment overrides or the
// providers file, for rewriting the config on disk.
func LoadRaw(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides provider keys and the publish token from the
// environment. Priority: command line flag > environment variable > config file.
func (c *Config) applyEnv() {
	for i := range c.Classifier.Providers {
		p := &c.Classifier.Providers[i]
		var env string
		switch strings.ToLower(p.Type) {
		case ai.TypeOpenAI:
			env = os.Getenv("OPENAI_API_KEY")
		case ai.TypeAnthropic:
			env = os.Getenv("ANTHROPIC_API_KEY")
		}
		if env != "" {
			p.APIKey = env
			p.APIKeys = nil
			continue
		}
		if len(p.Keys()) == 0 && p.Type != ai.TypeRules && p.Type != ai.TypeOllama {
			p.APIKey = os.Getenv("DOGCMD_API_KEY")
		}
	}
	if token := os.Getenv("DOGCMD_PUBLISH_TOKEN"); token != "" {
		c.Publish.Token = token
	}
	if level := os.Getenv("DOGCMD_LOG"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the parts of the config the engine depends on.
func (c *Config) Validate() error {
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative")
	}
	if _, err := c.ActionSet(); err != nil {
		return err
	}
	if _, err := c.Normalizer(); err != nil {
		return err
	}
	if _, err := intent.ParseUnknownPolicy(c.Engine.UnknownPolicy); err != nil {
		return err
	}
	return nil
}

// ActionSet builds the configured action vocabulary.
func (c *Config) ActionSet() (*intent.ActionSet, error) {
	return intent.NewActionSet(c.Actions)
}

// Normalizer builds the configured synonym normalizer.
func (c *Config) Normalizer() (*intent.Normalizer, error) {
	return intent.NewNormalizer(c.Synonyms)
}

// TTL returns the cache time-to-live.
func (c *Config) TTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return intent.DefaultTTL
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
