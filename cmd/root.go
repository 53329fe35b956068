package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/ai"
	"github.com/kayz/dogcmd/internal/config"
	"github.com/kayz/dogcmd/internal/logger"
)

var (
	logLevel   string
	configPath string
	provider   string
	apiKey     string
	baseURL    string
	model      string
)

var rootCmd = &cobra.Command{
	Use:   "dogcmd",
	Short: "Voice command router for a robot dog",
	Long: `dogcmd turns spoken commands into ordered robot action sequences.

Utterances are normalized, volatile parts (numbers, speech text) are
replaced by placeholders, and the resulting sentence shape is classified
once and cached. Later utterances with the same shape are served from the
cache and filled with their own values.

Modes:
  dogcmd route "sit for 3 seconds"   Route one utterance
  dogcmd serve                       HTTP/WebSocket server
  dogcmd serve --stdin               Route one utterance per stdin line
  dogcmd mcp                         MCP server on stdio
  dogcmd cache list                  Inspect the snapshot store`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Parse and set log level
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default: .dogcmd.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "",
		"Classifier provider: rules, openai, ollama, anthropic (replaces configured providers)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "",
		"Classifier API key")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "",
		"Classifier API base URL")
	rootCmd.PersistentFlags().StringVar(&model, "model", "",
		"Classifier model name")
}

// loadConfig reads the config file and applies command line overrides.
// Priority: command line flag > environment variable > config file.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}

	if !rootCmd.PersistentFlags().Changed("log") && cfg.Logging.Level != "" {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f, cfg.Logging.JSON)
	} else if cfg.Logging.JSON {
		logger.SetOutput(os.Stderr, true)
	}

	applyProviderFlags(cfg)
	return cfg, nil
}

func applyProviderFlags(cfg *config.Config) {
	if provider != "" {
		cfg.Classifier.Providers = []ai.ProviderConfig{{Name: provider, Type: provider}}
	}
	if apiKey == "" && baseURL == "" && model == "" {
		return
	}
	for i := range cfg.Classifier.Providers {
		p := &cfg.Classifier.Providers[i]
		if p.Type == ai.TypeRules || p.Disabled {
			continue
		}
		if apiKey != "" {
			p.APIKey = apiKey
			p.APIKeys = nil
		}
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		if model != "" {
			p.Model = model
		}
		return
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
