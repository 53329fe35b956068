package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/ai"
	"github.com/kayz/dogcmd/internal/config"
	"github.com/kayz/dogcmd/internal/intent"
)

var (
	benchTimeout int
	benchProbe   string

	toggleName string
)

type benchResult struct {
	Name     string
	Status   string
	Detail   string
	Latency  time.Duration
	Template intent.Template
}

var classifiersCmd = &cobra.Command{
	Use:     "classifiers",
	Aliases: []string{"models"},
	Short:   "Classifier provider tools (status, bench, enable, disable)",
}

var classifierStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured classifier providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println("Classifier providers (failover order):")
		for _, p := range cfg.Classifier.Providers {
			status := "enabled"
			if p.Disabled {
				status = "disabled"
			}
			key := "-"
			if p.Type != ai.TypeRules {
				key = "missing"
				if len(p.Keys()) > 0 || p.Type == ai.TypeOllama {
					key = "set"
				}
			}
			modelName := p.Model
			if modelName == "" {
				modelName = "default"
			}
			fmt.Printf("- %s [%s] type=%s model=%s key=%s\n", p.Name, status, p.Type, modelName, key)
		}
		fmt.Printf("Cooldown after failure: %s\n", cfg.Classifier.Cooldown)
		return nil
	},
}

var classifierBenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Classify a probe key with every enabled provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runClassifierBench(cfg)
	},
}

var classifierDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable a provider in the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(toggleName) == "" {
			return fmt.Errorf("--name is required")
		}
		return toggleProvider(toggleName, false)
	},
}

var classifierEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-enable a provider in the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(toggleName) == "" {
			return fmt.Errorf("--name is required")
		}
		return toggleProvider(toggleName, true)
	},
}

func init() {
	rootCmd.AddCommand(classifiersCmd)

	classifiersCmd.AddCommand(classifierStatusCmd)
	classifiersCmd.AddCommand(classifierBenchCmd)
	classifiersCmd.AddCommand(classifierDisableCmd)
	classifiersCmd.AddCommand(classifierEnableCmd)

	classifierBenchCmd.Flags().IntVar(&benchTimeout, "timeout", 20, "Per-provider bench timeout in seconds")
	classifierBenchCmd.Flags().StringVar(&benchProbe, "probe", "sit for <VAR1> then say <TEXT>", "Template key to classify")

	classifierDisableCmd.Flags().StringVar(&toggleName, "name", "", "Provider name")
	classifierEnableCmd.Flags().StringVar(&toggleName, "name", "", "Provider name")
}

func runClassifierBench(cfg *config.Config) error {
	actions, err := cfg.ActionSet()
	if err != nil {
		return err
	}

	var results []benchResult
	for _, p := range cfg.Classifier.Providers {
		if p.Disabled {
			results = append(results, benchResult{Name: p.Name, Status: "SKIP", Detail: "disabled"})
			continue
		}
		c, err := ai.NewClassifier(p, actions)
		if err != nil {
			results = append(results, benchResult{Name: p.Name, Status: "FAIL", Detail: err.Error()})
			continue
		}
		results = append(results, benchOne(c, benchProbe, time.Duration(benchTimeout)*time.Second))
	}
	if len(results) == 0 {
		return fmt.Errorf("no classifier providers configured")
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Status == results[j].Status {
			return results[i].Name < results[j].Name
		}
		return results[i].Status < results[j].Status
	})

	pass := 0
	fmt.Printf("Bench probe: %q\n", benchProbe)
	for _, r := range results {
		if r.Status == "PASS" {
			pass++
		}
		lat := ""
		if r.Latency > 0 {
			lat = fmt.Sprintf(" (%s)", r.Latency.Truncate(time.Millisecond))
		}
		fmt.Printf("- %s: %s%s - %s\n", r.Name, r.Status, lat, r.Detail)
	}
	fmt.Printf("Summary: pass=%d fail=%d\n", pass, len(results)-pass)
	return nil
}

func benchOne(c ai.Classifier, key string, timeout time.Duration) benchResult {
	result := benchResult{Name: c.Name(), Status: "FAIL"}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	tpl, err := c.Classify(ctx, key)
	result.Latency = time.Since(start)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	if len(tpl) == 0 {
		result.Detail = "empty template"
		return result
	}
	result.Status = "PASS"
	result.Detail = tpl.String()
	result.Template = tpl
	return result
}

func toggleProvider(name string, enabled bool) error {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadRaw(path)
	if err != nil {
		return err
	}

	found := false
	for i := range cfg.Classifier.Providers {
		p := &cfg.Classifier.Providers[i]
		if strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name)) {
			p.Disabled = !enabled
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("provider %s not found", name)
	}
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	if enabled {
		fmt.Printf("Provider enabled: %s\n", name)
	} else {
		fmt.Printf("Provider disabled: %s\n", name)
	}
	return nil
}
