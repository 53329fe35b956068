package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kayz/dogcmd/internal/ai"
	"github.com/kayz/dogcmd/internal/config"
	"github.com/kayz/dogcmd/internal/mcptool"
	"github.com/kayz/dogcmd/internal/store"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".dogcmd.yaml")
	content := "cache:\n  snapshot_path: " + filepath.Join(dir, "templates.db") + "\n" +
		"publish:\n  stdout: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRuntimePersistsAndPreloads(t *testing.T) {
	path := writeTestConfig(t)
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	rt, err := newRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.dispatcher.Dispatch(context.Background(), "sit for 3 seconds"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	rt.Close()

	st, err := store.New(cfg.Cache.SnapshotPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	n, err := st.Count()
	st.Close()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 persisted template, got %d (%v)", n, err)
	}

	rt, err = newRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer rt.Close()
	res, err := rt.dispatcher.Dispatch(context.Background(), "sit for 8 seconds")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.CacheHit {
		t.Fatalf("expected preloaded template to serve a cache hit")
	}
	if v, _ := res.Actions[0].Param("duration"); v != 8 {
		t.Fatalf("unexpected duration: %#v", v)
	}
}

func TestRuntimeRestartKeepsStoredAt(t *testing.T) {
	cfg, err := config.LoadFromPath(writeTestConfig(t))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	storedAt := func() time.Time {
		t.Helper()
		st, err := store.New(cfg.Cache.SnapshotPath)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		defer st.Close()
		entries, err := st.LoadAll()
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected 1 stored entry, got %d (%v)", len(entries), err)
		}
		return entries[0].StoredAt
	}

	rt, err := newRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.dispatcher.Dispatch(context.Background(), "bark 2 times"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	rt.Close()
	first := storedAt()

	time.Sleep(10 * time.Millisecond)
	rt, err = newRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	rt.Close()
	if second := storedAt(); !second.Equal(first) {
		t.Fatalf("restart re-stamped the template: %v -> %v", first, second)
	}
}

func TestApplyProviderFlags(t *testing.T) {
	defer func() { provider, apiKey, baseURL, model = "", "", "", "" }()

	cfg := config.DefaultConfig()
	cfg.Classifier.Providers = []ai.ProviderConfig{
		{Name: "rules", Type: ai.TypeRules},
		{Name: "gpt", Type: ai.TypeOpenAI, APIKey: "file", APIKeys: []string{"spare"}},
	}
	apiKey, model = "flag", "gpt-4o"
	applyProviderFlags(cfg)

	p := cfg.Classifier.Providers[1]
	if p.APIKey != "flag" || len(p.APIKeys) != 0 || p.Model != "gpt-4o" {
		t.Fatalf("flags not applied: %#v", p)
	}
	if cfg.Classifier.Providers[0].APIKey != "" {
		t.Fatalf("rules provider should be left alone")
	}

	provider = ai.TypeOllama
	apiKey, model = "", ""
	applyProviderFlags(cfg)
	if len(cfg.Classifier.Providers) != 1 || cfg.Classifier.Providers[0].Type != ai.TypeOllama {
		t.Fatalf("--provider should replace the provider list: %#v", cfg.Classifier.Providers)
	}
}

func TestBenchOneWithRules(t *testing.T) {
	cfg := config.DefaultConfig()
	actions, err := cfg.ActionSet()
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	r := benchOne(ai.NewRules("rules", actions), "sit for <VAR1> then say <TEXT>", time.Second)
	if r.Status != "PASS" || len(r.Template) != 2 {
		t.Fatalf("unexpected bench result: %#v", r)
	}
}

func TestVersionVerboseShowsClassifierChain(t *testing.T) {
	oldPath, oldVerbose := configPath, versionVerbose
	defer func() { configPath, versionVerbose = oldPath, oldVerbose }()
	configPath = writeTestConfig(t)
	versionVerbose = true

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"dogcmd " + mcptool.ServerVersion, "rules/rules", "cache ttl:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("version output missing %q:\n%s", want, out)
		}
	}
}
