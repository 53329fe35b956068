package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/config"
	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the template snapshot store",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.LoadAll()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No stored templates.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tTEMPLATE\tSTORED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Template, e.StoredAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

// exportEntry is the JSON form used by export and import.
type exportEntry struct {
	Key      string          `json:"key"`
	Template intent.Template `json:"template"`
	StoredAt time.Time       `json:"stored_at"`
}

var cacheExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export stored templates as JSON (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.LoadAll()
		if err != nil {
			return err
		}
		out := make([]exportEntry, len(entries))
		for i, e := range entries {
			out[i] = exportEntry{Key: e.Key, Template: e.Template, StoredAt: e.StoredAt}
		}

		var w io.Writer = os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import templates exported with 'cache export'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var in []exportEntry
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		actions, err := cfg.ActionSet()
		if err != nil {
			return err
		}
		entries := make([]intent.Entry, 0, len(in))
		for _, e := range in {
			if err := e.Template.Validate(actions); err != nil {
				return fmt.Errorf("template %q: %w", e.Key, err)
			}
			if e.Template == nil {
				e.Template = intent.Template{}
			}
			entries = append(entries, intent.Entry{Key: e.Key, Template: e.Template, StoredAt: e.StoredAt})
		}
		if err := st.SaveAll(entries); err != nil {
			return err
		}
		fmt.Printf("Imported %d templates.\n", len(entries))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Delete one stored template, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 1 {
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %q.\n", args[0])
			return nil
		}
		if err := st.Clear(); err != nil {
			return err
		}
		fmt.Println("Snapshot store cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheExportCmd, cacheImportCmd, cacheClearCmd)
}

func openStore() (*store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.SnapshotPath == "" {
		return nil, nil, fmt.Errorf("cache.snapshot_path is not configured")
	}
	st, err := store.New(cfg.Cache.SnapshotPath)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}
