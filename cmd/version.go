package cmd

import (
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/mcptool"
)

var build = "unknown"

var versionVerbose bool

// SetBuild sets the build string from main
func SetBuild(b string) {
	build = b
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dogcmd %s (%s, %s)\n", mcptool.ServerVersion, build, goruntime.Version())
		if !versionVerbose {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var chain []string
		for _, p := range cfg.Classifier.Providers {
			if !p.Disabled {
				chain = append(chain, p.Name+"/"+p.Type)
			}
		}
		fmt.Fprintf(out, "  classifiers: %s\n", strings.Join(chain, " -> "))
		fmt.Fprintf(out, "  cache ttl:   %s\n", cfg.TTL())
		if cfg.Cache.SnapshotPath != "" {
			fmt.Fprintf(out, "  snapshots:   %s (%s)\n", cfg.Cache.SnapshotPath, cfg.Cache.SnapshotSchedule)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Also show the configured classifier chain and cache")
	rootCmd.AddCommand(versionCmd)
}
