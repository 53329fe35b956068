package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	routeExecute bool
	routeKeyOnly bool
)

var routeCmd = &cobra.Command{
	Use:   "route <utterance...>",
	Short: "Route one utterance and print the result",
	Long: `Route one utterance through the template cache and print the result
as JSON. Routed actions are also published to the configured publishers.

Examples:
  dogcmd route "sit for 3 seconds then bark twice"
  dogcmd route --key "Say hello to 42 friends"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().BoolVar(&routeExecute, "execute", false, "Run routed actions through the log executor")
	routeCmd.Flags().BoolVar(&routeKeyOnly, "key", false, "Only print the template key and extracted values")
}

func runRoute(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// the result is printed below; a stdout publisher would print it twice
	rt, err := newRuntime(cfg, runtimeOptions{execute: routeExecute})
	if err != nil {
		return err
	}
	defer rt.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if routeKeyOnly {
		return enc.Encode(rt.engine.Abstract(text))
	}

	res, err := rt.dispatcher.Dispatch(context.Background(), text)
	if err != nil {
		return fmt.Errorf("route %q: %w", text, err)
	}
	return enc.Encode(res)
}
