package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/dispatch"
	"github.com/kayz/dogcmd/internal/logger"
	"github.com/kayz/dogcmd/internal/server"
)

var (
	serveAddr    string
	serveStdin   bool
	serveExecute bool
	servePace    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the router over HTTP/WebSocket or stdin",
	Long: `Start the command router.

Endpoints:
  GET  /ws       WebSocket, send {"text": "..."} frames, receive results
  POST /route    {"text": "..."} -> result JSON
  GET  /stats    cache counters
  GET  /health   liveness

With --stdin, one utterance is read per line instead and each result is
written to stdout as a JSON line.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveStdin, "stdin", false, "Read utterances from stdin, one per line")
	serveCmd.Flags().BoolVar(&serveExecute, "execute", false, "Run routed actions through the log executor")
	serveCmd.Flags().BoolVar(&servePace, "pace", false, "With --execute, block for each timed action's duration")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr == "" {
		serveAddr = cfg.Server.Addr
	}

	rt, err := newRuntime(cfg, runtimeOptions{
		allowStdout: !serveStdin,
		execute:     serveExecute,
		pace:        servePace,
		schedule:    true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveStdin {
		return serveLines(ctx, rt.dispatcher)
	}

	srv := server.New(serveAddr, rt.dispatcher)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[Server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("[Server] Stopped")
	return nil
}

// serveLines routes each stdin line until EOF or ctx is done.
func serveLines(ctx context.Context, d *dispatch.Dispatcher) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			res, err := d.Dispatch(ctx, line)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("[Serve] %q: %v", line, err)
				enc.Encode(map[string]string{"input": line, "error": err.Error()})
				continue
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
	}
}
