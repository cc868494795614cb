package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/function"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/logger"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/server"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [event.json]",
	Short: "Handle a single cloud function HTTP event",
	Long: `Read a cloud function HTTP event (JSON) from a file or stdin,
run it through the same pipeline as the server and print the
function response (JSON) to stdout. Logs go to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	cfg.Server.Mode = "release"
	cfg.Metrics.Enabled = false

	// stdout 只输出函数响应
	cfg.Log.Output = "stderr"
	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	raw, err := readEvent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var ev function.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("invalid event JSON: %w", err)
	}

	srv, err := server.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	resp, err := function.Handle(cmd.Context(), srv.Engine(), &ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

func readEvent(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read event from stdin: %w", err)
		}
		return raw, nil
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return raw, nil
}
