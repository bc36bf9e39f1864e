package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var processCmd = &cobra.Command{
	Use:   "process <claim.json>",
	Short: "Run a single claim through the adjudication pipeline",
	Long: `Process reads one claim submission (JSON file, or '-' for stdin), runs it
through every pipeline stage, records the decision in the store, and prints
the completed claim record as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	raw, err := readClaimInput(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := rt.pipeline.Process(ctx, string(raw))
	if err != nil {
		return fmt.Errorf("process claim: %w", err)
	}

	if err := rt.store.RecordDecision(rec, rt.pipeline.ProviderName(), rt.pipeline.ModelName()); err != nil {
		rt.logger.Warn("failed to record decision", zap.Error(err))
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// readClaimInput reads a claim file, or stdin when path is "-"
func readClaimInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claim file: %w", err)
	}
	return data, nil
}
