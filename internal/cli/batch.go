package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimgate/internal/worker"
)

var (
	batchWorkers int
	batchOutput  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir-or-list>",
	Short: "Process many claims concurrently",
	Long: `Batch processes a set of claim files through the pipeline using a worker
pool. The argument is either a directory (all *.json files inside), a single
.json file, or a list file with one claim path per line ('#' comments allowed).

Each claim runs independently; one claim's failure never blocks the rest.
Results are written as a JSON array to --output, or stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "concurrent workers (default from config)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(batchCmd)
}

// batchEntry is one claim's outcome in the batch report
type batchEntry struct {
	Path   string           `json:"path"`
	Record *json.RawMessage `json:"record,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchWorkers > 0 {
		cfg.Concurrency.Workers = batchWorkers
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	paths, err := worker.CollectClaimFiles(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no claim files found in %s", args[0])
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt.logger.Info("starting batch",
		zap.Int("claims", len(paths)),
		zap.Int("workers", cfg.Concurrency.Workers))

	processor := worker.NewBatchProcessor(rt.pipeline, cfg.Concurrency.Workers)
	results := processor.ProcessPaths(ctx, paths)

	entries := make([]batchEntry, 0, len(results))
	var failed int
	for _, res := range results {
		entry := batchEntry{Path: res.Path}
		if res.Error != nil {
			entry.Error = res.Error.Error()
			failed++
		} else {
			if err := rt.store.RecordDecision(res.Record, rt.pipeline.ProviderName(), rt.pipeline.ModelName()); err != nil {
				rt.logger.Warn("failed to record decision",
					zap.String("path", res.Path), zap.Error(err))
			}
			raw, err := json.Marshal(res.Record)
			if err != nil {
				entry.Error = err.Error()
				failed++
			} else {
				msg := json.RawMessage(raw)
				entry.Record = &msg
			}
		}
		entries = append(entries, entry)
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch report: %w", err)
	}

	if batchOutput != "" {
		if err := os.WriteFile(batchOutput, append(out, '\n'), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Processed %d claims (%d failed), report written to %s\n",
			len(entries), failed, batchOutput)
	} else {
		fmt.Println(string(out))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d claims failed", failed, len(entries))
	}
	return nil
}
