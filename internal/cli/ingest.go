package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir>...",
	Short: "Load policy documents into the retrieval store",
	Long: `Ingest splits policy documents (.txt or .md files) into overlapping
chunks, embeds each chunk, and stores the vectors in the local store used
by the retrieval stage.

Re-ingesting a document replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set (required for embeddings)")
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	files, err := collectPolicyFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt or .md policy documents found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var total int
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		source := filepath.Base(path)
		n, err := rt.store.AddDocument(ctx, source, string(data), cfg.Store.ChunkSize, cfg.Store.ChunkOverlap)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		total += n
		rt.logger.Info("ingested document",
			zap.String("source", source),
			zap.Int("chunks", n))
	}

	count, err := rt.store.ChunkCount()
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d documents (%d chunks); store now holds %d chunks\n",
		len(files), total, count)
	return nil
}

// collectPolicyFiles expands each argument into .txt/.md files
func collectPolicyFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		ext := strings.ToLower(filepath.Ext(path))
		if (ext == ".txt" || ext == ".md") && !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				add(filepath.Join(arg, entry.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
