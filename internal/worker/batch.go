package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/claimgate/internal/model"
)

// Processor runs one claim submission through the pipeline
type Processor interface {
	Process(ctx context.Context, rawInput string) (*model.ClaimRecord, error)
}

// ClaimJob processes a single claim file
type ClaimJob struct {
	Path      string
	Processor Processor
}

// Execute reads the claim file and runs it through the pipeline
func (j *ClaimJob) Execute(ctx context.Context) Result {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return &ClaimResult{Path: j.Path, Error: fmt.Errorf("read claim file: %w", err)}
	}

	record, err := j.Processor.Process(ctx, string(data))
	return &ClaimResult{
		Path:   j.Path,
		Record: record,
		Error:  err,
	}
}

// ClaimResult is the outcome of one claim job
type ClaimResult struct {
	Path   string
	Record *model.ClaimRecord
	Error  error
}

// GetError returns the error from the claim result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple claim files concurrently.
// Each claim is an independent pipeline run; only collaborator
// admission is shared between them.
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessPaths processes the given claim files concurrently
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*ClaimResult {
	if len(paths) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&ClaimJob{
			Path:      path,
			Processor: b.processor,
		})
	}

	results := pool.Wait()

	claimResults := make([]*ClaimResult, len(results))
	for i, result := range results {
		claimResults[i] = result.(*ClaimResult)
	}

	return claimResults
}

// CollectClaimFiles resolves a batch input into claim file paths.
// A directory yields its *.json files; a .json file is a single claim;
// any other file is a list of paths, one per line (# comments allowed).
func CollectClaimFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(input, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("glob claim files: %w", err)
		}
		sort.Strings(matches)
		return matches, nil
	}

	if strings.HasSuffix(input, ".json") {
		return []string{input}, nil
	}

	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan list file: %w", err)
	}

	return paths, nil
}
