package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/claimgate/internal/model"
)

// mockProcessor implements Processor
type mockProcessor struct {
	shouldError bool
}

func (m *mockProcessor) Process(ctx context.Context, rawInput string) (*model.ClaimRecord, error) {
	if m.shouldError {
		return nil, errors.New("pipeline error")
	}
	rec := model.NewClaimRecord(rawInput)
	rec.CurrentStage = "finalized"
	rec.FinalDecision = model.DecisionApproved
	return rec, nil
}

func writeClaimFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()

	paths := make([]string, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(`{"claim_id": "CLM-`+name+`"}`), 0644); err != nil {
			t.Fatalf("write claim file: %v", err)
		}
		paths[i] = path
	}
	return paths
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	dir := t.TempDir()
	paths := writeClaimFiles(t, dir, "a.json", "b.json", "c.json")

	processor := NewBatchProcessor(&mockProcessor{}, 2)
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
			continue
		}
		if res.Record == nil || res.Record.FinalDecision != model.DecisionApproved {
			t.Errorf("unexpected record for %s: %+v", res.Path, res.Record)
		}
	}
}

func TestBatchProcessor_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := writeClaimFiles(t, dir, "good.json")
	paths = append(paths, filepath.Join(dir, "missing.json"))

	processor := NewBatchProcessor(&mockProcessor{}, 2)
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var failures int
	for _, res := range results {
		if res.Error != nil {
			failures++
			if !strings.Contains(res.Error.Error(), "read claim file") {
				t.Errorf("unexpected error: %v", res.Error)
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestBatchProcessor_EmptyInput(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 2)
	results := processor.ProcessPaths(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestCollectClaimFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	writeClaimFiles(t, dir, "b.json", "a.json")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	paths, err := CollectClaimFiles(dir)
	if err != nil {
		t.Fatalf("CollectClaimFiles failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 json files, got %v", paths)
	}
	// Sorted order
	if !strings.HasSuffix(paths[0], "a.json") || !strings.HasSuffix(paths[1], "b.json") {
		t.Errorf("expected sorted paths, got %v", paths)
	}
}

func TestCollectClaimFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	paths := writeClaimFiles(t, dir, "one.json")

	got, err := CollectClaimFiles(paths[0])
	if err != nil {
		t.Fatalf("CollectClaimFiles failed: %v", err)
	}
	if len(got) != 1 || got[0] != paths[0] {
		t.Errorf("expected single claim path, got %v", got)
	}
}

func TestCollectClaimFiles_ListFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "claims.list")

	content := `# pending claims
claims/a.json
claims/b.json

claims/a.json
`
	if err := os.WriteFile(list, []byte(content), 0644); err != nil {
		t.Fatalf("write list file: %v", err)
	}

	paths, err := CollectClaimFiles(list)
	if err != nil {
		t.Fatalf("CollectClaimFiles failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 deduped paths, got %v", paths)
	}
	if paths[0] != "claims/a.json" || paths[1] != "claims/b.json" {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestCollectClaimFiles_Missing(t *testing.T) {
	if _, err := CollectClaimFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing input")
	}
}
