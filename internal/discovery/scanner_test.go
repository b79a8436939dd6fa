package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	// Create notebook tree
	files := []string{
		"analysis/intro.ipynb",
		"analysis/deep/model.ipynb",
		"analysis/.ipynb_checkpoints/intro-checkpoint.ipynb",
		"reports/summary.ipynb",
		"reports/summary.output.ipynb",
		"venv/lib/site.ipynb",
		"node_modules/pkg/readme.ipynb",
		"notes.md",
		"analysis/nbtest.yaml",
		"nbtest.yaml",
	}
	for _, file := range files {
		fullPath := filepath.Join(tmpDir, file)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	scanner := NewScanner([]string{"venv", "node_modules"})

	t.Run("scans notebooks correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{
			filepath.Join(tmpDir, "analysis", "deep", "model.ipynb"),
			filepath.Join(tmpDir, "analysis", "intro.ipynb"),
			filepath.Join(tmpDir, "reports", "summary.ipynb"),
		}
		if len(results) != len(expected) {
			t.Fatalf("expected %d notebooks, got %d: %v", len(expected), len(results), results)
		}
		for i := range expected {
			if results[i] != expected[i] {
				t.Errorf("result %d: expected %s, got %s", i, expected[i], results[i])
			}
		}
	})

	t.Run("finds config files parents first", func(t *testing.T) {
		results, err := scanner.FindConfigs(tmpDir, "nbtest.yaml")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 config files, got %d", len(results))
		}
		if filepath.Dir(results[0]) != tmpDir {
			t.Errorf("expected root config first, got %s", results[0])
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(tmpDir, "notes.md"))
		if err == nil {
			t.Error("expected error for file path")
		}
	})
}

func TestScanner_HiddenRootIsScanned(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), ".hidden")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "a.ipynb"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 notebook, got %d", len(results))
	}
}
