package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleNotebook = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {
  "kernelspec": {"name": "python3", "display_name": "Python 3", "language": "python"}
 },
 "cells": [
  {"cell_type": "markdown", "source": ["# Title\n", "text"]},
  {"cell_type": "code", "execution_count": 1, "source": "x = 1", "outputs": []},
  {"cell_type": "code", "execution_count": 2, "source": ["1/0"], "outputs": [
   {"output_type": "error", "ename": "ZeroDivisionError", "evalue": "division by zero", "traceback": ["line 1"]}
  ]}
 ]
}`

func TestReadNotebook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.ipynb")
	if err := os.WriteFile(path, []byte(sampleNotebook), 0644); err != nil {
		t.Fatal(err)
	}

	nb, err := ReadNotebook(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := nb.Validate(); err != nil {
		t.Errorf("expected valid notebook, got %v", err)
	}
	if nb.Metadata.KernelSpec == nil || nb.Metadata.KernelSpec.Name != "python3" {
		t.Errorf("expected python3 kernelspec, got %+v", nb.Metadata.KernelSpec)
	}
	if got := string(nb.Cells[0].Source); got != "# Title\ntext" {
		t.Errorf("expected joined source, got %q", got)
	}
	if nb.CodeCells() != 2 {
		t.Errorf("expected 2 code cells, got %d", nb.CodeCells())
	}

	idx, out, ok := nb.FirstError()
	if !ok || idx != 2 || out.EName != "ZeroDivisionError" {
		t.Errorf("expected error in cell 2, got idx=%d ok=%v out=%+v", idx, ok, out)
	}
}

func TestParseNotebook_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		parse   bool
	}{
		{name: "not json", content: "nope", parse: false},
		{name: "old format", content: `{"nbformat": 3, "cells": []}`, parse: true},
		{name: "no cells", content: `{"nbformat": 4}`, parse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb, err := ParseNotebook([]byte(tt.content))
			if !tt.parse {
				if err == nil {
					t.Error("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if err := nb.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestReadNotebook_Missing(t *testing.T) {
	if _, err := ReadNotebook(filepath.Join(t.TempDir(), "missing.ipynb")); err == nil {
		t.Error("expected error for missing notebook")
	}
}
