package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Notebook is the subset of an nbformat document the tool inspects
type Notebook struct {
	Path          string           `json:"-"`
	NBFormat      int              `json:"nbformat"`
	NBFormatMinor int              `json:"nbformat_minor"`
	Metadata      NotebookMetadata `json:"metadata"`
	Cells         []Cell           `json:"cells"`

	// Doc is the whole document decoded generically, for jsonpath queries
	Doc any `json:"-"`
}

// NotebookMetadata holds kernel information
type NotebookMetadata struct {
	KernelSpec   *KernelSpec   `json:"kernelspec,omitempty"`
	LanguageInfo *LanguageInfo `json:"language_info,omitempty"`
}

// KernelSpec identifies the kernel a notebook was saved with
type KernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
}

// LanguageInfo describes the notebook language
type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Cell is a notebook cell
type Cell struct {
	CellType       string   `json:"cell_type"`
	Source         Source   `json:"source"`
	ExecutionCount *int     `json:"execution_count,omitempty"`
	Outputs        []Output `json:"outputs,omitempty"`
}

// Output is a code cell output
type Output struct {
	OutputType string   `json:"output_type"`
	Name       string   `json:"name,omitempty"`
	EName      string   `json:"ename,omitempty"`
	EValue     string   `json:"evalue,omitempty"`
	Traceback  []string `json:"traceback,omitempty"`
}

// Source is cell source; nbformat stores it as a string or a list of lines
type Source string

func (s *Source) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Source(str)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("cell source must be a string or list of strings: %w", err)
	}
	*s = Source(strings.Join(lines, ""))
	return nil
}

// ReadNotebook loads and decodes the notebook at path
func ReadNotebook(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading notebook %s: %w", path, err)
	}
	nb, err := ParseNotebook(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing notebook %s: %w", path, err)
	}
	nb.Path = path
	return nb, nil
}

// ParseNotebook decodes nbformat JSON
func ParseNotebook(data []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &nb.Doc); err != nil {
		return nil, err
	}
	return &nb, nil
}

// Validate checks the document is an nbformat 4+ notebook
func (n *Notebook) Validate() error {
	if n.NBFormat < 4 {
		return fmt.Errorf("unsupported nbformat %d (need 4 or later)", n.NBFormat)
	}
	doc, ok := n.Doc.(map[string]any)
	if !ok {
		return fmt.Errorf("notebook is not a JSON object")
	}
	if _, ok := doc["cells"].([]any); !ok {
		return fmt.Errorf("notebook has no cells array")
	}
	return nil
}

// CodeCells counts code cells
func (n *Notebook) CodeCells() int {
	count := 0
	for _, c := range n.Cells {
		if c.CellType == "code" {
			count++
		}
	}
	return count
}

// FirstError returns the index of the first cell with an error output
func (n *Notebook) FirstError() (int, *Output, bool) {
	for i, c := range n.Cells {
		for j := range c.Outputs {
			if c.Outputs[j].OutputType == "error" {
				return i, &c.Outputs[j], true
			}
		}
	}
	return -1, nil, false
}
