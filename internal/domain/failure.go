package domain

import "fmt"

// Failure kinds
const (
	KindFailed     = "failed"
	KindCollection = "collection"
)

// Failure represents a failed item or a file that could not be collected
type Failure struct {
	TestName  string   `json:"test_name"` // item id, or the file for collection errors
	FilePath  string   `json:"file_path"`
	Group     string   `json:"group,omitempty"`
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Cell      int      `json:"cell,omitempty"` // 1-based, 0 when unknown
	EName     string   `json:"ename,omitempty"`
	EValue    string   `json:"evalue,omitempty"`
	Traceback []string `json:"traceback,omitempty"`
	Output    string   `json:"output,omitempty"`
	Resolved  bool     `json:"resolved,omitempty"` // Track if the failure is marked as resolved
}

// Location is "<file>:cell N" when the failing cell is known
func (f Failure) Location() string {
	if f.Cell > 0 {
		return fmt.Sprintf("%s:cell %d", f.FilePath, f.Cell)
	}
	return f.FilePath
}
