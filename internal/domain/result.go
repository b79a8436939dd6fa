package domain

import "time"

// ItemResult represents the outcome of running one collected item
type ItemResult struct {
	ID       string        // item id, e.g. "sub/x.ipynb::test_notebook_runs"
	FilePath string        // notebook path relative to the collection root
	Group    string        // enclosing group name, if any
	WorkerID int           // worker that ran the item
	Success  bool          // Whether the item passed
	Err      error         // error returned by the test
	Duration time.Duration // Time taken to run
}

// ResultsMeta contains metadata about a run
type ResultsMeta struct {
	RunID            string  `json:"run_id"`
	TotalFiles       int     `json:"total_files"`
	FailedFiles      int     `json:"failed_files"`
	PassedFiles      int     `json:"passed_files"`
	TotalItems       int     `json:"total_items"`
	PassedItems      int     `json:"passed_items"`
	FailedItems      int     `json:"failed_items"`
	CollectionErrors int     `json:"collection_errors"`
	Duration         string  `json:"duration"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Workers          int     `json:"workers"`
	Timestamp        string  `json:"timestamp"`
}

// Failed reports whether the run should exit non-zero
func (m ResultsMeta) Failed() bool {
	return m.FailedItems > 0 || m.CollectionErrors > 0
}

// ResultsOutput is the complete output structure for a run
type ResultsOutput struct {
	Meta    ResultsMeta `json:"meta"`
	Details []Failure   `json:"details"`
}

// FailedIDs lists the ids of failed items, skipping collection errors
func (o *ResultsOutput) FailedIDs() []string {
	var ids []string
	for _, f := range o.Details {
		if f.Kind == KindFailed {
			ids = append(ids, f.TestName)
		}
	}
	return ids
}

// FailedFiles lists the notebooks with at least one failure of any kind
func (o *ResultsOutput) FailedFiles() map[string]struct{} {
	files := make(map[string]struct{})
	for _, f := range o.Details {
		files[f.FilePath] = struct{}{}
	}
	return files
}
