package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nbtp/internal/domain"
)

// BuildOutput computes the run metadata for summary
func BuildOutput(summary Summary) *domain.ResultsOutput {
	failedFiles := make(map[string]bool)
	files := make(map[string]bool)
	passed, failed := 0, 0
	for _, r := range summary.Results {
		files[r.FilePath] = true
		if r.Success {
			passed++
		} else {
			failed++
			failedFiles[r.FilePath] = true
		}
	}
	for _, f := range summary.Failures {
		if f.Kind == domain.KindCollection {
			files[f.FilePath] = true
			failedFiles[f.FilePath] = true
		}
	}

	details := summary.Failures
	if details == nil {
		details = []domain.Failure{}
	}

	return &domain.ResultsOutput{
		Meta: domain.ResultsMeta{
			RunID:            summary.RunID,
			TotalFiles:       len(files),
			FailedFiles:      len(failedFiles),
			PassedFiles:      len(files) - len(failedFiles),
			TotalItems:       len(summary.Results),
			PassedItems:      passed,
			FailedItems:      failed,
			CollectionErrors: summary.CollectionErrors,
			Duration:         summary.Duration.String(),
			DurationSeconds:  summary.Duration.Seconds(),
			Workers:          summary.Workers,
			Timestamp:        time.Now().Format(time.RFC3339),
		},
		Details: details,
	}
}

// Save writes the run results and failures to the configured JSON output file
func (s *JSONStorage) Save(summary Summary) (*domain.ResultsOutput, error) {
	output := BuildOutput(summary)
	if err := s.SaveOutput(output); err != nil {
		return nil, err
	}
	return output, nil
}

// Load reads the last run results from the configured JSON output file
func (s *JSONStorage) Load() (*domain.ResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.ResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file (e.g. after re-running failed items)
func (s *JSONStorage) SaveOutput(output *domain.ResultsOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
