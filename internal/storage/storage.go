package storage

import (
	"time"

	"nbtp/internal/config"
	"nbtp/internal/domain"
)

// Summary is everything a finished run produced
type Summary struct {
	RunID            string
	Results          []domain.ItemResult
	Failures         []domain.Failure // item failures followed by collection errors
	CollectionErrors int
	Duration         time.Duration
	Workers          int
}

// Storage persists and loads run results (e.g. for the faills viewer)
type Storage interface {
	Save(summary Summary) (*domain.ResultsOutput, error)
	Load() (*domain.ResultsOutput, error)
	// SaveOutput writes the full output (e.g. after partial re-run updates)
	SaveOutput(output *domain.ResultsOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
