package ui

import "nbtp/internal/domain"

// Viewer displays run results in an interactive TUI
type Viewer interface {
	View(results *domain.ResultsOutput) error
}
