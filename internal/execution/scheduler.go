package execution

import "nbtp/pkg/collect"

// Scheduler distributes items across workers
type Scheduler interface {
	Schedule(items []*collect.Item, workerCount int) [][]*collect.Item
}

// FileScheduler keeps every item of a notebook on one worker and deals the
// notebooks out round-robin
type FileScheduler struct{}

// NewFileScheduler creates a new FileScheduler
func NewFileScheduler() *FileScheduler {
	return &FileScheduler{}
}

// Schedule distributes items per file using round-robin. Items keep their
// collection order within each worker
func (s *FileScheduler) Schedule(items []*collect.Item, workerCount int) [][]*collect.Item {
	if workerCount <= 0 {
		workerCount = 1
	}

	distribution := make([][]*collect.Item, workerCount)
	for i := range distribution {
		distribution[i] = make([]*collect.Item, 0)
	}

	worker := make(map[string]int)
	next := 0
	for _, it := range items {
		w, ok := worker[it.File.Path]
		if !ok {
			w = next % workerCount
			worker[it.File.Path] = w
			next++
		}
		distribution[w] = append(distribution[w], it)
	}

	return distribution
}
