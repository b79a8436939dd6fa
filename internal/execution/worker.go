package execution

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"time"

	"nbtp/internal/config"
	"nbtp/internal/domain"
	"nbtp/pkg/collect"
	"nbtp/pkg/testobj"
)

// WorkerPool manages a pool of workers for parallel item execution
type WorkerPool struct {
	config    *config.Config
	runner    testobj.Executor
	scheduler Scheduler
	progress  Progress
	log       *slog.Logger

	outputDir string
	params    map[string]any
}

var _ Executor = (*WorkerPool)(nil)

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(cfg *config.Config, runner testobj.Executor, scheduler Scheduler, log *slog.Logger) *WorkerPool {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &WorkerPool{
		config:    cfg,
		runner:    runner,
		scheduler: scheduler,
		log:       log,
	}
}

// SetProgress sets the progress bar for the worker pool
func (wp *WorkerPool) SetProgress(progress Progress) {
	wp.progress = progress
}

// SetOutputDir sets where executed notebooks are written. Each notebook's
// relative directory is kept below it
func (wp *WorkerPool) SetOutputDir(dir string) {
	wp.outputDir = dir
}

// SetParameters sets the papermill parameters passed to every notebook
func (wp *WorkerPool) SetParameters(params map[string]any) {
	wp.params = params
}

// Fixtures builds the fixtures it runs with on the given worker
func (wp *WorkerPool) Fixtures(it *collect.Item, workerID int) testobj.Fixtures {
	fx := testobj.Fixtures{
		Executor:   wp.runner,
		Kernel:     wp.config.Kernel,
		Parameters: wp.params,
		ExtraArgs:  wp.config.ExtraArgs,
		Env:        []string{fmt.Sprintf("DB_DATABASE=%s", wp.config.GetDatabaseName(workerID))},
	}
	if wp.outputDir != "" {
		fx.OutputDir = filepath.Join(wp.outputDir, filepath.FromSlash(path.Dir(it.File.RelPath)))
	}
	return fx
}

// RunItem runs one item and records its outcome. A panicking test fails
// the item
func (wp *WorkerPool) RunItem(ctx context.Context, it *collect.Item, workerID int) (result domain.ItemResult) {
	result = domain.ItemResult{
		ID:       it.ID,
		FilePath: it.File.RelPath,
		Group:    it.Group,
		WorkerID: workerID,
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("test panicked: %v", r)
		}
		result.Duration = time.Since(start)
		result.Success = result.Err == nil
		wp.log.Debug("item.done", "id", it.ID, "worker", workerID, "success", result.Success, "duration", result.Duration)
	}()

	log := wp.log.With("worker", workerID, "id", it.ID)
	result.Err = it.Run(ctx, wp.Fixtures(it, workerID), log)
	return result
}

// Execute executes items in parallel using worker pool (no fail-fast)
func (wp *WorkerPool) Execute(ctx context.Context, items []*collect.Item) ([]domain.ItemResult, time.Duration, error) {
	return wp.ExecuteWithOptions(ctx, items, false)
}

// ExecuteWithOptions executes items with optional fail-fast (stop on first
// failure). Results come back in collection order; with fail-fast, items
// that never ran are absent
func (wp *WorkerPool) ExecuteWithOptions(ctx context.Context, items []*collect.Item, failFast bool) ([]domain.ItemResult, time.Duration, error) {
	if len(items) == 0 {
		return nil, 0, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	position := make(map[*collect.Item]int, len(items))
	for i, it := range items {
		position[it] = i
	}
	slots := make([]*domain.ItemResult, len(items))

	workerCount := wp.config.Processors
	if workerCount <= 0 {
		workerCount = 1
	}
	queues := wp.scheduler.Schedule(items, workerCount)

	var mu sync.Mutex
	var passedItems, failedItems int
	var seenFailure bool
	startTime := time.Now()

	var wg sync.WaitGroup
	for i, queue := range queues {
		if len(queue) == 0 {
			continue
		}
		wg.Add(1)
		go func(workerID int, queue []*collect.Item) {
			defer wg.Done()
			for _, it := range queue {
				if ctx.Err() != nil {
					return
				}
				result := wp.RunItem(ctx, it, workerID)
				mu.Lock()
				if failFast && seenFailure {
					mu.Unlock()
					return
				}
				slots[position[it]] = &result
				if result.Success {
					passedItems++
				} else {
					failedItems++
				}
				if wp.progress != nil {
					wp.progress.Update(passedItems, failedItems)
				}
				if failFast && !result.Success {
					seenFailure = true
					cancel()
				}
				mu.Unlock()
			}
		}(i+1, queue)
	}
	wg.Wait()

	if wp.progress != nil {
		wp.progress.Finish()
	}

	allResults := make([]domain.ItemResult, 0, len(items))
	for _, r := range slots {
		if r != nil {
			allResults = append(allResults, *r)
		}
	}
	return allResults, time.Since(startTime), nil
}
