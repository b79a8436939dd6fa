package execution

import (
	"context"
	"time"

	"nbtp/internal/domain"
	"nbtp/pkg/collect"
)

// Executor runs collected items and returns their results
type Executor interface {
	Execute(ctx context.Context, items []*collect.Item) ([]domain.ItemResult, time.Duration, error)
}

// Progress receives pass/fail counts as items finish
type Progress interface {
	Update(successCount, failCount int)
	Finish()
}
