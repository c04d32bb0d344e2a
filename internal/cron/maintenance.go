package cron

import (
	"context"
	"time"

	"github.com/kayz/slidefit/internal/logger"
)

// HistoryPruner deletes stored generations older than a cutoff.
type HistoryPruner interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

// AuditCleaner removes expired prompt audit files.
type AuditCleaner interface {
	CleanupOldAuditFiles() error
}

// PruneHistoryTask drops generations older than retentionDays.
func PruneHistoryTask(p HistoryPruner, retentionDays int, now func() time.Time) Task {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		if retentionDays <= 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.PruneBefore(now().AddDate(0, 0, -retentionDays))
		if err != nil {
			return err
		}
		logger.Debug("[Cron] pruned %d generations", n)
		return nil
	}
}

// CleanupAuditTask removes prompt audit files past their retention.
func CleanupAuditTask(c AuditCleaner) Task {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return c.CleanupOldAuditFiles()
	}
}
