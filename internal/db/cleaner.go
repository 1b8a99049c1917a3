package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StartAssignmentCleaner deletes stale device assignments with interval.
// An assignment not touched by a resolve within the retention window is
// dropped, so a returning device gets a fresh allocation.
func StartAssignmentCleaner(
	ctx context.Context,
	db *sql.DB,
	dialect Dialect,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	query := `
                    DELETE FROM assignments
                     WHERE last_seen < $1
                `
	if dialect == SQLite {
		query = strings.ReplaceAll(query, "$1", "?")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, query, cutoff)
				if err != nil {
					log.Error("failed to clean stale assignments", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned stale assignments", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
