package engine

import (
	"context"
	"log"
	"time"

	"github.com/portero-acs/portero/internal/portero/store"
)

// LogPruner deletes access-log records older than a configurable retention
// period.  It runs as a scheduled job, not its own loop.
//
// A retention of 0 disables pruning entirely.
type LogPruner struct {
	store     store.AccessLogStore
	retention time.Duration
	logger    *log.Logger
}

func NewLogPruner(s store.AccessLogStore, retentionDays int, logger *log.Logger) *LogPruner {
	return &LogPruner{
		store:     s,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// Enabled reports whether the pruner should be scheduled at all.
func (p *LogPruner) Enabled() bool { return p.retention > 0 }

// Prune runs one retention pass.
func (p *LogPruner) Prune(ctx context.Context) {
	if !p.Enabled() {
		return
	}
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("access log prune error: %v", err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("access log prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
}
