package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGC reclaims value-log space periodically. Badger never runs this on
// its own; without it a long-lived chat server grows unbounded on disk.
type BadgerGC struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewBadgerGC(log *slog.Logger, db *badger.DB, interval time.Duration) *BadgerGC {
	return &BadgerGC{log: log, db: db, interval: interval}
}

func (w *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// RunValueLogGC rewrites at most one log file per call;
			// loop until it reports nothing left to collect.
			for {
				if err := w.db.RunValueLogGC(0.5); err != nil {
					if err != badger.ErrNoRewrite {
						w.log.Warn("Value log GC failed", "error", err)
					}
					break
				}
				w.log.Debug("Value log file collected")
			}
		}
	}
}
