package data

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const maxBackoff = 5 * time.Minute

// SnapshotFetcher produces a complete snapshot. *Fetcher implements it.
type SnapshotFetcher interface {
	FetchAll(ctx context.Context) (*Snapshot, error)
}

// Refresher manages periodic data refresh cycles in the background.
type Refresher struct {
	store    *Store
	fetcher  SnapshotFetcher
	interval time.Duration
	logger   *logrus.Logger
}

// NewRefresher creates a new refresh manager.
func NewRefresher(store *Store, fetcher SnapshotFetcher, interval time.Duration, logger *logrus.Logger) *Refresher {
	return &Refresher{
		store:    store,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Refresh runs a single fetch and publishes the snapshot on success. The store is
// left untouched when the fetch fails.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.logger.Info("Starting data refresh")

	snapshot, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to refresh data")
		return err
	}

	r.store.Set(snapshot)

	r.logger.WithFields(logrus.Fields{
		"channels":   len(snapshot.Playlist.Channels),
		"programmes": snapshot.Guide.Programmes(),
	}).Info("Data refresh completed successfully")
	return nil
}

// Start runs the refresh cycle until the context is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	current := r.interval
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresh manager shutting down")
			return
		case <-ticker.C:
			next := r.scheduleNextRefresh(r.Refresh(ctx))
			if next != current {
				current = next
				ticker.Reset(current)
			}
		}
	}
}

func (r *Refresher) scheduleNextRefresh(lastError error) time.Duration {
	if lastError == nil {
		return r.interval
	}

	backoffDuration := r.interval / 2
	if backoffDuration > maxBackoff {
		backoffDuration = maxBackoff
	}

	r.logger.WithField("interval", backoffDuration).Warn("Using backoff interval due to refresh error")
	return backoffDuration
}
