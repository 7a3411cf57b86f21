package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"dochub/internal/events"
	"dochub/internal/logger"
	"dochub/internal/storage"
)

// Sweeper deletes stored files older than the retention period.
type Sweeper struct {
	store     storage.Storage
	retention time.Duration
	metrics   *Metrics
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper. A non-positive retention disables expiry.
func NewSweeper(store storage.Storage, retention time.Duration, metrics *Metrics, publisher events.Publisher) *Sweeper {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		metrics:   metrics,
		publisher: publisher,
		log:       logger.Component("sweeper"),
		now:       time.Now,
	}
}

// RunOnce removes every file last modified before now minus the retention
// and returns how many were deleted. Files that vanish mid-sweep are skipped.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.retention)

	removed := 0
	var errs []error
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		removed++
		s.metrics.expiredFile()
		events.Emit(ctx, s.publisher, s.log, events.Event{
			Type:      events.FileExpired,
			FileID:    obj.Key,
			Size:      obj.Size,
			Timestamp: s.now().UTC(),
		})
	}
	s.log.Info().Int("scanned", len(objects)).Int("removed", removed).Int("failed", len(errs)).Msg("sweep_completed")
	return removed, errors.Join(errs...)
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 || interval <= 0 {
		s.log.Info().Msg("expiry_disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("sweep_failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
