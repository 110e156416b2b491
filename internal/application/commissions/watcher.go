package commissions

import (
	"context"
	"errors"
	"sync"

	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/realtime"
	"lion-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNoFeed = errors.New("commissions: change feed not configured")

// Watcher keeps a member's Summary fresh by refetching it on every change to the
// commissions table. The subscription is not filtered by member: any insert, update
// or delete triggers a full refetch. A failed refetch keeps the previous Summary.
type Watcher struct {
	svc      *Service
	userID   uuid.UUID
	sub      realtime.Subscription
	onUpdate func(*Summary)

	mu      sync.RWMutex
	current *Summary

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Watch subscribes to the commissions feed, loads the initial Summary and keeps it
// current until Close is called or ctx ends; either one releases the feed
// subscription. onUpdate, if set, receives every successfully fetched Summary: the
// initial one on the caller's goroutine before Watch returns, later ones on the
// watcher's goroutine.
func (s *Service) Watch(ctx context.Context, userID uuid.UUID, onUpdate func(*Summary)) (*Watcher, error) {
	if s.Feed == nil {
		return nil, ErrNoFeed
	}
	// Subscribe before the first fetch so a change landing in between still
	// triggers a refetch.
	sub, err := s.Feed.Subscribe(ctx, realtime.DefaultSchema, domain.Commission{}.TableName())
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		svc:      s,
		userID:   userID,
		sub:      sub,
		onUpdate: onUpdate,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.refresh(ctx)
	go w.run(ctx)
	return w, nil
}

// Current returns the last successfully fetched Summary, or nil if none succeeded yet.
func (w *Watcher) Current() *Summary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close releases the feed subscription and waits for the refresh loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		err = w.sub.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	events := w.sub.Events()
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			if err := w.sub.Close(); err != nil {
				log.Warn().Err(err).Str("user_id", w.userID.String()).Msg("commissions: closing subscription failed")
			}
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			drain(events)
			w.refresh(ctx)
		}
	}
}

// drain discards events already queued; one refetch covers all of them.
func drain(events <-chan realtime.ChangeEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) {
	summary, err := w.svc.Summary(ctx, w.userID)
	if err != nil {
		metrics.CommissionRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		log.Warn().Err(err).Str("user_id", w.userID.String()).
			Msg("commissions: refresh failed, keeping previous summary")
		return
	}
	metrics.CommissionRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()

	w.mu.Lock()
	w.current = summary
	w.mu.Unlock()

	if w.onUpdate != nil {
		w.onUpdate(summary)
	}
}
