// Package worker runs the background notification retry sweep.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/ignite/waitlist/internal/config"
	"github.com/ignite/waitlist/internal/domain"
	"github.com/ignite/waitlist/internal/pkg/logger"
	"github.com/ignite/waitlist/internal/service/signup"
)

// NotifyRetryWorker periodically re-dispatches notifications for signups
// that were persisted but never received their lead-magnet email (provider
// outage, timeout, process crash between send and flag write).
//
// The sweep only picks up records older than MinAge so it never races the
// request-path dispatch for a signup that is still being handled.
type NotifyRetryWorker struct {
	svc  *signup.Service
	repo signup.Repository
	cfg  config.WorkerConfig
}

// NewNotifyRetryWorker creates the retry sweep worker.
func NewNotifyRetryWorker(svc *signup.Service, repo signup.Repository, cfg config.WorkerConfig) *NotifyRetryWorker {
	return &NotifyRetryWorker{svc: svc, repo: repo, cfg: cfg}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *NotifyRetryWorker) Start(ctx context.Context) {
	log.Printf("[worker] notify retry sweep every %s (min age %s, batch %d)",
		w.cfg.Interval(), w.cfg.MinAge(), w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] notify retry sweep stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep re-attempts one batch of unnotified signups.
func (w *NotifyRetryWorker) sweep(ctx context.Context) {
	pending, err := w.repo.ListUnnotified(ctx, w.cfg.MinAge(), w.cfg.BatchSize)
	if err != nil {
		log.Printf("[worker] list unnotified: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	var sent, failed int
	for i := range pending {
		rec := pending[i]
		res := w.svc.Retry(ctx, &rec)
		switch res.Outcome {
		case domain.OutcomeNotifiedNow:
			sent++
		case domain.OutcomeAlreadyNotified:
			// Another handler got there first; nothing to do.
		default:
			failed++
			log.Printf("[worker] retry failed for %s: %v", logger.RedactEmail(rec.Email), res.Err)
		}

		if ctx.Err() != nil {
			return
		}
	}

	log.Printf("[worker] sweep done: %d pending, %d sent, %d failed", len(pending), sent, failed)
}
