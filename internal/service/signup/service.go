package signup

import (
	"context"
	"errors"
	"log"

	"github.com/ignite/waitlist/internal/domain"
)

// Service implements the record-and-notify pipeline. It is safe for
// concurrent use: all state lives in the repository.
type Service struct {
	repo     Repository
	notifier Notifier // nil for the plain-waitlist variant
}

// NewService creates a signup service. Pass a nil notifier for deployments
// that only collect addresses and send nothing.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Result is the structured outcome of one submission. Err carries the
// underlying cause for the *_failed outcomes; it is informational for
// logging and never re-raised across the persist/notify boundary.
type Result struct {
	Outcome domain.Outcome
	Signup  *domain.Signup
	Err     error
}

// HandleSubmission normalizes and records one waitlist submission, then
// dispatches the notification email if this deployment sends one.
//
// The returned error is non-nil only for validation failures
// (ErrInvalidEmail); infrastructure failures are reported through the
// Result so a flaky email provider can never surface as an unhandled fault.
func (s *Service) HandleSubmission(ctx context.Context, email, referenceURL string) (*Result, error) {
	if !domain.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	rec := &domain.Signup{
		Email:        domain.NormalizeEmail(email),
		ReferenceURL: domain.CleanReferenceURL(referenceURL),
	}

	rec, wasNew, err := s.repo.InsertIfAbsent(ctx, rec)
	if err != nil {
		return &Result{Outcome: domain.OutcomePersistFailed, Err: err}, nil
	}

	if s.notifier == nil {
		if wasNew {
			return &Result{Outcome: domain.OutcomeCreated, Signup: rec}, nil
		}
		return &Result{Outcome: domain.OutcomeAlreadyExists, Signup: rec}, nil
	}

	return s.notify(ctx, rec), nil
}

// Retry re-attempts the notification for an already-persisted signup.
// Used by the retry worker; submissions from the form go through
// HandleSubmission, which reaches the same guard.
func (s *Service) Retry(ctx context.Context, rec *domain.Signup) *Result {
	if s.notifier == nil {
		return &Result{Outcome: domain.OutcomeAlreadyExists, Signup: rec}
	}
	return s.notify(ctx, rec)
}

// List returns signups newest-first plus the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Signup, int, error) {
	return s.repo.List(ctx, f)
}

// Count returns the total number of waitlist signups.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// notify dispatches at most one notification for the record. The
// notification_sent flag is the guard: already-true skips dispatch, and the
// flip is a conditional update so concurrent handlers cannot both claim it.
func (s *Service) notify(ctx context.Context, rec *domain.Signup) *Result {
	if rec.NotificationSent {
		return &Result{Outcome: domain.OutcomeAlreadyNotified, Signup: rec}
	}

	if err := s.notifier.Send(ctx, rec); err != nil {
		if errors.Is(err, ErrAmbiguousDelivery) {
			log.Printf("[signup] ambiguous delivery for signup %s, flag left unset: %v", rec.ID, err)
		}
		// The record stays persisted and the flag stays false so a later
		// submission or the retry worker can try again.
		return &Result{Outcome: domain.OutcomeNotifyFailed, Signup: rec, Err: err}
	}

	flipped, err := s.repo.MarkNotified(ctx, rec.Email)
	if err != nil {
		// The email went out but the flag write failed. A retry may
		// double-send; that beats silently never sending.
		log.Printf("[signup] sent but failed to mark notified for signup %s: %v", rec.ID, err)
		return &Result{Outcome: domain.OutcomeNotifiedNow, Signup: rec, Err: err}
	}
	if !flipped {
		log.Printf("[signup] concurrent notification detected for signup %s", rec.ID)
	}

	rec.NotificationSent = true
	return &Result{Outcome: domain.OutcomeNotifiedNow, Signup: rec}
}
