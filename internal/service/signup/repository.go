package signup

import (
	"context"
	"time"

	"github.com/ignite/waitlist/internal/domain"
)

// Repository defines the data access contract for waitlist signups.
// Implementations must enforce uniqueness on the normalized email.
type Repository interface {
	// InsertIfAbsent persists a new signup. If a record with the same
	// normalized email already exists, the existing record is returned
	// with wasNew=false and no error; a duplicate is not a failure.
	InsertIfAbsent(ctx context.Context, s *domain.Signup) (rec *domain.Signup, wasNew bool, err error)

	// MarkNotified flips notification_sent false→true for the given email.
	// The update is conditional: it reports flipped=false when the flag was
	// already true (another handler won the race) and leaves the row alone.
	MarkNotified(ctx context.Context, email string) (flipped bool, err error)

	// GetByEmail returns the signup for a normalized email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.Signup, error)

	// List returns signups ordered newest-first, plus the total count.
	List(ctx context.Context, f ListFilter) ([]domain.Signup, int, error)

	// Count returns the total number of signups on the waitlist.
	Count(ctx context.Context) (int, error)

	// ListUnnotified returns signups still awaiting their notification,
	// created at least minAge ago. Used by the retry worker.
	ListUnnotified(ctx context.Context, minAge time.Duration, limit int) ([]domain.Signup, error)
}

// ListFilter controls pagination for signup lists.
type ListFilter struct {
	Limit  int
	Offset int
}
