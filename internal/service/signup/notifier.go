package signup

import (
	"context"

	"github.com/ignite/waitlist/internal/domain"
)

// Notifier delivers the lead-magnet email for a persisted signup.
//
// Implementations own their transport (SES, SMTP, a stub in tests) and any
// provider-side retries. Send returns nil only on a confirmed accept;
// errors that leave delivery in doubt should wrap ErrAmbiguousDelivery.
// The service treats every error as "not sent" for flag purposes.
type Notifier interface {
	Send(ctx context.Context, s *domain.Signup) error
}
