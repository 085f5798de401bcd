package domain

import (
	"regexp"
	"strings"
	"time"
)

// Signup represents a single waitlist entry. The email is the natural unique
// key: at most one row exists per normalized (trimmed, lowercased) address.
type Signup struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	ReferenceURL     *string    `json:"reference_url" db:"reference_url"`
	NotificationSent bool       `json:"notification_sent" db:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty" db:"notified_at"`
}

// Outcome classifies the result of handling one submission.
type Outcome string

const (
	// OutcomeCreated means a new record was persisted (notification disabled).
	OutcomeCreated Outcome = "created"
	// OutcomeAlreadyExists means the email was already on the list
	// (notification disabled). Presented to the user as success.
	OutcomeAlreadyExists Outcome = "already_exists"
	// OutcomeNotifiedNow means the record was resolved and the notification
	// email was dispatched on this call.
	OutcomeNotifiedNow Outcome = "notified_now"
	// OutcomeAlreadyNotified means the record had already received its
	// notification; dispatch was skipped.
	OutcomeAlreadyNotified Outcome = "already_notified"
	// OutcomeNotifyFailed means the record is persisted but the notification
	// could not be delivered. The flag stays false so a retry can succeed.
	OutcomeNotifyFailed Outcome = "notify_failed"
	// OutcomePersistFailed means the storage layer rejected the insert for a
	// reason other than a duplicate.
	OutcomePersistFailed Outcome = "persist_failed"
)

// IsNew reports whether this outcome created a fresh record on this call.
func (o Outcome) IsNew() bool {
	return o == OutcomeCreated || o == OutcomeNotifiedNow
}

// emailPattern matches the local@domain.tld shape the landing form accepts.
// Intentionally permissive: real deliverability is decided by the mailbox
// provider, not by us.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims surrounding whitespace and lowercases the address so
// that " User@Example.com " and "user@example.com" collide on the unique key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the address passes syntactic validation after
// trimming. An empty string is never valid.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// CleanReferenceURL trims the optional reference URL and collapses empty
// input to nil. Format is not enforced beyond that: no landing-page variant
// treats a malformed URL as a hard submission failure.
func CleanReferenceURL(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}
