// Package signup implements the record-and-notify pipeline behind the
// waitlist form.
//
// One submission flows through two independent steps: an idempotent insert
// keyed on the normalized email, then (for deployments that deliver a
// lead-magnet document) at most one notification dispatch guarded by the
// notification_sent flag. A notification failure never rolls back the
// persisted signup; a duplicate email is a soft success, never an error.
//
// The service layer contains pure business logic and depends on the
// Repository and Notifier interfaces defined in this package. It never
// imports net/http or database/sql directly.
package signup
