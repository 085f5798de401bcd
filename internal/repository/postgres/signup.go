package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/waitlist/internal/domain"
	"github.com/ignite/waitlist/internal/service/signup"
)

// SignupRepo implements signup.Repository against PostgreSQL.
//
// Uniqueness is enforced by a unique index on lower(email), so concurrent
// duplicate inserts resolve to a single row, and MarkNotified is a
// conditional update so only one handler can flip the flag.
type SignupRepo struct{ db *sql.DB }

// NewSignupRepo creates a Postgres-backed signup repository.
func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{db: db} }

func (r *SignupRepo) InsertIfAbsent(ctx context.Context, s *domain.Signup) (*domain.Signup, bool, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	rec := &domain.Signup{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO waitlist_signups (id, email, reference_url, notification_sent, created_at)
		VALUES ($1, $2, $3, false, NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, reference_url, notification_sent, created_at, notified_at
	`, s.ID, s.Email, s.ReferenceURL).Scan(
		&rec.ID, &rec.Email, &rec.ReferenceURL, &rec.NotificationSent, &rec.CreatedAt, &rec.NotifiedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert signup: %w", err)
	}

	// Conflict: the email is already on the list. Not an error; resolve
	// to the existing record.
	existing, err := r.GetByEmail(ctx, s.Email)
	if err != nil {
		return nil, false, fmt.Errorf("resolve existing signup: %w", err)
	}
	return existing, false, nil
}

func (r *SignupRepo) MarkNotified(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE waitlist_signups
		SET notification_sent = true, notified_at = NOW()
		WHERE lower(email) = lower($1) AND notification_sent = false
	`, email)
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *SignupRepo) GetByEmail(ctx context.Context, email string) (*domain.Signup, error) {
	rec := &domain.Signup{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, reference_url, notification_sent, created_at, notified_at
		FROM waitlist_signups
		WHERE lower(email) = lower($1)
	`, email).Scan(
		&rec.ID, &rec.Email, &rec.ReferenceURL, &rec.NotificationSent, &rec.CreatedAt, &rec.NotifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, signup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return rec, nil
}

func (r *SignupRepo) List(ctx context.Context, f signup.ListFilter) ([]domain.Signup, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_signups`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signups: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, reference_url, notification_sent, created_at, notified_at
		FROM waitlist_signups
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	var out []domain.Signup
	for rows.Next() {
		var s domain.Signup
		if err := rows.Scan(&s.ID, &s.Email, &s.ReferenceURL, &s.NotificationSent, &s.CreatedAt, &s.NotifiedAt); err != nil {
			return nil, 0, fmt.Errorf("scan signup: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *SignupRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_signups`).Scan(&n)
	return n, err
}

func (r *SignupRepo) ListUnnotified(ctx context.Context, minAge time.Duration, limit int) ([]domain.Signup, error) {
	cutoff := time.Now().Add(-minAge)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, reference_url, notification_sent, created_at, notified_at
		FROM waitlist_signups
		WHERE notification_sent = false AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list unnotified: %w", err)
	}
	defer rows.Close()

	var out []domain.Signup
	for rows.Next() {
		var s domain.Signup
		if err := rows.Scan(&s.ID, &s.Email, &s.ReferenceURL, &s.NotificationSent, &s.CreatedAt, &s.NotifiedAt); err != nil {
			return nil, fmt.Errorf("scan unnotified signup: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
