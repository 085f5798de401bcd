package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/waitlist/internal/domain"
	"github.com/ignite/waitlist/internal/service/signup"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func signupColumns() []string {
	return []string{"id", "email", "reference_url", "notification_sent", "created_at", "notified_at"}
}

func TestInsertIfAbsent_NewRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO waitlist_signups`).
		WithArgs(sqlmock.AnyArg(), "user@example.com", nil).
		WillReturnRows(sqlmock.NewRows(signupColumns()).
			AddRow("id-1", "user@example.com", nil, false, now, nil))

	rec, wasNew, err := repo.InsertIfAbsent(context.Background(), &domain.Signup{Email: "user@example.com"})
	if err != nil {
		t.Fatalf("InsertIfAbsent: %v", err)
	}
	if !wasNew {
		t.Error("expected wasNew=true for a fresh insert")
	}
	if rec.Email != "user@example.com" || rec.NotificationSent {
		t.Errorf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertIfAbsent_ConflictResolvesExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	now := time.Now()
	// ON CONFLICT DO NOTHING yields no row; the repo falls back to a select.
	mock.ExpectQuery(`INSERT INTO waitlist_signups`).
		WithArgs(sqlmock.AnyArg(), "user@example.com", nil).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, email, reference_url, notification_sent, created_at, notified_at`).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(signupColumns()).
			AddRow("id-1", "user@example.com", nil, true, now, now))

	rec, wasNew, err := repo.InsertIfAbsent(context.Background(), &domain.Signup{Email: "user@example.com"})
	if err != nil {
		t.Fatalf("InsertIfAbsent: %v", err)
	}
	if wasNew {
		t.Error("expected wasNew=false on conflict")
	}
	if !rec.NotificationSent {
		t.Error("expected existing record state to be returned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkNotified_FlipsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectExec(`UPDATE waitlist_signups`).
		WithArgs("user@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.MarkNotified(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if !flipped {
		t.Error("expected flag to flip")
	}
}

func TestMarkNotified_AlreadySet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectExec(`UPDATE waitlist_signups`).
		WithArgs("user@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err := repo.MarkNotified(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if flipped {
		t.Error("conditional update must not flip an already-set flag")
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectQuery(`SELECT id, email, reference_url, notification_sent, created_at, notified_at`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, signup.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUnnotified_FiltersByFlag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignupRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, email, reference_url, notification_sent, created_at, notified_at`).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(signupColumns()).
			AddRow("id-1", "a@example.com", nil, false, now.Add(-time.Hour), nil).
			AddRow("id-2", "b@example.com", nil, false, now.Add(-30*time.Minute), nil))

	out, err := repo.ListUnnotified(context.Background(), 10*time.Minute, 50)
	if err != nil {
		t.Fatalf("ListUnnotified: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 rows, got %d", len(out))
	}
}
