package signup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/waitlist/internal/domain"
)

// mockRepo is an in-memory repository for testing, keyed by normalized email.
type mockRepo struct {
	mu        sync.RWMutex
	store     map[string]*domain.Signup
	insertErr error
	markErr   error
	markCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Signup)}
}

func (m *mockRepo) InsertIfAbsent(_ context.Context, s *domain.Signup) (*domain.Signup, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, false, m.insertErr
	}
	key := strings.ToLower(s.Email)
	if existing, ok := m.store[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	s.ID = uuid.New().String()
	s.CreatedAt = time.Now()
	m.store[key] = s
	cp := *s
	return &cp, true, nil
}

func (m *mockRepo) MarkNotified(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if m.markErr != nil {
		return false, m.markErr
	}
	rec, ok := m.store[strings.ToLower(email)]
	if !ok {
		return false, ErrNotFound
	}
	if rec.NotificationSent {
		return false, nil
	}
	rec.NotificationSent = true
	now := time.Now()
	rec.NotifiedAt = &now
	return true, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*domain.Signup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]domain.Signup, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Signup
	for _, s := range m.store {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *mockRepo) ListUnnotified(_ context.Context, _ time.Duration, limit int) ([]domain.Signup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Signup
	for _, s := range m.store {
		if !s.NotificationSent {
			out = append(out, *s)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// mockNotifier counts dispatches and can be scripted to fail.
type mockNotifier struct {
	mu       sync.Mutex
	sent     []string
	failNext int
	err      error
}

func (m *mockNotifier) Send(_ context.Context, s *domain.Signup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		if m.err != nil {
			return m.err
		}
		return fmt.Errorf("provider unavailable")
	}
	m.sent = append(m.sent, s.Email)
	return nil
}

func (m *mockNotifier) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestHandleSubmission_NewEmail_NotifiesOnce(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	res, err := svc.HandleSubmission(ctx, "user@example.com", "")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	if res.Outcome != domain.OutcomeNotifiedNow {
		t.Errorf("expected notified_now, got %s", res.Outcome)
	}
	if !res.Signup.NotificationSent {
		t.Error("expected notification_sent to transition false→true")
	}
	if notifier.sendCount() != 1 {
		t.Errorf("expected 1 dispatch, got %d", notifier.sendCount())
	}
}

func TestHandleSubmission_DuplicateNeverCreatesSecondRecord(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockNotifier{})
	ctx := context.Background()

	if _, err := svc.HandleSubmission(ctx, "user@example.com", ""); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	res, err := svc.HandleSubmission(ctx, "user@example.com", "")
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if res.Outcome != domain.OutcomeAlreadyNotified {
		t.Errorf("expected already_notified, got %s", res.Outcome)
	}

	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 record after duplicate submission, got %d", count)
	}
}

func TestHandleSubmission_NotificationIdempotent(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.HandleSubmission(ctx, "repeat@example.com", ""); err != nil {
			t.Fatalf("submission #%d: %v", i, err)
		}
	}

	if notifier.sendCount() != 1 {
		t.Errorf("expected exactly 1 dispatch across repeats, got %d", notifier.sendCount())
	}
	rec, _ := repo.GetByEmail(ctx, "repeat@example.com")
	if !rec.NotificationSent {
		t.Error("expected notification_sent=true after repeats")
	}
}

func TestHandleSubmission_WhitespaceCollidesWithTrimmed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockNotifier{})
	ctx := context.Background()

	if _, err := svc.HandleSubmission(ctx, "user@example.com", ""); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	res, err := svc.HandleSubmission(ctx, " user@example.com ", "")
	if err != nil {
		t.Fatalf("whitespace submission: %v", err)
	}
	if res.Signup.Email != "user@example.com" {
		t.Errorf("expected normalized email, got %q", res.Signup.Email)
	}
	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Errorf("expected whitespace variant to collide, got %d records", count)
	}
}

func TestHandleSubmission_InvalidEmail_NoSideEffects(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	for _, bad := range []string{"", "not-an-email", "missing@tld", "  "} {
		res, err := svc.HandleSubmission(ctx, bad, "")
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("submit(%q): expected ErrInvalidEmail, got %v", bad, err)
		}
		if res != nil {
			t.Errorf("submit(%q): expected nil result", bad)
		}
	}

	count, _ := repo.Count(ctx)
	if count != 0 {
		t.Errorf("expected no records, got %d", count)
	}
	if notifier.sendCount() != 0 {
		t.Errorf("expected no dispatches, got %d", notifier.sendCount())
	}
}

func TestHandleSubmission_NotifyFailure_RecordSurvives(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{failNext: 1}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	res, err := svc.HandleSubmission(ctx, "flaky@example.com", "")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	if res.Outcome != domain.OutcomeNotifyFailed {
		t.Errorf("expected notify_failed, got %s", res.Outcome)
	}
	if res.Err == nil {
		t.Error("expected the dispatch error to be carried in the result")
	}

	rec, err := repo.GetByEmail(ctx, "flaky@example.com")
	if err != nil {
		t.Fatalf("record should survive notification failure: %v", err)
	}
	if rec.NotificationSent {
		t.Error("flag must stay false after a failed dispatch")
	}

	// Re-invocation retries the dispatch and flips the flag.
	res, err = svc.HandleSubmission(ctx, "flaky@example.com", "")
	if err != nil {
		t.Fatalf("retry submission: %v", err)
	}
	if res.Outcome != domain.OutcomeNotifiedNow {
		t.Errorf("expected notified_now on retry, got %s", res.Outcome)
	}
	rec, _ = repo.GetByEmail(ctx, "flaky@example.com")
	if !rec.NotificationSent {
		t.Error("expected flag true after successful retry")
	}
}

func TestHandleSubmission_AmbiguousDeliveryLeavesFlagUnset(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{failNext: 1, err: fmt.Errorf("timeout after write: %w", ErrAmbiguousDelivery)}
	svc := NewService(repo, notifier)

	res, err := svc.HandleSubmission(context.Background(), "maybe@example.com", "")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	if res.Outcome != domain.OutcomeNotifyFailed {
		t.Errorf("expected notify_failed, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrAmbiguousDelivery) {
		t.Errorf("expected ambiguous delivery cause, got %v", res.Err)
	}
}

func TestHandleSubmission_PersistFailure_NoDispatch(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = fmt.Errorf("connection refused")
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)

	res, err := svc.HandleSubmission(context.Background(), "user@example.com", "")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	if res.Outcome != domain.OutcomePersistFailed {
		t.Errorf("expected persist_failed, got %s", res.Outcome)
	}
	if notifier.sendCount() != 0 {
		t.Error("persistence failure must prevent notification")
	}
}

func TestHandleSubmission_NoNotifierVariant(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	res, err := svc.HandleSubmission(ctx, "plain@example.com", " https://shop.example.com ")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	if res.Outcome != domain.OutcomeCreated {
		t.Errorf("expected created, got %s", res.Outcome)
	}
	if res.Signup.ReferenceURL == nil || *res.Signup.ReferenceURL != "https://shop.example.com" {
		t.Errorf("expected trimmed reference URL, got %v", res.Signup.ReferenceURL)
	}

	res, _ = svc.HandleSubmission(ctx, "plain@example.com", "")
	if res.Outcome != domain.OutcomeAlreadyExists {
		t.Errorf("expected already_exists, got %s", res.Outcome)
	}
}

func TestHandleSubmission_SentButMarkFailed_StillSuccess(t *testing.T) {
	repo := newMockRepo()
	repo.markErr = fmt.Errorf("deadlock detected")
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)

	res, err := svc.HandleSubmission(context.Background(), "user@example.com", "")
	if err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}
	// The email went out; the user sees success even though the flag write
	// failed and a later retry may double-send.
	if res.Outcome != domain.OutcomeNotifiedNow {
		t.Errorf("expected notified_now, got %s", res.Outcome)
	}
	if res.Err == nil {
		t.Error("expected the mark failure to be carried in the result")
	}
	if repo.markCalls != 1 {
		t.Errorf("expected 1 MarkNotified call, got %d", repo.markCalls)
	}
}

func TestRetry_DispatchesForUnnotifiedRecord(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{failNext: 1}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	res, _ := svc.HandleSubmission(ctx, "retry@example.com", "")
	if res.Outcome != domain.OutcomeNotifyFailed {
		t.Fatalf("setup: expected notify_failed, got %s", res.Outcome)
	}

	rec, _ := repo.GetByEmail(ctx, "retry@example.com")
	res = svc.Retry(ctx, rec)
	if res.Outcome != domain.OutcomeNotifiedNow {
		t.Errorf("expected notified_now, got %s", res.Outcome)
	}
	if notifier.sendCount() != 1 {
		t.Errorf("expected 1 successful dispatch, got %d", notifier.sendCount())
	}
}
