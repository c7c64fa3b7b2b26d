package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
)

type stubRunner struct {
	calls         int
	conflictsLeft int
}

func (r *stubRunner) InTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	r.calls++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return &pgconn.PgError{Code: "40001"}
	}
	return fn(ctx, nil)
}

type memoryPairingStore struct {
	pairings map[int64]model.Pairing
}

func newMemoryPairingStore(items ...model.Pairing) *memoryPairingStore {
	s := &memoryPairingStore{pairings: make(map[int64]model.Pairing)}
	for _, p := range items {
		s.pairings[p.ID] = p
	}
	return s
}

func (s *memoryPairingStore) Get(_ context.Context, id int64) (model.Pairing, error) {
	p, ok := s.pairings[id]
	if !ok {
		return model.Pairing{}, pgrepo.ErrPairingNotFound
	}
	return p, nil
}

func (s *memoryPairingStore) GetForUpdate(ctx context.Context, _ pgx.Tx, id int64) (model.Pairing, error) {
	return s.Get(ctx, id)
}

func (s *memoryPairingStore) UpdateSubmission(_ context.Context, _ pgx.Tx, p model.Pairing) error {
	if _, ok := s.pairings[p.ID]; !ok {
		return pgrepo.ErrPairingNotFound
	}
	s.pairings[p.ID] = p
	return nil
}

func (s *memoryPairingStore) FindForParticipantOn(_ context.Context, participantID int64, matchDate time.Time) (model.Pairing, error) {
	for _, p := range s.pairings {
		if p.MatchDate.Equal(matchDate) && (p.SlotAID == participantID || p.SlotBID == participantID) {
			return p, nil
		}
	}
	return model.Pairing{}, pgrepo.ErrPairingNotFound
}

type fakeReactionStore struct {
	liked map[int64]bool
	count int
}

func (s *fakeReactionStore) Toggle(_ context.Context, _ pgx.Tx, pairingID, participantID int64) (bool, int, error) {
	if s.liked == nil {
		s.liked = make(map[int64]bool)
	}
	if s.liked[participantID] {
		s.liked[participantID] = false
		s.count--
		return false, s.count, nil
	}
	s.liked[participantID] = true
	s.count++
	return true, s.count, nil
}

type fakeCommentStore struct {
	nextID   int64
	comments []model.Comment
}

func (s *fakeCommentStore) Add(_ context.Context, _ pgx.Tx, c model.Comment) (model.Comment, error) {
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	s.comments = append(s.comments, c)
	return c, nil
}

func (s *fakeCommentStore) ListForPairing(_ context.Context, pairingID int64, _ int) ([]model.Comment, error) {
	out := make([]model.Comment, 0)
	for _, c := range s.comments {
		if c.PairingID == pairingID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeStreakLedger struct {
	resets [][]int64
}

func (s *fakeStreakLedger) ResetOnCompletion(_ context.Context, _ pgx.Tx, ids []int64) error {
	s.resets = append(s.resets, ids)
	return nil
}

type stubLimiter struct {
	allowed    bool
	retryAfter int64
	err        error
}

func (l *stubLimiter) AllowComment(context.Context, int64) (int64, bool, error) {
	return l.retryAfter, l.allowed, l.err
}

type recordingDispatcher struct {
	events chan notify.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{events: make(chan notify.Event, 64)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, events ...notify.Event) {
	for _, ev := range events {
		d.events <- ev
	}
}

func (d *recordingDispatcher) waitFor(t *testing.T, n int) []notify.Event {
	t.Helper()
	out := make([]notify.Event, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-d.events:
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func testPairing() model.Pairing {
	return model.Pairing{
		ID:        10,
		MatchDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2026, 5, 10, 22, 0, 0, 0, time.UTC),
		SlotAID:   1,
		SlotBID:   2,
		Status:    enums.PairingStatusPending,
	}
}

func newLifecycleService(store *memoryPairingStore, runner *stubRunner, dispatcher notify.Dispatcher) (*Service, *fakeStreakLedger, *fakeCommentStore) {
	streaks := &fakeStreakLedger{}
	comments := &fakeCommentStore{}
	svc := NewService(Dependencies{
		Runner:    runner,
		Pairings:  store,
		Reactions: &fakeReactionStore{},
		Comments:  comments,
		Streaks:   streaks,
		Notifier:  dispatcher,
		Logger:    zap.NewNop(),
	}, Config{Location: time.UTC})
	return svc, streaks, comments
}

func TestSubmitPhotoFirstSlotNotifiesPartner(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	dispatcher := newRecordingDispatcher()
	svc, streaks, _ := newLifecycleService(store, &stubRunner{}, dispatcher)

	updated, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/a.jpg")
	if err != nil {
		t.Fatalf("SubmitPhoto: %v", err)
	}
	if updated.Status != enums.PairingStatusSlotASubmitted {
		t.Fatalf("status = %s, want %s", updated.Status, enums.PairingStatusSlotASubmitted)
	}

	events := dispatcher.waitFor(t, 1)
	if events[0].ParticipantID != 2 || events[0].Kind != enums.NotificationKindPartnerSubmitted {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if len(streaks.resets) != 0 {
		t.Fatal("streaks must not reset before completion")
	}
}

func TestSubmitPhotoSecondSlotCompletesAndResetsStreaks(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	dispatcher := newRecordingDispatcher()
	svc, streaks, _ := newLifecycleService(store, &stubRunner{}, dispatcher)

	if _, err := svc.SubmitPhoto(context.Background(), 10, 2, "photos/2/b.jpg"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	dispatcher.waitFor(t, 1)

	updated, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/a.jpg")
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if updated.Status != enums.PairingStatusCompleted {
		t.Fatalf("status = %s, want %s", updated.Status, enums.PairingStatusCompleted)
	}
	if updated.CompletedAt == nil {
		t.Fatal("completed pairing missing completed_at")
	}

	if len(streaks.resets) != 1 {
		t.Fatalf("streak resets = %d, want 1", len(streaks.resets))
	}

	events := dispatcher.waitFor(t, 2)
	for _, ev := range events {
		if ev.Kind != enums.NotificationKindCompleted {
			t.Fatalf("unexpected event kind %s", ev.Kind)
		}
	}
}

func TestSubmitPhotoErrorMapping(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	svc, _, _ := newLifecycleService(store, &stubRunner{}, notify.NewLogDispatcher(zap.NewNop()))

	if _, err := svc.SubmitPhoto(context.Background(), 10, 1, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank ref: err = %v, want ErrValidation", err)
	}
	if _, err := svc.SubmitPhoto(context.Background(), 404, 1, "photos/1/a.jpg"); !errors.Is(err, ErrPairingNotFound) {
		t.Fatalf("missing pairing: err = %v, want ErrPairingNotFound", err)
	}
	if _, err := svc.SubmitPhoto(context.Background(), 10, 99, "photos/99/x.jpg"); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("outsider: err = %v, want ErrNotAParticipant", err)
	}

	if _, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/a.jpg"); err != nil {
		t.Fatalf("valid submission: %v", err)
	}
	if _, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/again.jpg"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("double submit: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitPhotoRetriesTransientConflicts(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	runner := &stubRunner{conflictsLeft: 2}
	svc, _, _ := newLifecycleService(store, runner, notify.NewLogDispatcher(zap.NewNop()))

	if _, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/a.jpg"); err != nil {
		t.Fatalf("SubmitPhoto should succeed after retries: %v", err)
	}
	if runner.calls != 3 {
		t.Fatalf("runner calls = %d, want 3", runner.calls)
	}
}

func TestSubmitPhotoSurfacesExhaustedRetries(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	runner := &stubRunner{conflictsLeft: 10}
	svc, _, _ := newLifecycleService(store, runner, notify.NewLogDispatcher(zap.NewNop()))

	_, err := svc.SubmitPhoto(context.Background(), 10, 1, "photos/1/a.jpg")
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}
	if runner.calls != defaultTxAttempts {
		t.Fatalf("runner calls = %d, want %d", runner.calls, defaultTxAttempts)
	}
}

func TestToggleReactionFlips(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	svc, _, _ := newLifecycleService(store, &stubRunner{}, notify.NewLogDispatcher(zap.NewNop()))

	liked, count, err := svc.ToggleReaction(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if !liked || count != 1 {
		t.Fatalf("first toggle = (%v, %d), want (true, 1)", liked, count)
	}

	liked, count, err = svc.ToggleReaction(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if liked || count != 0 {
		t.Fatalf("second toggle = (%v, %d), want (false, 0)", liked, count)
	}
}

func TestAddCommentRateLimited(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	svc, _, comments := newLifecycleService(store, &stubRunner{}, notify.NewLogDispatcher(zap.NewNop()))
	svc.AttachCommentLimiter(&stubLimiter{allowed: false, retryAfter: 42})

	_, err := svc.AddComment(context.Background(), 10, 1, "hello")
	var tooMany *TooManyCommentsError
	if !errors.As(err, &tooMany) {
		t.Fatalf("err = %v, want TooManyCommentsError", err)
	}
	if tooMany.RetryAfterSec != 42 {
		t.Fatalf("retry after = %d, want 42", tooMany.RetryAfterSec)
	}
	if len(comments.comments) != 0 {
		t.Fatal("limited comment must not be stored")
	}
}

func TestAddCommentFailsOpenOnLimiterError(t *testing.T) {
	store := newMemoryPairingStore(testPairing())
	svc, _, comments := newLifecycleService(store, &stubRunner{}, notify.NewLogDispatcher(zap.NewNop()))
	svc.AttachCommentLimiter(&stubLimiter{err: errors.New("redis down")})

	created, err := svc.AddComment(context.Background(), 10, 1, "hello")
	if err != nil {
		t.Fatalf("AddComment should fail open: %v", err)
	}
	if created.ID == 0 || len(comments.comments) != 1 {
		t.Fatal("comment was not stored")
	}
}

func TestPairingForTodayAndGetPairing(t *testing.T) {
	p := testPairing()
	store := newMemoryPairingStore(p)
	svc, _, _ := newLifecycleService(store, &stubRunner{}, notify.NewLogDispatcher(zap.NewNop()))
	svc.SetClock(func() time.Time {
		return time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	})

	got, err := svc.PairingForToday(context.Background(), 1)
	if err != nil {
		t.Fatalf("PairingForToday: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("got pairing %d, want %d", got.ID, p.ID)
	}

	if _, err := svc.PairingForToday(context.Background(), 99); !errors.Is(err, ErrPairingNotFound) {
		t.Fatalf("unmatched participant: err = %v, want ErrPairingNotFound", err)
	}

	if _, err := svc.GetPairing(context.Background(), 10, 99); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("outsider view: err = %v, want ErrNotAParticipant", err)
	}
}
