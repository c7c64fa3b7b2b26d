package streaks

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type memoryParticipantStore struct {
	resets     [][]int64
	penalties  [][]int64
	waitlisted [][]int64
	cleared    int
	failWith   error
}

func (s *memoryParticipantStore) ResetFlakeStreaks(_ context.Context, _ pgx.Tx, ids []int64) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.resets = append(s.resets, ids)
	return nil
}

func (s *memoryParticipantStore) ApplyFlakePenalty(_ context.Context, _ pgx.Tx, ids []int64) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.penalties = append(s.penalties, ids)
	return nil
}

func (s *memoryParticipantStore) MarkWaitlisted(_ context.Context, ids []int64) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.waitlisted = append(s.waitlisted, ids)
	return nil
}

func (s *memoryParticipantStore) ClearRunFlags(context.Context) (int64, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	s.cleared++
	return 3, nil
}

func TestServiceDelegatesToStore(t *testing.T) {
	store := &memoryParticipantStore{}
	svc := NewService(store, nil)
	ctx := context.Background()

	if err := svc.ResetOnCompletion(ctx, nil, []int64{1, 2}); err != nil {
		t.Fatalf("ResetOnCompletion: %v", err)
	}
	if err := svc.ApplyFlake(ctx, nil, []int64{3}); err != nil {
		t.Fatalf("ApplyFlake: %v", err)
	}
	if err := svc.MarkWaitlisted(ctx, []int64{4}); err != nil {
		t.Fatalf("MarkWaitlisted: %v", err)
	}
	if err := svc.ClearRunFlags(ctx); err != nil {
		t.Fatalf("ClearRunFlags: %v", err)
	}

	if len(store.resets) != 1 || len(store.penalties) != 1 || len(store.waitlisted) != 1 || store.cleared != 1 {
		t.Fatalf("unexpected store state: %+v", store)
	}
}

func TestMarkWaitlistedSkipsEmptyBatch(t *testing.T) {
	store := &memoryParticipantStore{}
	svc := NewService(store, nil)

	if err := svc.MarkWaitlisted(context.Background(), nil); err != nil {
		t.Fatalf("MarkWaitlisted: %v", err)
	}
	if len(store.waitlisted) != 0 {
		t.Fatal("empty batch must not hit the store")
	}
}

func TestServiceSurfacesStoreErrors(t *testing.T) {
	store := &memoryParticipantStore{failWith: errors.New("backend down")}
	svc := NewService(store, nil)
	ctx := context.Background()

	if err := svc.ResetOnCompletion(ctx, nil, []int64{1}); err == nil {
		t.Fatal("expected reset error")
	}
	if err := svc.ClearRunFlags(ctx); err == nil {
		t.Fatal("expected clear error")
	}
}

func TestServiceRequiresStore(t *testing.T) {
	svc := NewService(nil, nil)
	if err := svc.ApplyFlake(context.Background(), nil, []int64{1}); err == nil {
		t.Fatal("expected error with nil store")
	}
}
