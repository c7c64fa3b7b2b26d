package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedBlock struct {
	actorID  int64
	targetID int64
	reason   string
}

type fakeBlocker struct {
	blocks []recordedBlock
	err    error
}

func (f *fakeBlocker) Upsert(_ context.Context, actorID, targetID int64, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.blocks = append(f.blocks, recordedBlock{actorID: actorID, targetID: targetID, reason: reason})
	return nil
}

func TestBlockHandlerCreate(t *testing.T) {
	blocker := &fakeBlocker{}
	handler := NewBlockHandler(blocker)

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{"target_id":7,"reason":"spam"}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, asParticipant(req, 3))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK {
		t.Fatal("expected ok response")
	}

	if len(blocker.blocks) != 1 {
		t.Fatalf("recorded %d blocks, want 1", len(blocker.blocks))
	}
	got := blocker.blocks[0]
	if got.actorID != 3 || got.targetID != 7 || got.reason != "spam" {
		t.Fatalf("unexpected block record: %+v", got)
	}
}

func TestBlockHandlerRejectsSelfBlock(t *testing.T) {
	blocker := &fakeBlocker{}
	handler := NewBlockHandler(blocker)

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{"target_id":3}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, asParticipant(req, 3))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(blocker.blocks) != 0 {
		t.Fatalf("recorded %d blocks, want 0", len(blocker.blocks))
	}
}

func TestBlockHandlerRequiresIdentity(t *testing.T) {
	handler := NewBlockHandler(&fakeBlocker{})

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{"target_id":7}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestBlockHandlerStoreError(t *testing.T) {
	handler := NewBlockHandler(&fakeBlocker{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{"target_id":7}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, asParticipant(req, 3))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
