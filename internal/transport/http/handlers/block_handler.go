package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/yudduy/cs278-bnoc-sub000/internal/services/identity"
	"github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/dto"
	httperrors "github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/errors"
)

type Blocker interface {
	Upsert(ctx context.Context, actorID, targetID int64, reason string) error
}

// BlockHandler records participant blocks. Blocked pairs are excluded
// from future match runs.
type BlockHandler struct {
	blocks Blocker
}

func NewBlockHandler(blocks Blocker) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.blocks == nil {
		writeInternal(w, "BLOCKS_UNAVAILABLE", "block storage is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || req.TargetID == caller.ParticipantID {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid target participant")
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if len(reason) > 500 {
		writeBadRequest(w, "VALIDATION_ERROR", "reason too long")
		return
	}

	if err := h.blocks.Upsert(r.Context(), caller.ParticipantID, req.TargetID, reason); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to record block")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlockResponse{OK: true})
}
