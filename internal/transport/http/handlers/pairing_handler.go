package handlers

import (
	"errors"
	"net/http"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/identity"
	lifecyclesvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/lifecycle"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/media"
	"github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/dto"
	httperrors "github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/errors"
)

type PairingHandler struct {
	service *lifecyclesvc.Service
}

func NewPairingHandler(service *lifecyclesvc.Service) *PairingHandler {
	return &PairingHandler{service: service}
}

func (h *PairingHandler) Today(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	p, err := h.service.PairingForToday(r.Context(), caller.ParticipantID)
	if err != nil {
		writeLifecycleError(w, err, "failed to load today's pairing")
		return
	}

	httperrors.Write(w, http.StatusOK, toPairingResponse(p))
}

func (h *PairingHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	pairingID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing id")
		return
	}

	p, err := h.service.GetPairing(r.Context(), pairingID, caller.ParticipantID)
	if err != nil {
		writeLifecycleError(w, err, "failed to load pairing")
		return
	}

	httperrors.Write(w, http.StatusOK, toPairingResponse(p))
}

func (h *PairingHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	pairingID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing id")
		return
	}

	var req dto.SubmitPhotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !media.ValidPhotoRef(req.PhotoRef) {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid photo reference")
		return
	}

	p, err := h.service.SubmitPhoto(r.Context(), pairingID, caller.ParticipantID, req.PhotoRef)
	if err != nil {
		writeLifecycleError(w, err, "failed to submit photo")
		return
	}

	httperrors.Write(w, http.StatusOK, toPairingResponse(p))
}

func (h *PairingHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	pairingID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing id")
		return
	}

	liked, count, err := h.service.ToggleReaction(r.Context(), pairingID, caller.ParticipantID)
	if err != nil {
		writeLifecycleError(w, err, "failed to toggle reaction")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReactionResponse{Liked: liked, LikeCount: count})
}

func (h *PairingHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	pairingID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing id")
		return
	}

	var req dto.AddCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	comment, err := h.service.AddComment(r.Context(), pairingID, caller.ParticipantID, req.Body)
	if err != nil {
		var tooMany *lifecyclesvc.TooManyCommentsError
		if errors.As(err, &tooMany) {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many comments",
				RetryAfterSec: tooMany.RetryAfterSec,
			})
			return
		}
		writeLifecycleError(w, err, "failed to add comment")
		return
	}

	httperrors.Write(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *PairingHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIFECYCLE_SERVICE_UNAVAILABLE", "pairing service is unavailable")
		return
	}

	pairingID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing id")
		return
	}

	comments, err := h.service.ListComments(r.Context(), pairingID, caller.ParticipantID, parseIntOrDefault(r.URL.Query().Get("limit"), 100))
	if err != nil {
		writeLifecycleError(w, err, "failed to list comments")
		return
	}

	items := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		items = append(items, toCommentResponse(c))
	}

	httperrors.Write(w, http.StatusOK, dto.CommentsResponse{Items: items})
}

func writeLifecycleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, lifecyclesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid pairing request")
	case errors.Is(err, lifecyclesvc.ErrPairingNotFound):
		writeNotFound(w, "PAIRING_NOT_FOUND", "pairing not found")
	case errors.Is(err, lifecyclesvc.ErrNotAParticipant):
		writeForbidden(w, "NOT_A_PARTICIPANT", "pairing belongs to other participants")
	case errors.Is(err, lifecyclesvc.ErrAlreadyTerminal):
		writeConflict(w, "ALREADY_TERMINAL", "pairing already reached a terminal state")
	case errors.Is(err, lifecyclesvc.ErrAlreadySubmitted):
		writeConflict(w, "ALREADY_SUBMITTED", "photo already submitted for this slot")
	case errors.Is(err, lifecyclesvc.ErrConcurrentModification):
		writeConflict(w, "CONCURRENT_MODIFICATION", "pairing was modified concurrently, retry")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

func toPairingResponse(p model.Pairing) dto.PairingResponse {
	return dto.PairingResponse{
		ID:               p.ID,
		MatchDate:        p.MatchDate.Format("2006-01-02"),
		ExpiresAt:        p.ExpiresAt,
		SlotAID:          p.SlotAID,
		SlotBID:          p.SlotBID,
		Status:           string(p.Status),
		SlotAPhotoRef:    p.SlotAPhotoRef,
		SlotBPhotoRef:    p.SlotBPhotoRef,
		SlotASubmittedAt: p.SlotASubmittedAt,
		SlotBSubmittedAt: p.SlotBSubmittedAt,
		CompletedAt:      p.CompletedAt,
		ChatRef:          p.ChatRef,
		LikeCount:        p.LikeCount,
		CommentCount:     p.CommentCount,
	}
}

func toCommentResponse(c model.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:            c.ID,
		PairingID:     c.PairingID,
		ParticipantID: c.ParticipantID,
		Body:          c.Body,
		CreatedAt:     c.CreatedAt,
	}
}
