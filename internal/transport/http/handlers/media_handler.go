package handlers

import (
	"errors"
	"net/http"

	"github.com/yudduy/cs278-bnoc-sub000/internal/services/identity"
	mediasvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/media"
	"github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/dto"
	httperrors "github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/errors"
)

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// UploadURL hands the caller a presigned PUT URL; the returned photo_ref is
// what submitPhoto later accepts.
func (h *MediaHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "participant identity required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	ticket, err := h.service.CreateUploadURL(r.Context(), caller.ParticipantID)
	if err != nil {
		if errors.Is(err, mediasvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid upload request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to create upload url")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UploadURLResponse{
		PhotoRef:  ticket.PhotoRef,
		UploadURL: ticket.UploadURL,
		ExpiresAt: ticket.ExpiresAt,
	})
}
