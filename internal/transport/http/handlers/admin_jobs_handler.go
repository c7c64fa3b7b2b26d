package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	reaperjob "github.com/yudduy/cs278-bnoc-sub000/internal/jobs/reaper"
	"github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/dto"
	httperrors "github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/errors"
)

type MatchRunner interface {
	Run(ctx context.Context) error
}

type Reaper interface {
	Run(ctx context.Context) (reaperjob.Summary, error)
}

// AdminJobsHandler lets operators re-trigger the scheduled jobs after a
// failed slot. Both triggers are safe to repeat: the match run is day-locked
// and the sweep is idempotent.
type AdminJobsHandler struct {
	matchRun MatchRunner
	reaper   Reaper
	logger   *zap.Logger
}

func NewAdminJobsHandler(matchRun MatchRunner, reaper Reaper, logger *zap.Logger) *AdminJobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminJobsHandler{matchRun: matchRun, reaper: reaper, logger: logger}
}

func (h *AdminJobsHandler) RunMatch(w http.ResponseWriter, r *http.Request) {
	if h.matchRun == nil {
		writeInternal(w, "JOB_UNAVAILABLE", "match job is unavailable")
		return
	}

	if err := h.matchRun.Run(r.Context()); err != nil {
		h.logger.Error("manual match run failed", zap.Error(err))
		writeInternal(w, "MATCH_RUN_FAILED", "match run failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.JobRunResponse{OK: true})
}

func (h *AdminJobsHandler) RunReaper(w http.ResponseWriter, r *http.Request) {
	if h.reaper == nil {
		writeInternal(w, "JOB_UNAVAILABLE", "reaper job is unavailable")
		return
	}

	if _, err := h.reaper.Run(r.Context()); err != nil {
		h.logger.Error("manual expiry sweep failed", zap.Error(err))
		writeInternal(w, "REAPER_RUN_FAILED", "expiry sweep failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.JobRunResponse{OK: true})
}
