package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/config"
	lifecyclesvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/lifecycle"
	mediasvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/media"
	"github.com/yudduy/cs278-bnoc-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	LifecycleService *lifecyclesvc.Service
	MediaService     *mediasvc.Service
	Blocks           handlers.Blocker
	MatchJob         handlers.MatchRunner
	ReaperJob        handlers.Reaper
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	pairingHandler := handlers.NewPairingHandler(deps.LifecycleService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	blockHandler := handlers.NewBlockHandler(deps.Blocks)
	adminJobsHandler := handlers.NewAdminJobsHandler(deps.MatchJob, deps.ReaperJob, deps.Logger)

	participantMW := ParticipantAuthMiddleware(deps.Logger)
	adminMW := AdminAuthMiddleware(deps.Config.Admin.Token)

	r.Get("/healthz", healthHandler.Get)

	r.With(participantMW).Get("/pairings/today", pairingHandler.Today)
	r.With(participantMW).Get("/pairings/{id}", pairingHandler.Get)
	r.With(participantMW).Post("/pairings/{id}/photo", pairingHandler.SubmitPhoto)
	r.With(participantMW).Post("/pairings/{id}/reaction", pairingHandler.ToggleReaction)
	r.With(participantMW).Post("/pairings/{id}/comments", pairingHandler.AddComment)
	r.With(participantMW).Get("/pairings/{id}/comments", pairingHandler.ListComments)
	r.With(participantMW).Post("/media/upload-url", mediaHandler.UploadURL)
	r.With(participantMW).Post("/blocks", blockHandler.Create)

	r.Route("/admin/jobs", func(r chi.Router) {
		r.Use(adminMW)
		r.Post("/match/run", adminJobsHandler.RunMatch)
		r.Post("/reaper/run", adminJobsHandler.RunReaper)
	})
}
