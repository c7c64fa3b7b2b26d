package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/config"
	s3infra "github.com/yudduy/cs278-bnoc-sub000/internal/infra/s3"
	matchrunjob "github.com/yudduy/cs278-bnoc-sub000/internal/jobs/matchrun"
	reaperjob "github.com/yudduy/cs278-bnoc-sub000/internal/jobs/reaper"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	redrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/redis"
	chatsvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/chat"
	lifecyclesvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/lifecycle"
	matchingsvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/matching"
	mediasvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/media"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
	ratesvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/rate"
	streaksvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/streaks"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	runner := pgrepo.NewPoolRunner(pool)

	participantRepo := pgrepo.NewParticipantRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	pairingRepo := pgrepo.NewPairingRepo(pool)
	reactionRepo := pgrepo.NewReactionRepo(pool)
	commentRepo := pgrepo.NewCommentRepo(pool)
	chatRepo := pgrepo.NewChatRepo(pool)
	rateRepo := redrepo.NewRateRepo(redisClient)
	runLockRepo := redrepo.NewRunLockRepo(redisClient)

	loc := cfg.Engine.Location()
	dispatcher := notify.NewLogDispatcher(log)
	streakService := streaksvc.NewService(participantRepo, log)
	chatService := chatsvc.NewService(chatRepo)

	matchingService := matchingsvc.NewService(matchingsvc.Dependencies{
		Runner:       runner,
		Participants: participantRepo,
		Blocks:       blockRepo,
		Pairings:     pairingRepo,
		Chat:         chatService,
		Streaks:      streakService,
		Notifier:     dispatcher,
		Logger:       log,
	}, matchingsvc.Config{
		Location:       loc,
		DeadlineHour:   cfg.Engine.DeadlineHour,
		DeadlineMinute: cfg.Engine.DeadlineMinute,
		RecencyWindow:  cfg.Engine.RecencyWindow,
		HistoryWindow:  cfg.Engine.HistoryWindow,
		FlakeCutoff:    cfg.Engine.FlakeCutoff,
		Seed:           cfg.Engine.MatchSeed,
	})

	lifecycleService := lifecyclesvc.NewService(lifecyclesvc.Dependencies{
		Runner:    runner,
		Pairings:  pairingRepo,
		Reactions: reactionRepo,
		Comments:  commentRepo,
		Streaks:   streakService,
		Notifier:  dispatcher,
		Logger:    log,
	}, lifecyclesvc.Config{
		Location:   loc,
		TxAttempts: cfg.Engine.TxRetryAttempts,
	})
	lifecycleService.AttachCommentLimiter(ratesvc.NewLimiter(
		rateRepo,
		cfg.Engine.CommentsPerMinute,
		cfg.Engine.CommentsPer10Sec,
	))

	matchJob := matchrunjob.New(matchingService, runLockRepo, loc, cfg.Engine.RunLockTTL, log)
	reaperJob := reaperjob.New(runner, pairingRepo, streakService, dispatcher, cfg.Engine.ReaperBatchSize, log)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaStorage, cfg.Media.UploadURLTTL)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		LifecycleService: lifecycleService,
		MediaService:     mediaService,
		Blocks:           blockRepo,
		MatchJob:         matchJob,
		ReaperJob:        reaperJob,
		Logger:           log,
		Config:           cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
