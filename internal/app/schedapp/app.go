package schedapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/config"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/rules"
	matchrunjob "github.com/yudduy/cs278-bnoc-sub000/internal/jobs/matchrun"
	reaperjob "github.com/yudduy/cs278-bnoc-sub000/internal/jobs/reaper"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	redrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/redis"
	chatsvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/chat"
	matchingsvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/matching"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
	streaksvc "github.com/yudduy/cs278-bnoc-sub000/internal/services/streaks"
)

// App drives the two daily jobs on local wall-clock schedules: the match
// run at the configured match time and the expiry sweep shortly after the
// submission deadline. Between the day-lock and the idempotent sweep it is
// safe to run several scheduler replicas at once.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	matchJob *matchrunjob.Job
	reapJob  *reaperjob.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for scheduler: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	runner := pgrepo.NewPoolRunner(pool)
	loc := cfg.Engine.Location()

	participantRepo := pgrepo.NewParticipantRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	pairingRepo := pgrepo.NewPairingRepo(pool)
	chatRepo := pgrepo.NewChatRepo(pool)
	runLockRepo := redrepo.NewRunLockRepo(redisClient)

	dispatcher := notify.NewLogDispatcher(logger)
	streakService := streaksvc.NewService(participantRepo, logger)
	chatService := chatsvc.NewService(chatRepo)

	matchingService := matchingsvc.NewService(matchingsvc.Dependencies{
		Runner:       runner,
		Participants: participantRepo,
		Blocks:       blockRepo,
		Pairings:     pairingRepo,
		Chat:         chatService,
		Streaks:      streakService,
		Notifier:     dispatcher,
		Logger:       logger,
	}, matchingsvc.Config{
		Location:       loc,
		DeadlineHour:   cfg.Engine.DeadlineHour,
		DeadlineMinute: cfg.Engine.DeadlineMinute,
		RecencyWindow:  cfg.Engine.RecencyWindow,
		HistoryWindow:  cfg.Engine.HistoryWindow,
		FlakeCutoff:    cfg.Engine.FlakeCutoff,
		Seed:           cfg.Engine.MatchSeed,
	})

	matchJob := matchrunjob.New(matchingService, runLockRepo, loc, cfg.Engine.RunLockTTL, logger)
	reapJob := reaperjob.New(runner, pairingRepo, streakService, dispatcher, cfg.Engine.ReaperBatchSize, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		matchJob: matchJob,
		reapJob:  reapJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("scheduler started",
		zap.String("timezone", a.cfg.Engine.Timezone),
		zap.Int("match_hour", a.cfg.Engine.MatchHour),
		zap.Int("deadline_hour", a.cfg.Engine.DeadlineHour),
	)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runMatchLoop(ctx)
	}()
	go func() {
		errCh <- a.runReaperLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("scheduler stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runMatchLoop(ctx context.Context) error {
	loc := a.cfg.Engine.Location()
	for {
		next := rules.NextOccurrence(time.Now(), loc, a.cfg.Engine.MatchHour, a.cfg.Engine.MatchMinute)
		if err := sleepUntil(ctx, next); err != nil {
			return err
		}
		if err := a.matchJob.Run(ctx); err != nil {
			a.logger.Error("scheduled match run failed", zap.Error(err))
		}
	}
}

func (a *App) runReaperLoop(ctx context.Context) error {
	loc := a.cfg.Engine.Location()
	for {
		deadline := rules.NextOccurrence(time.Now(), loc, a.cfg.Engine.DeadlineHour, a.cfg.Engine.DeadlineMinute)
		if err := sleepUntil(ctx, deadline.Add(a.cfg.Engine.ReaperDelay)); err != nil {
			return err
		}
		if _, err := a.reapJob.Run(ctx); err != nil {
			a.logger.Error("scheduled expiry sweep failed", zap.Error(err))
		}
	}
}

func sleepUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
