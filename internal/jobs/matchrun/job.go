package matchrun

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/rules"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/matching"
)

const lockName = "daily_match"

type Matcher interface {
	RunDaily(ctx context.Context) (matching.Summary, error)
}

type Locker interface {
	AcquireDayLock(ctx context.Context, job, dayKey string, ttl time.Duration) (bool, error)
}

// Job is the daily match trigger. The Redis day-lock makes the scheduled
// slot single-shot: a second invocation for the same day logs and returns.
type Job struct {
	matcher Matcher
	locker  Locker
	loc     *time.Location
	lockTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func New(matcher Matcher, locker Locker, loc *time.Location, lockTTL time.Duration, logger *zap.Logger) *Job {
	if loc == nil {
		loc = time.UTC
	}
	if lockTTL <= 0 {
		lockTTL = 48 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		matcher: matcher,
		locker:  locker,
		loc:     loc,
		lockTTL: lockTTL,
		now:     time.Now,
		logger:  logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.matcher == nil {
		return fmt.Errorf("matcher is not configured")
	}

	dayKey := rules.DayKey(j.now(), j.loc)
	if j.locker != nil {
		acquired, err := j.locker.AcquireDayLock(ctx, lockName, dayKey, j.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire match run lock: %w", err)
		}
		if !acquired {
			j.logger.Info("match run already executed today, skipping", zap.String("day", dayKey))
			return nil
		}
	}

	summary, err := j.matcher.RunDaily(ctx)
	if err != nil {
		return fmt.Errorf("daily match run: %w", err)
	}

	j.logger.Info("match run trigger finished",
		zap.String("day", dayKey),
		zap.Int("eligible", summary.Eligible),
		zap.Int("paired", summary.Paired),
		zap.Int("waitlisted", summary.Waitlisted),
	)

	return nil
}
