package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const runLockPrefix = "runlock:"

// RunLockRepo guards the daily scheduled jobs: the first invocation for a
// given job+day wins, later ones see the lock and skip. The TTL only exists
// so abandoned keys age out; locks are never released early.
type RunLockRepo struct {
	client *goredis.Client
}

func NewRunLockRepo(client *goredis.Client) *RunLockRepo {
	return &RunLockRepo{client: client}
}

func (r *RunLockRepo) AcquireDayLock(ctx context.Context, job, dayKey string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(job) == "" || strings.TrimSpace(dayKey) == "" {
		return false, fmt.Errorf("invalid run lock payload")
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}

	key := runLockPrefix + job + ":" + dayKey
	acquired, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}

	return acquired, nil
}
