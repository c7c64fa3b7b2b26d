package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

func TestAcquireDayLockFirstWins(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRunLockRepo(client)
	ctx := context.Background()

	acquired, err := repo.AcquireDayLock(ctx, "daily_match", "2026-05-10", time.Hour)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire must win")
	}

	acquired, err = repo.AcquireDayLock(ctx, "daily_match", "2026-05-10", time.Hour)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Fatal("second acquire for the same day must lose")
	}
}

func TestAcquireDayLockIndependentPerJobAndDay(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRunLockRepo(client)
	ctx := context.Background()

	if acquired, err := repo.AcquireDayLock(ctx, "daily_match", "2026-05-10", time.Hour); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	if acquired, err := repo.AcquireDayLock(ctx, "daily_match", "2026-05-11", time.Hour); err != nil || !acquired {
		t.Fatalf("next day must be independent: acquired=%v err=%v", acquired, err)
	}
	if acquired, err := repo.AcquireDayLock(ctx, "other_job", "2026-05-10", time.Hour); err != nil || !acquired {
		t.Fatalf("other job must be independent: acquired=%v err=%v", acquired, err)
	}
}

func TestAcquireDayLockExpiresWithTTL(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRunLockRepo(client)
	ctx := context.Background()

	if acquired, err := repo.AcquireDayLock(ctx, "daily_match", "2026-05-10", time.Minute); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	mr.FastForward(2 * time.Minute)

	acquired, err := repo.AcquireDayLock(ctx, "daily_match", "2026-05-10", time.Minute)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if !acquired {
		t.Fatal("lock should age out with its TTL")
	}
}

func TestAcquireDayLockValidatesInput(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRunLockRepo(client)
	if _, err := repo.AcquireDayLock(context.Background(), "", "2026-05-10", time.Hour); err == nil {
		t.Fatal("expected error for empty job name")
	}
	if _, err := repo.AcquireDayLock(context.Background(), "daily_match", " ", time.Hour); err == nil {
		t.Fatal("expected error for blank day key")
	}
}
