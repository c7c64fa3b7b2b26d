package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/redis"
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

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 100, 2)

	ctx := context.Background()
	participantID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowComment(ctx, participantID)
		if err != nil {
			t.Fatalf("allow comment #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowComment(ctx, participantID)
	if err != nil {
		t.Fatalf("allow comment #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third comment in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.AllowComment(ctx, participantID)
	if err != nil {
		t.Fatalf("allow comment after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("expected fresh window after expiry: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 3, 0)

	ctx := context.Background()
	participantID := int64(7)

	for i := 0; i < 3; i++ {
		if _, allowed, err := limiter.AllowComment(ctx, participantID); err != nil || !allowed {
			t.Fatalf("allow comment #%d: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	retryAfter, allowed, err := limiter.AllowComment(ctx, participantID)
	if err != nil {
		t.Fatalf("allow comment #4: %v", err)
	}
	if allowed {
		t.Fatal("expected limiter block on fourth comment in a minute")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("retry_after = %d, want within (0, 60]", retryAfter)
	}
}

func TestLimiterZeroLimitsDisableWindows(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 0, 0)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if _, allowed, err := limiter.AllowComment(ctx, 1); err != nil || !allowed {
			t.Fatalf("comment #%d blocked with limits disabled: allowed=%v err=%v", i+1, allowed, err)
		}
	}
}

func TestLimiterRejectsBadParticipant(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 10, 10)
	if _, _, err := limiter.AllowComment(context.Background(), 0); err == nil {
		t.Fatal("expected error for participant id 0")
	}
}
