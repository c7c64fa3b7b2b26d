package rules

import (
	"time"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
)

const (
	DefaultRecencyWindow     = 72 * time.Hour
	DefaultHistoryWindow     = 7 * 24 * time.Hour
	DefaultFlakeStreakCutoff = 5
)

// Eligible reports whether a participant may enter today's match run:
// active, seen within the recency window, and below the flake-streak cutoff.
func Eligible(p model.Participant, now time.Time, recency time.Duration, flakeCutoff int) bool {
	if recency <= 0 {
		recency = DefaultRecencyWindow
	}
	if flakeCutoff <= 0 {
		flakeCutoff = DefaultFlakeStreakCutoff
	}
	if !p.Active {
		return false
	}
	if p.LastActiveAt.Before(now.Add(-recency)) {
		return false
	}
	return p.FlakeStreak < flakeCutoff
}
