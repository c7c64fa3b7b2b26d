package streaks

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ParticipantStore interface {
	ResetFlakeStreaks(ctx context.Context, tx pgx.Tx, ids []int64) error
	ApplyFlakePenalty(ctx context.Context, tx pgx.Tx, ids []int64) error
	MarkWaitlisted(ctx context.Context, ids []int64) error
	ClearRunFlags(ctx context.Context) (int64, error)
}

// Service is the streak ledger: pure bookkeeping driven by the matching,
// lifecycle and reaper components. Nothing else calls it.
type Service struct {
	participants ParticipantStore
	logger       *zap.Logger
}

func NewService(participants ParticipantStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{participants: participants, logger: logger}
}

// ResetOnCompletion zeroes both slots' flake streaks inside the completing
// transaction.
func (s *Service) ResetOnCompletion(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if s.participants == nil {
		return fmt.Errorf("participant store is nil")
	}
	return s.participants.ResetFlakeStreaks(ctx, tx, ids)
}

// ApplyFlake increments streaks and tracks the historical maximum for slots
// that never submitted before the deadline.
func (s *Service) ApplyFlake(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if s.participants == nil {
		return fmt.Errorf("participant store is nil")
	}
	return s.participants.ApplyFlakePenalty(ctx, tx, ids)
}

// MarkWaitlisted flags today's leftover participants for priority in the
// next run.
func (s *Service) MarkWaitlisted(ctx context.Context, ids []int64) error {
	if s.participants == nil {
		return fmt.Errorf("participant store is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.participants.MarkWaitlisted(ctx, ids); err != nil {
		return err
	}
	s.logger.Info("participants waitlisted", zap.Int("count", len(ids)))
	return nil
}

// ClearRunFlags consumes the previous day's waitlist markers at run start.
func (s *Service) ClearRunFlags(ctx context.Context) error {
	if s.participants == nil {
		return fmt.Errorf("participant store is nil")
	}
	cleared, err := s.participants.ClearRunFlags(ctx)
	if err != nil {
		return err
	}
	if cleared > 0 {
		s.logger.Info("previous run flags cleared", zap.Int64("count", cleared))
	}
	return nil
}
