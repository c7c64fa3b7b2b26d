package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/rules"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrPairingNotFound        = errors.New("pairing not found")
	ErrNotAParticipant        = errors.New("participant does not belong to pairing")
	ErrAlreadyTerminal        = errors.New("pairing is already terminal")
	ErrAlreadySubmitted       = errors.New("slot photo already submitted")
	ErrConcurrentModification = errors.New("concurrent modification")
)

const defaultTxAttempts = 3

type PairingStore interface {
	Get(ctx context.Context, id int64) (model.Pairing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Pairing, error)
	UpdateSubmission(ctx context.Context, tx pgx.Tx, p model.Pairing) error
	FindForParticipantOn(ctx context.Context, participantID int64, matchDate time.Time) (model.Pairing, error)
}

type ReactionStore interface {
	Toggle(ctx context.Context, tx pgx.Tx, pairingID, participantID int64) (bool, int, error)
}

type CommentStore interface {
	Add(ctx context.Context, tx pgx.Tx, comment model.Comment) (model.Comment, error)
	ListForPairing(ctx context.Context, pairingID int64, limit int) ([]model.Comment, error)
}

type StreakLedger interface {
	ResetOnCompletion(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type CommentLimiter interface {
	AllowComment(ctx context.Context, participantID int64) (int64, bool, error)
}

type Dependencies struct {
	Runner    pgrepo.TxRunner
	Pairings  PairingStore
	Reactions ReactionStore
	Comments  CommentStore
	Streaks   StreakLedger
	Notifier  notify.Dispatcher
	Logger    *zap.Logger
}

type Config struct {
	Location   *time.Location
	TxAttempts int
}

// Service drives a pairing through its submission lifecycle. Every write is
// a single-pairing transaction with bounded retry on write conflicts;
// notifications go out only after the transaction commits.
type Service struct {
	runner    pgrepo.TxRunner
	pairings  PairingStore
	reactions ReactionStore
	comments  CommentStore
	streaks   StreakLedger
	notifier  notify.Dispatcher
	limiter   CommentLimiter
	loc       *time.Location
	attempts  int
	now       func() time.Time
	logger    *zap.Logger
}

type TooManyCommentsError struct {
	RetryAfterSec int64
}

func (e *TooManyCommentsError) Error() string {
	return fmt.Sprintf("too many comments, retry in %ds", e.RetryAfterSec)
}

func NewService(deps Dependencies, cfg Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	attempts := cfg.TxAttempts
	if attempts <= 0 {
		attempts = defaultTxAttempts
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		runner:    deps.Runner,
		pairings:  deps.Pairings,
		reactions: deps.Reactions,
		comments:  deps.Comments,
		streaks:   deps.Streaks,
		notifier:  deps.Notifier,
		loc:       loc,
		attempts:  attempts,
		now:       time.Now,
		logger:    logger,
	}
}

// AttachCommentLimiter enables comment rate limiting; without it comments
// are unthrottled.
func (s *Service) AttachCommentLimiter(limiter CommentLimiter) {
	s.limiter = limiter
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SubmitPhoto records one slot's photo and advances the pairing status,
// completing it when the partner already submitted. The read-modify-write
// runs under a row lock so two simultaneous submissions serialize into
// completed with both references set.
func (s *Service) SubmitPhoto(ctx context.Context, pairingID, participantID int64, photoRef string) (model.Pairing, error) {
	if pairingID <= 0 || participantID <= 0 || strings.TrimSpace(photoRef) == "" {
		return model.Pairing{}, ErrValidation
	}
	if s.runner == nil || s.pairings == nil {
		return model.Pairing{}, fmt.Errorf("lifecycle dependencies are not configured")
	}

	var (
		updated model.Pairing
		tr      transition
	)
	err := s.inTxWithRetry(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		p, err := s.pairings.GetForUpdate(txCtx, tx, pairingID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPairingNotFound) {
				return ErrPairingNotFound
			}
			return err
		}

		tr, err = applySubmission(&p, participantID, photoRef, s.now())
		if err != nil {
			return err
		}

		if err := s.pairings.UpdateSubmission(txCtx, tx, p); err != nil {
			return err
		}

		if tr.Completed && s.streaks != nil {
			if err := s.streaks.ResetOnCompletion(txCtx, tx, []int64{p.SlotAID, p.SlotBID}); err != nil {
				return err
			}
		}

		updated = p
		return nil
	})
	if err != nil {
		return model.Pairing{}, err
	}

	partner, _ := updated.PartnerOf(participantID)
	if tr.Completed {
		notify.Async(ctx, s.notifier,
			notify.Event{ParticipantID: updated.SlotAID, Kind: enums.NotificationKindCompleted, PairingID: updated.ID},
			notify.Event{ParticipantID: updated.SlotBID, Kind: enums.NotificationKindCompleted, PairingID: updated.ID},
		)
	} else {
		notify.Async(ctx, s.notifier,
			notify.Event{ParticipantID: partner, Kind: enums.NotificationKindPartnerSubmitted, PairingID: updated.ID},
		)
	}

	return updated, nil
}

// ToggleReaction flips the caller's like on a pairing. Reactions never
// affect lifecycle status; they only share its transactional discipline.
func (s *Service) ToggleReaction(ctx context.Context, pairingID, participantID int64) (bool, int, error) {
	if pairingID <= 0 || participantID <= 0 {
		return false, 0, ErrValidation
	}
	if s.runner == nil || s.reactions == nil {
		return false, 0, fmt.Errorf("lifecycle dependencies are not configured")
	}

	var (
		liked bool
		count int
	)
	err := s.inTxWithRetry(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		liked, count, err = s.reactions.Toggle(txCtx, tx, pairingID, participantID)
		if errors.Is(err, pgrepo.ErrPairingNotFound) {
			return ErrPairingNotFound
		}
		return err
	})
	if err != nil {
		return false, 0, err
	}

	return liked, count, nil
}

func (s *Service) AddComment(ctx context.Context, pairingID, participantID int64, body string) (model.Comment, error) {
	body = strings.TrimSpace(body)
	if pairingID <= 0 || participantID <= 0 || body == "" {
		return model.Comment{}, ErrValidation
	}
	if s.runner == nil || s.comments == nil {
		return model.Comment{}, fmt.Errorf("lifecycle dependencies are not configured")
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowComment(ctx, participantID)
		if err != nil {
			s.logger.Warn("comment rate check failed, allowing", zap.Error(err))
		} else if !allowed {
			return model.Comment{}, &TooManyCommentsError{RetryAfterSec: retryAfter}
		}
	}

	var created model.Comment
	err := s.inTxWithRetry(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		created, err = s.comments.Add(txCtx, tx, model.Comment{
			PairingID:     pairingID,
			ParticipantID: participantID,
			Body:          body,
		})
		if errors.Is(err, pgrepo.ErrPairingNotFound) {
			return ErrPairingNotFound
		}
		return err
	})
	if err != nil {
		return model.Comment{}, err
	}

	return created, nil
}

// PairingForToday returns the caller's pairing for the current local day.
func (s *Service) PairingForToday(ctx context.Context, participantID int64) (model.Pairing, error) {
	if participantID <= 0 {
		return model.Pairing{}, ErrValidation
	}
	if s.pairings == nil {
		return model.Pairing{}, fmt.Errorf("lifecycle dependencies are not configured")
	}

	p, err := s.pairings.FindForParticipantOn(ctx, participantID, rules.MatchDate(s.now(), s.loc))
	if err != nil {
		if errors.Is(err, pgrepo.ErrPairingNotFound) {
			return model.Pairing{}, ErrPairingNotFound
		}
		return model.Pairing{}, err
	}

	return p, nil
}

// GetPairing returns a pairing to one of its own participants.
func (s *Service) GetPairing(ctx context.Context, pairingID, viewerID int64) (model.Pairing, error) {
	if pairingID <= 0 || viewerID <= 0 {
		return model.Pairing{}, ErrValidation
	}
	if s.pairings == nil {
		return model.Pairing{}, fmt.Errorf("lifecycle dependencies are not configured")
	}

	p, err := s.pairings.Get(ctx, pairingID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPairingNotFound) {
			return model.Pairing{}, ErrPairingNotFound
		}
		return model.Pairing{}, err
	}
	if _, ok := p.SlotOf(viewerID); !ok {
		return model.Pairing{}, ErrNotAParticipant
	}

	return p, nil
}

func (s *Service) ListComments(ctx context.Context, pairingID, viewerID int64, limit int) ([]model.Comment, error) {
	if s.comments == nil {
		return nil, fmt.Errorf("lifecycle dependencies are not configured")
	}
	if _, err := s.GetPairing(ctx, pairingID, viewerID); err != nil {
		return nil, err
	}
	return s.comments.ListForPairing(ctx, pairingID, limit)
}

// inTxWithRetry reruns fn on transient write conflicts, surfacing
// ErrConcurrentModification once attempts are exhausted.
func (s *Service) inTxWithRetry(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		lastErr = s.runner.InTx(ctx, fn)
		if lastErr == nil || !pgrepo.IsSerializationFailure(lastErr) {
			return lastErr
		}
		s.logger.Debug("transaction conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("%w: %v", ErrConcurrentModification, lastErr)
}
