package matching

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/rules"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
)

type ParticipantStore interface {
	ListEligible(ctx context.Context, now time.Time, recencyWindow time.Duration, flakeCutoff int) ([]model.Participant, error)
	ClearRunFlagsFor(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type BlockStore interface {
	ListPairsAmong(ctx context.Context, participantIDs []int64) ([]pgrepo.BlockedPair, error)
}

type PairingStore interface {
	Create(ctx context.Context, tx pgx.Tx, p *model.Pairing) error
	ListPartnerEdgesSince(ctx context.Context, since time.Time) ([]pgrepo.PartnerEdge, error)
	ListParticipantIDsPairedOn(ctx context.Context, matchDate time.Time) ([]int64, error)
}

type ChatService interface {
	NewChannelRef() string
	CreateChannel(ctx context.Context, tx pgx.Tx, ref string, pairingID, slotAID, slotBID int64) error
}

type StreakLedger interface {
	MarkWaitlisted(ctx context.Context, ids []int64) error
	ClearRunFlags(ctx context.Context) error
}

type Config struct {
	Location       *time.Location
	DeadlineHour   int
	DeadlineMinute int
	RecencyWindow  time.Duration
	HistoryWindow  time.Duration
	FlakeCutoff    int
	// Seed fixes the shuffle for reproducible runs; zero means a fresh
	// time-based seed per run.
	Seed int64
}

type Dependencies struct {
	Runner       pgrepo.TxRunner
	Participants ParticipantStore
	Blocks       BlockStore
	Pairings     PairingStore
	Chat         ChatService
	Streaks      StreakLedger
	Notifier     notify.Dispatcher
	Logger       *zap.Logger
}

// Service runs the daily match: eligibility, recent-partner history, greedy
// pairing, and persisting each pair atomically with its chat stub.
type Service struct {
	runner       pgrepo.TxRunner
	participants ParticipantStore
	blocks       BlockStore
	pairings     PairingStore
	chat         ChatService
	streaks      StreakLedger
	notifier     notify.Dispatcher
	cfg          Config
	now          func() time.Time
	logger       *zap.Logger
}

type Summary struct {
	MatchDate  time.Time
	Eligible   int
	Paired     int
	Waitlisted int
	Failed     int
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DeadlineHour == 0 {
		cfg.DeadlineHour = rules.DefaultDeadlineHour
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = rules.DefaultRecencyWindow
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = rules.DefaultHistoryWindow
	}
	if cfg.FlakeCutoff <= 0 {
		cfg.FlakeCutoff = rules.DefaultFlakeStreakCutoff
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		runner:       deps.Runner,
		participants: deps.Participants,
		blocks:       deps.Blocks,
		pairings:     deps.Pairings,
		chat:         deps.Chat,
		streaks:      deps.Streaks,
		notifier:     deps.Notifier,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// SetClock overrides the run clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RunDaily executes one match run. Participants already paired today are
// excluded up front, so an accidental second invocation re-matches nobody.
func (s *Service) RunDaily(ctx context.Context) (Summary, error) {
	if s.runner == nil || s.participants == nil || s.blocks == nil || s.pairings == nil || s.chat == nil || s.streaks == nil {
		return Summary{}, fmt.Errorf("match run dependencies are not configured")
	}

	now := s.now()
	matchDate := rules.MatchDate(now, s.cfg.Location)
	summary := Summary{MatchDate: matchDate}

	eligible, err := s.participants.ListEligible(ctx, now, s.cfg.RecencyWindow, s.cfg.FlakeCutoff)
	if err != nil {
		return summary, fmt.Errorf("list eligible participants: %w", err)
	}

	alreadyPaired, err := s.pairings.ListParticipantIDsPairedOn(ctx, matchDate)
	if err != nil {
		return summary, fmt.Errorf("list already paired participants: %w", err)
	}
	pairedSet := make(map[int64]struct{}, len(alreadyPaired))
	for _, id := range alreadyPaired {
		pairedSet[id] = struct{}{}
	}

	candidates := make([]Candidate, 0, len(eligible))
	ids := make([]int64, 0, len(eligible))
	for _, p := range eligible {
		if _, dup := pairedSet[p.ID]; dup {
			continue
		}
		candidates = append(candidates, Candidate{ID: p.ID, Priority: p.PriorityNextPairing})
		ids = append(ids, p.ID)
	}
	summary.Eligible = len(candidates)

	// Consume the previous run's waitlist markers now that the priority
	// flags are snapshotted into the candidate list.
	if err := s.streaks.ClearRunFlags(ctx); err != nil {
		return summary, fmt.Errorf("clear previous run flags: %w", err)
	}

	cons, err := s.buildConstraints(ctx, now, ids)
	if err != nil {
		return summary, err
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := MatchPool(candidates, cons, rng)

	for _, pair := range result.Pairs {
		if err := s.persistPair(ctx, pair, matchDate, now); err != nil {
			summary.Failed++
			s.logger.Error("persist pair failed",
				zap.Error(err),
				zap.Int64("slot_a", pair.A),
				zap.Int64("slot_b", pair.B),
			)
			continue
		}
		summary.Paired += 2
	}

	if err := s.streaks.MarkWaitlisted(ctx, result.Waitlist); err != nil {
		return summary, fmt.Errorf("mark waitlisted participants: %w", err)
	}
	summary.Waitlisted = len(result.Waitlist)

	s.logger.Info("daily match run finished",
		zap.Time("match_date", matchDate),
		zap.Int("eligible", summary.Eligible),
		zap.Int("paired", summary.Paired),
		zap.Int("waitlisted", summary.Waitlisted),
		zap.Int("failed_pairs", summary.Failed),
	)

	return summary, nil
}

func (s *Service) buildConstraints(ctx context.Context, now time.Time, ids []int64) (*Constraints, error) {
	cons := NewConstraints()

	blocked, err := s.blocks.ListPairsAmong(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list blocked pairs: %w", err)
	}
	for _, pair := range blocked {
		cons.AddBlock(pair.ActorID, pair.TargetID)
	}

	edges, err := s.pairings.ListPartnerEdgesSince(ctx, now.Add(-s.cfg.HistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("list partner history: %w", err)
	}
	for _, edge := range edges {
		cons.AddRecentPartner(edge.SlotAID, edge.SlotBID)
	}

	return cons, nil
}

// persistPair writes one matched pair: the pending pairing record, its chat
// stub, and both participants' cleared run flags, all in one transaction.
func (s *Service) persistPair(ctx context.Context, pair Pair, matchDate, now time.Time) error {
	chatRef := s.chat.NewChannelRef()
	pairing := model.Pairing{
		MatchDate: matchDate,
		ExpiresAt: rules.DeadlineAt(now, s.cfg.Location, s.cfg.DeadlineHour, s.cfg.DeadlineMinute),
		SlotAID:   pair.A,
		SlotBID:   pair.B,
		Status:    enums.PairingStatusPending,
		ChatRef:   chatRef,
	}

	err := s.runner.InTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.pairings.Create(txCtx, tx, &pairing); err != nil {
			return err
		}
		if err := s.chat.CreateChannel(txCtx, tx, chatRef, pairing.ID, pair.A, pair.B); err != nil {
			return err
		}
		return s.participants.ClearRunFlagsFor(txCtx, tx, []int64{pair.A, pair.B})
	})
	if err != nil {
		return err
	}

	notify.Async(ctx, s.notifier,
		notify.Event{ParticipantID: pair.A, Kind: enums.NotificationKindMatched, PairingID: pairing.ID},
		notify.Event{ParticipantID: pair.B, Kind: enums.NotificationKindMatched, PairingID: pairing.ID},
	)

	return nil
}
