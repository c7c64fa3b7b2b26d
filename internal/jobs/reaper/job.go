package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	pgrepo "github.com/yudduy/cs278-bnoc-sub000/internal/repo/postgres"
	"github.com/yudduy/cs278-bnoc-sub000/internal/services/notify"
)

const defaultBatchSize = 200

// ErrPartialSweep marks a sweep that failed after committing some batches.
// Already-committed batches stand; re-running the reaper finishes the rest
// without double-penalizing anyone.
var ErrPartialSweep = errors.New("expiry sweep partially failed")

type PairingStore interface {
	ListExpiredUnresolved(ctx context.Context, now time.Time, limit int) ([]int64, error)
	FlakeBatch(ctx context.Context, tx pgx.Tx, ids []int64) ([]pgrepo.FlakedPairing, error)
}

type StreakLedger interface {
	ApplyFlake(ctx context.Context, tx pgx.Tx, ids []int64) error
}

// Job sweeps unresolved pairings past their deadline into the flaked state,
// in bounded batches committed independently.
type Job struct {
	runner    pgrepo.TxRunner
	pairings  PairingStore
	streaks   StreakLedger
	notifier  notify.Dispatcher
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

type Summary struct {
	Flaked    int
	Penalized int
	Batches   int
}

func New(runner pgrepo.TxRunner, pairings PairingStore, streaks StreakLedger, notifier notify.Dispatcher, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		runner:    runner,
		pairings:  pairings,
		streaks:   streaks,
		notifier:  notifier,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the sweep clock, for tests.
func (j *Job) SetClock(now func() time.Time) {
	if now != nil {
		j.now = now
	}
}

func (j *Job) Run(ctx context.Context) (Summary, error) {
	if j.runner == nil || j.pairings == nil || j.streaks == nil {
		return Summary{}, fmt.Errorf("reaper dependencies are not configured")
	}

	now := j.now()
	var summary Summary

	for {
		ids, err := j.pairings.ListExpiredUnresolved(ctx, now, j.batchSize)
		if err != nil {
			return summary, j.partialErr(summary, fmt.Errorf("list expired pairings: %w", err))
		}
		if len(ids) == 0 {
			break
		}

		flaked, err := j.sweepBatch(ctx, ids)
		if err != nil {
			return summary, j.partialErr(summary, err)
		}

		summary.Batches++
		summary.Flaked += len(flaked)
		for _, f := range flaked {
			summary.Penalized += len(penaltySlots(f))
		}

		j.notifyFlaked(ctx, flaked)

		if len(ids) < j.batchSize {
			break
		}
	}

	j.logger.Info("expiry sweep finished",
		zap.Int("flaked", summary.Flaked),
		zap.Int("penalized", summary.Penalized),
		zap.Int("batches", summary.Batches),
	)

	return summary, nil
}

// sweepBatch commits one batch independently: the flake transition and the
// streak penalties for never-submitted slots land together or not at all.
func (j *Job) sweepBatch(ctx context.Context, ids []int64) ([]pgrepo.FlakedPairing, error) {
	var flaked []pgrepo.FlakedPairing
	err := j.runner.InTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		flaked, err = j.pairings.FlakeBatch(txCtx, tx, ids)
		if err != nil {
			return err
		}

		penalties := make([]int64, 0, len(flaked)*2)
		for _, f := range flaked {
			penalties = append(penalties, penaltySlots(f)...)
		}

		return j.streaks.ApplyFlake(txCtx, tx, penalties)
	})
	if err != nil {
		return nil, fmt.Errorf("sweep batch of %d: %w", len(ids), err)
	}

	return flaked, nil
}

// penaltySlots returns the participants to penalize: only slots that never
// submitted, even though the pairing as a whole flaked.
func penaltySlots(f pgrepo.FlakedPairing) []int64 {
	ids := make([]int64, 0, 2)
	if !f.SlotASubmitted {
		ids = append(ids, f.SlotAID)
	}
	if !f.SlotBSubmitted {
		ids = append(ids, f.SlotBID)
	}
	return ids
}

func (j *Job) notifyFlaked(ctx context.Context, flaked []pgrepo.FlakedPairing) {
	if len(flaked) == 0 {
		return
	}
	events := make([]notify.Event, 0, len(flaked)*2)
	for _, f := range flaked {
		events = append(events,
			notify.Event{ParticipantID: f.SlotAID, Kind: enums.NotificationKindFlaked, PairingID: f.ID},
			notify.Event{ParticipantID: f.SlotBID, Kind: enums.NotificationKindFlaked, PairingID: f.ID},
		)
	}
	notify.Async(ctx, j.notifier, events...)
}

func (j *Job) partialErr(summary Summary, err error) error {
	if summary.Batches == 0 {
		return err
	}
	j.logger.Error("expiry sweep failed after committed batches",
		zap.Error(err),
		zap.Int("committed_batches", summary.Batches),
	)
	return fmt.Errorf("%w after %d batches: %v", ErrPartialSweep, summary.Batches, err)
}
