package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
)

type ParticipantRepo struct {
	pool *pgxpool.Pool
}

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

// ListEligible returns participants allowed into a match run: active, seen
// within the recency window, and below the flake-streak cutoff. Priority
// participants come first so runs read naturally in logs.
func (r *ParticipantRepo) ListEligible(ctx context.Context, now time.Time, recencyWindow time.Duration, flakeCutoff int) ([]model.Participant, error) {
	if recencyWindow <= 0 || flakeCutoff <= 0 {
		return nil, fmt.Errorf("invalid eligibility window payload")
	}
	if r.pool == nil {
		return []model.Participant{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	active,
	last_active_at,
	flake_streak,
	max_flake_streak,
	waitlisted_today,
	priority_next_pairing,
	created_at,
	updated_at
FROM participants
WHERE
	active = TRUE
	AND last_active_at >= $1
	AND flake_streak < $2
ORDER BY priority_next_pairing DESC, last_active_at DESC, id
`, now.Add(-recencyWindow), flakeCutoff)
	if err != nil {
		return nil, fmt.Errorf("list eligible participants: %w", err)
	}
	defer rows.Close()

	items := make([]model.Participant, 0, 64)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(
			&p.ID,
			&p.Active,
			&p.LastActiveAt,
			&p.FlakeStreak,
			&p.MaxFlakeStreak,
			&p.WaitlistedToday,
			&p.PriorityNextPairing,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan eligible participant: %w", err)
		}
		items = append(items, p)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate eligible participants: %w", rows.Err())
	}

	return items, nil
}

// ClearRunFlags consumes the previous run's waitlist markers. Called once at
// the start of a match run, before new markers are written.
func (r *ParticipantRepo) ClearRunFlags(ctx context.Context) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
UPDATE participants
SET waitlisted_today = FALSE, priority_next_pairing = FALSE, updated_at = NOW()
WHERE waitlisted_today OR priority_next_pairing
`)
	if err != nil {
		return 0, fmt.Errorf("clear run flags: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *ParticipantRepo) ClearRunFlagsFor(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
UPDATE participants
SET waitlisted_today = FALSE, priority_next_pairing = FALSE, updated_at = NOW()
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return fmt.Errorf("clear run flags for participants: %w", err)
	}

	return nil
}

// MarkWaitlisted flags leftover participants for priority in the next run.
func (r *ParticipantRepo) MarkWaitlisted(ctx context.Context, ids []int64) error {
	if r.pool == nil || len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `
UPDATE participants
SET waitlisted_today = TRUE, priority_next_pairing = TRUE, updated_at = NOW()
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return fmt.Errorf("mark participants waitlisted: %w", err)
	}

	return nil
}

func (r *ParticipantRepo) ResetFlakeStreaks(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
UPDATE participants
SET flake_streak = 0, updated_at = NOW()
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return fmt.Errorf("reset flake streaks: %w", err)
	}

	return nil
}

// ApplyFlakePenalty increments the streak and tracks the historical maximum
// in the same statement so re-reads inside the batch stay consistent.
func (r *ParticipantRepo) ApplyFlakePenalty(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
UPDATE participants
SET
	flake_streak = flake_streak + 1,
	max_flake_streak = GREATEST(max_flake_streak, flake_streak + 1),
	updated_at = NOW()
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return fmt.Errorf("apply flake penalty: %w", err)
	}

	return nil
}
