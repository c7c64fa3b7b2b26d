package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepo(pool *pgxpool.Pool) *ReactionRepo {
	return &ReactionRepo{pool: pool}
}

// Toggle flips the participant's like on a pairing and returns the new state
// plus the resulting counter. The counter is recomputed from the toggled row
// inside the same transaction, never from a cached value, so concurrent
// toggles cannot lose updates.
func (r *ReactionRepo) Toggle(ctx context.Context, tx pgx.Tx, pairingID, participantID int64) (bool, int, error) {
	if pairingID <= 0 || participantID <= 0 {
		return false, 0, fmt.Errorf("invalid reaction payload")
	}
	if tx == nil {
		return false, 0, fmt.Errorf("transaction is required")
	}

	var one int
	liked := false
	err := tx.QueryRow(ctx, `
SELECT 1
FROM pairing_reactions
WHERE pairing_id = $1 AND participant_id = $2
FOR UPDATE
`, pairingID, participantID).Scan(&one)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx, `
DELETE FROM pairing_reactions
WHERE pairing_id = $1 AND participant_id = $2
`, pairingID, participantID); err != nil {
			return false, 0, fmt.Errorf("remove reaction: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `
INSERT INTO pairing_reactions (pairing_id, participant_id, created_at)
VALUES ($1, $2, NOW())
`, pairingID, participantID); err != nil {
			return false, 0, fmt.Errorf("add reaction: %w", err)
		}
		liked = true
	default:
		return false, 0, fmt.Errorf("lookup reaction: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `
UPDATE pairings
SET like_count = (
	SELECT COUNT(*) FROM pairing_reactions WHERE pairing_id = $1
)
WHERE id = $1
RETURNING like_count
`, pairingID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrPairingNotFound
		}
		return false, 0, fmt.Errorf("refresh like count: %w", err)
	}

	return liked, count, nil
}
