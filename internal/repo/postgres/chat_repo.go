package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// CreateChannel persists the chat stub for a pairing. Runs inside the same
// transaction as the pairing insert so the two never exist apart.
func (r *ChatRepo) CreateChannel(ctx context.Context, tx pgx.Tx, ref string, pairingID, slotAID, slotBID int64) error {
	if strings.TrimSpace(ref) == "" || pairingID <= 0 || slotAID <= 0 || slotBID <= 0 {
		return fmt.Errorf("invalid chat channel payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO chat_channels (
	ref,
	pairing_id,
	slot_a_id,
	slot_b_id,
	created_at
) VALUES ($1, $2, $3, $4, NOW())
`, ref, pairingID, slotAID, slotBID); err != nil {
		return fmt.Errorf("create chat channel: %w", err)
	}

	return nil
}
