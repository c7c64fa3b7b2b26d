package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChannelStore interface {
	CreateChannel(ctx context.Context, tx pgx.Tx, ref string, pairingID, slotAID, slotBID int64) error
}

// Service creates the chat stub for a freshly matched pairing. The engine
// only ever stores the opaque channel ref; the chat product owns the rest.
type Service struct {
	store ChannelStore
}

func NewService(store ChannelStore) *Service {
	return &Service{store: store}
}

func (s *Service) NewChannelRef() string {
	return "chat_" + uuid.NewString()
}

func (s *Service) CreateChannel(ctx context.Context, tx pgx.Tx, ref string, pairingID, slotAID, slotBID int64) error {
	if s.store == nil {
		return fmt.Errorf("chat channel store is nil")
	}
	return s.store.CreateChannel(ctx, tx, ref, pairingID, slotAID, slotBID)
}
