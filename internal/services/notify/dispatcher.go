package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
)

// Event is what the engine exposes to the notification pipeline. Delivery,
// formatting, quiet hours and batching all live on the dispatcher side.
type Event struct {
	ParticipantID int64
	Kind          enums.NotificationKind
	PairingID     int64
}

type Dispatcher interface {
	Dispatch(ctx context.Context, events ...Event)
}

// LogDispatcher is the default dispatcher: it records the event and drops
// it. Real delivery is an external collaborator.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, events ...Event) {
	for _, event := range events {
		d.logger.Info("notification event",
			zap.Int64("participant_id", event.ParticipantID),
			zap.String("kind", string(event.Kind)),
			zap.Int64("pairing_id", event.PairingID),
		)
	}
}

// Async fires events on a detached context after a transaction commit so a
// slow dispatcher can never hold up or abort a lifecycle transition.
func Async(ctx context.Context, d Dispatcher, events ...Event) {
	if d == nil || len(events) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	go d.Dispatch(detached, events...)
}
