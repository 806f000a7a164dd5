package realtime

import (
	"context"
	"errors"

	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type messageLoader interface {
	GetByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
}

// PostgresFeed listens for insert notifications on a dedicated pooled
// connection and loads each announced row through messages.
type PostgresFeed struct {
	pool     *pgxpool.Pool
	messages messageLoader
	channel  string
	log      *zap.Logger
}

func NewPostgresFeed(pool *pgxpool.Pool, messages messageLoader, log *zap.Logger) *PostgresFeed {
	return &PostgresFeed{pool: pool, messages: messages, channel: NotifyChannel, log: log}
}

func (f *PostgresFeed) Run(ctx context.Context, handle Handler) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return err
	}
	f.log.Info("listening for message inserts", zap.String("channel", f.channel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		f.deliver(ctx, []byte(notification.Payload), handle)
	}
}

func (f *PostgresFeed) deliver(ctx context.Context, payload []byte, handle Handler) {
	id, err := DecodeNotification(payload)
	if err != nil {
		f.log.Warn("skip notification", zap.Error(err))
		return
	}

	message, err := f.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			f.log.Warn("notified message no longer exists", zap.Stringer("message_id", id))
			return
		}
		f.log.Warn("load notified message", zap.Stringer("message_id", id), zap.Error(err))
		return
	}
	metrics.RealtimeEvents.WithLabelValues("postgres").Inc()
	handle(*message)
}
