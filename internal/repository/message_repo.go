package repository

import (
	"context"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, sender_id, receiver_id, content, created_at, read_at`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	senderID uuid.UUID,
	receiverID uuid.UUID,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(ctx, query, senderID, receiverID, content))
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, messageID))
}

// ListForUser returns every message the user sent or received, newest first.
func (r *MessageRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// ListThread returns the messages exchanged between userID and partnerID in
// ascending creation order.
func (r *MessageRepository) ListThread(
	ctx context.Context,
	userID uuid.UUID,
	partnerID uuid.UUID,
) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, userID, partnerID)
}

// MarkRead stamps read_at on the given messages addressed to readerID. Rows
// that already carry a read_at keep it. It returns the number of rows changed.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	messageIDs []uuid.UUID,
	readerID uuid.UUID,
	at time.Time,
) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET read_at = $3
		WHERE id = ANY($1)
		  AND receiver_id = $2
		  AND read_at IS NULL
	`, messageIDs, readerID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var message models.Message
	err := row.Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Content,
		&message.CreatedAt,
		&message.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
