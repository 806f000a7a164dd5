// Package realtime delivers newly inserted message rows to in-process
// subscribers. Delivery is at least once; consumers dedupe by message id.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
)

// NotifyChannel is the Postgres notification channel fed by the messages
// insert trigger.
const NotifyChannel = "messages_inserted"

type Handler func(models.Message)

// Feed streams inserted messages to handle until ctx is cancelled.
type Feed interface {
	Run(ctx context.Context, handle Handler) error
}

// DecodeNotification extracts the message id from an insert trigger
// payload. The payload carries identifiers only.
func DecodeNotification(payload []byte) (uuid.UUID, error) {
	var notice struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(payload, &notice); err != nil {
		return uuid.Nil, fmt.Errorf("decode message notification: %w", err)
	}
	if notice.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("decode message notification: missing id")
	}
	return notice.ID, nil
}

// DecodeMessage parses a full message row published as JSON.
func DecodeMessage(payload []byte) (models.Message, error) {
	var message models.Message
	if err := json.Unmarshal(payload, &message); err != nil {
		return models.Message{}, fmt.Errorf("decode message event: %w", err)
	}
	if message.ID == uuid.Nil || message.SenderID == uuid.Nil || message.ReceiverID == uuid.Nil {
		return models.Message{}, fmt.Errorf("decode message event: missing identifiers")
	}
	return message, nil
}
