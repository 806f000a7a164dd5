package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once stored except for ReadAt, which only moves from
// nil to a timestamp.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`
}

// Conversation is a derived summary of one partner's thread. It is never stored.
type Conversation struct {
	PartnerID       uuid.UUID `json:"partnerId"`
	PartnerName     string    `json:"partnerName"`
	PartnerAvatar   *string   `json:"partnerAvatar"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

type MessageGroup struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

type ThreadView struct {
	PartnerID  uuid.UUID      `json:"partner_id"`
	Messages   []Message      `json:"messages"`
	Groups     []MessageGroup `json:"groups"`
	MarkedRead int            `json:"marked_read"`
}

// ReadReceipt reports how many messages a mark-read changed and the read_at
// stamp written to them.
type ReadReceipt struct {
	Marked int       `json:"marked"`
	ReadAt time.Time `json:"read_at"`
}
