// Package messaging derives conversation summaries and open-thread state from
// flat message rows. Nothing in here touches storage.
package messaging

import (
	"sort"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DateGroupLayout = "January 2, 2006"

// PartnerOf returns the other participant of m relative to self. A message
// sent to oneself resolves to self.
func PartnerOf(m models.Message, self uuid.UUID) uuid.UUID {
	if m.SenderID == self {
		return m.ReceiverID
	}
	return m.SenderID
}

// PartnerIDs lists distinct partners in order of first appearance.
func PartnerIDs(messages []models.Message, self uuid.UUID) []uuid.UUID {
	return lo.Uniq(lo.Map(messages, func(m models.Message, _ int) uuid.UUID {
		return PartnerOf(m, self)
	}))
}

// Project groups messages by partner and summarises each thread. Conversations
// are ordered by last message time, newest first; equal times keep the order
// in which partners first appear in messages.
func Project(messages []models.Message, self uuid.UUID, profiles map[uuid.UUID]models.Profile) []models.Conversation {
	type partition struct {
		last   models.Message
		unread int
	}

	order := make([]uuid.UUID, 0)
	partitions := make(map[uuid.UUID]*partition)
	for _, m := range messages {
		partnerID := PartnerOf(m, self)
		p, ok := partitions[partnerID]
		if !ok {
			p = &partition{last: m}
			partitions[partnerID] = p
			order = append(order, partnerID)
		} else if m.CreatedAt.After(p.last.CreatedAt) {
			p.last = m
		}
		if isUnreadFrom(m, self, partnerID) {
			p.unread++
		}
	}

	conversations := make([]models.Conversation, 0, len(order))
	for _, partnerID := range order {
		p := partitions[partnerID]
		conversation := models.Conversation{
			PartnerID:       partnerID,
			PartnerName:     models.UnknownUserName,
			LastMessage:     p.last.Content,
			LastMessageTime: p.last.CreatedAt,
			UnreadCount:     p.unread,
		}
		if profile, ok := profiles[partnerID]; ok {
			conversation.PartnerName = profile.DisplayName()
			conversation.PartnerAvatar = profile.AvatarURL
		}
		conversations = append(conversations, conversation)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessageTime.After(conversations[j].LastMessageTime)
	})
	return conversations
}

// UnreadAddressedTo returns ids of messages sent to self that have no read
// timestamp yet.
func UnreadAddressedTo(messages []models.Message, self uuid.UUID) []uuid.UUID {
	unread := lo.Filter(messages, func(m models.Message, _ int) bool {
		return m.ReceiverID == self && m.ReadAt == nil
	})
	return lo.Map(unread, func(m models.Message, _ int) uuid.UUID { return m.ID })
}

// BelongsTo reports whether m is part of the thread between self and partner.
func BelongsTo(m models.Message, self, partner uuid.UUID) bool {
	return (m.SenderID == self && m.ReceiverID == partner) ||
		(m.SenderID == partner && m.ReceiverID == self)
}

// GroupByDate splits an ascending thread into calendar days in loc.
func GroupByDate(messages []models.Message, loc *time.Location) []models.MessageGroup {
	if loc == nil {
		loc = time.UTC
	}
	groups := make([]models.MessageGroup, 0)
	for _, m := range messages {
		label := m.CreatedAt.In(loc).Format(DateGroupLayout)
		if n := len(groups); n > 0 && groups[n-1].Date == label {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, models.MessageGroup{Date: label, Messages: []models.Message{m}})
	}
	return groups
}

func isUnreadFrom(m models.Message, self, partner uuid.UUID) bool {
	return m.ReceiverID == self && m.SenderID == partner && m.ReadAt == nil
}
