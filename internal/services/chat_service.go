package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/acadbuddy/acadbuddy-api/internal/messaging"
	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxContentLength bounds chat messages and assistant turns, in characters.
const MaxContentLength = 10000

type messageStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Message, error)
	ListThread(ctx context.Context, userID uuid.UUID, partnerID uuid.UUID) ([]models.Message, error)
	Create(ctx context.Context, senderID uuid.UUID, receiverID uuid.UUID, content string) (*models.Message, error)
	MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID, at time.Time) (int64, error)
}

type profileDirectory interface {
	ListByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

// MessagePublisher pushes a stored message onto the realtime feed. Feeds that
// learn about inserts from the database itself do not need one.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, message models.Message) error
}

type ChatService struct {
	messages  messageStore
	profiles  profileDirectory
	publisher MessagePublisher
	log       *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewChatService(
	messages messageStore,
	profiles profileDirectory,
	publisher MessagePublisher,
	log *zap.Logger,
	loc *time.Location,
) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ChatService{
		messages:  messages,
		profiles:  profiles,
		publisher: publisher,
		log:       log,
		loc:       loc,
		now:       time.Now,
	}
}

// ListConversations never fails: a fetch error is logged and the caller gets
// an empty list.
func (s *ChatService) ListConversations(ctx context.Context, sess models.AuthSession) []models.Conversation {
	messages, err := s.messages.ListForUser(ctx, sess.UserID)
	if err != nil {
		s.log.Error("list messages for conversations", zap.Stringer("user_id", sess.UserID), zap.Error(err))
		return []models.Conversation{}
	}

	partnerIDs := messaging.PartnerIDs(messages, sess.UserID)
	profiles, err := s.profiles.ListByUserIDs(ctx, partnerIDs)
	if err != nil {
		s.log.Warn("load partner profiles", zap.Int("partners", len(partnerIDs)), zap.Error(err))
		profiles = nil
	}

	return messaging.Project(messages, sess.UserID, profiles)
}

// OpenThread loads the full history with partnerID and marks every message
// addressed to the caller as read. Opening an already read thread writes
// nothing.
func (s *ChatService) OpenThread(
	ctx context.Context,
	sess models.AuthSession,
	partnerID uuid.UUID,
	loc *time.Location,
) (*models.ThreadView, error) {
	if partnerID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	if loc == nil {
		loc = s.loc
	}

	history, err := s.messages.ListThread(ctx, sess.UserID, partnerID)
	if err != nil {
		return nil, err
	}

	receipt, err := s.markRead(ctx, sess, messaging.UnreadAddressedTo(history, sess.UserID), history)
	if err != nil {
		return nil, err
	}

	return &models.ThreadView{
		PartnerID:  partnerID,
		Messages:   history,
		Groups:     messaging.GroupByDate(history, loc),
		MarkedRead: receipt.Marked,
	}, nil
}

// Send stores a message from the caller to receiverID and returns the stored
// row. Publishing to the realtime feed is best effort.
func (s *ChatService) Send(
	ctx context.Context,
	sess models.AuthSession,
	receiverID uuid.UUID,
	content string,
) (*models.Message, error) {
	if receiverID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	if receiverID == sess.UserID {
		return nil, ErrSelfMessage
	}

	trimmed, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	message, err := s.messages.Create(ctx, sess.UserID, receiverID, trimmed)
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, *message); err != nil {
			s.log.Warn("publish message", zap.Stringer("message_id", message.ID), zap.Error(err))
		}
	}
	return message, nil
}

// MarkRead stamps read_at on ids addressed to the caller. Ids sent by the
// caller or already read are left untouched. The receipt carries the stamp
// as stored.
func (s *ChatService) MarkRead(ctx context.Context, sess models.AuthSession, ids []uuid.UUID) (models.ReadReceipt, error) {
	return s.markRead(ctx, sess, ids, nil)
}

func (s *ChatService) markRead(
	ctx context.Context,
	sess models.AuthSession,
	ids []uuid.UUID,
	loaded []models.Message,
) (models.ReadReceipt, error) {
	// timestamptz keeps microseconds
	at := s.now().UTC().Truncate(time.Microsecond)
	if len(ids) == 0 {
		return models.ReadReceipt{ReadAt: at}, nil
	}

	affected, err := s.messages.MarkRead(ctx, ids, sess.UserID, at)
	if err != nil {
		return models.ReadReceipt{}, err
	}
	metrics.MessagesMarkedRead.Add(float64(affected))

	pending := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	for i := range loaded {
		if _, ok := pending[loaded[i].ID]; ok && loaded[i].ReadAt == nil {
			stamp := at
			loaded[i].ReadAt = &stamp
		}
	}
	return models.ReadReceipt{Marked: int(affected), ReadAt: at}, nil
}

// NormalizeContent trims content and enforces the length bounds shared by
// chat messages.
func NormalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}
