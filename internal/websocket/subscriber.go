package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/messaging"
	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	FrameOpen          = "open"
	FrameClose         = "close"
	FrameSend          = "send"
	FrameRefresh       = "refresh"
	FrameThread        = "thread"
	FrameThreadClosed  = "thread_closed"
	FrameMessage       = "message"
	FrameSent          = "sent"
	FrameConversations = "conversations"
	FrameError         = "error"
)

// Conn is the part of a websocket connection a subscriber uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type chatService interface {
	ListConversations(ctx context.Context, sess models.AuthSession) []models.Conversation
	OpenThread(ctx context.Context, sess models.AuthSession, partnerID uuid.UUID, loc *time.Location) (*models.ThreadView, error)
	Send(ctx context.Context, sess models.AuthSession, receiverID uuid.UUID, content string) (*models.Message, error)
	MarkRead(ctx context.Context, sess models.AuthSession, ids []uuid.UUID) (models.ReadReceipt, error)
}

type InboundFrame struct {
	Type       string `json:"type"`
	PartnerID  string `json:"partner_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

type OutboundFrame struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Subscriber binds one websocket connection to one authenticated user. A
// single goroutine owns the open thread and performs every write.
type Subscriber struct {
	hub      *Hub
	conn     Conn
	sess     models.AuthSession
	service  chatService
	loc      *time.Location
	log      *zap.Logger
	events   chan models.Message
	commands chan InboundFrame
	thread   *messaging.Thread
}

func NewSubscriber(
	hub *Hub,
	conn Conn,
	sess models.AuthSession,
	service chatService,
	loc *time.Location,
	log *zap.Logger,
) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		hub:      hub,
		conn:     conn,
		sess:     sess,
		service:  service,
		loc:      loc,
		log:      log.With(zap.Stringer("user_id", sess.UserID)),
		events:   make(chan models.Message, 32),
		commands: make(chan InboundFrame),
		thread:   messaging.NewThread(sess.UserID),
	}
}

// Serve runs the subscription until the connection closes, ctx is cancelled
// or the hub drops the subscriber.
func (s *Subscriber) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	readDone := make(chan struct{})
	defer func() {
		cancel()
		s.hub.Unregister(s)
		_ = s.conn.Close()
		<-readDone
		metrics.RealtimeSubscribers.Dec()
	}()
	metrics.RealtimeSubscribers.Inc()

	if !s.hub.Register(s) {
		close(readDone)
		return
	}
	go s.readPump(ctx, cancel, readDone)

	if err := s.pushConversations(ctx); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-s.events:
			if !ok {
				return
			}
			if err := s.handleEvent(ctx, message); err != nil {
				return
			}
		case frame := <-s.commands:
			if err := s.handleCommand(ctx, frame); err != nil {
				return
			}
		}
	}
}

func (s *Subscriber) readPump(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	defer cancel()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			frame = InboundFrame{Type: FrameError, Content: "invalid frame payload"}
		}

		select {
		case s.commands <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent merges an insert into the open thread, marks it read when it
// is addressed to this user and refreshes the conversation list.
func (s *Subscriber) handleEvent(ctx context.Context, message models.Message) error {
	if s.thread.IsOpen() && messaging.BelongsTo(message, s.sess.UserID, s.thread.Partner()) {
		if s.thread.Merge(message) {
			if message.ReceiverID == s.sess.UserID && message.ReadAt == nil {
				s.markRead(ctx, message)
			}
			stored, _ := s.thread.Lookup(message.ID)
			if err := s.write(OutboundFrame{Type: FrameMessage, State: s.thread.State().String(), Data: stored}); err != nil {
				return err
			}
		}
	}
	return s.pushConversations(ctx)
}

func (s *Subscriber) markRead(ctx context.Context, message models.Message) {
	receipt, err := s.service.MarkRead(ctx, s.sess, []uuid.UUID{message.ID})
	if err != nil {
		s.log.Warn("mark realtime message read", zap.Stringer("message_id", message.ID), zap.Error(err))
		return
	}
	if receipt.Marked == 0 {
		return
	}
	readAt := receipt.ReadAt
	message.ReadAt = &readAt
	s.thread.Merge(message)
}

func (s *Subscriber) handleCommand(ctx context.Context, frame InboundFrame) error {
	switch frame.Type {
	case FrameOpen:
		partnerID, err := uuid.Parse(frame.PartnerID)
		if err != nil {
			return s.writeError("invalid partner_id")
		}
		s.thread.Select(partnerID)
		view, err := s.service.OpenThread(ctx, s.sess, partnerID, s.loc)
		if err != nil {
			s.thread.Failed(err)
			s.log.Warn("open thread", zap.Stringer("partner_id", partnerID), zap.Error(err))
			return s.writeError("failed to load conversation")
		}
		if err := s.thread.Loaded(view.Messages); err != nil {
			return s.writeError(err.Error())
		}
		if err := s.write(OutboundFrame{Type: FrameThread, State: s.thread.State().String(), Data: view}); err != nil {
			return err
		}
		if view.MarkedRead > 0 {
			return s.pushConversations(ctx)
		}
		return nil
	case FrameClose:
		s.thread.Close()
		return s.write(OutboundFrame{Type: FrameThreadClosed, State: s.thread.State().String()})
	case FrameSend:
		receiverID := s.thread.Partner()
		if frame.ReceiverID != "" {
			parsed, err := uuid.Parse(frame.ReceiverID)
			if err != nil {
				return s.writeError("invalid receiver_id")
			}
			receiverID = parsed
		}
		message, err := s.service.Send(ctx, s.sess, receiverID, frame.Content)
		if err != nil {
			return s.writeError(sendErrorMessage(err))
		}
		s.thread.Merge(*message)
		return s.write(OutboundFrame{Type: FrameSent, State: s.thread.State().String(), Data: message})
	case FrameRefresh:
		return s.pushConversations(ctx)
	case FrameError:
		return s.writeError(frame.Content)
	default:
		return s.writeError("unsupported frame type")
	}
}

func (s *Subscriber) pushConversations(ctx context.Context) error {
	return s.write(OutboundFrame{Type: FrameConversations, Data: s.service.ListConversations(ctx, s.sess)})
}

func (s *Subscriber) writeError(message string) error {
	return s.write(OutboundFrame{Type: FrameError, State: s.thread.State().String(), Error: message})
}

func (s *Subscriber) write(frame OutboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.log.Error("encode frame", zap.String("type", frame.Type), zap.Error(err))
		return nil
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyContent):
		return "Message content is required"
	case errors.Is(err, services.ErrContentTooLong):
		return "Message content must be under 10000 characters"
	case errors.Is(err, services.ErrSelfMessage):
		return "You cannot message yourself"
	case errors.Is(err, services.ErrInvalidInput):
		return "Select a conversation first"
	default:
		return "failed to send message"
	}
}
