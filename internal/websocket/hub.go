package chatws

import (
	"context"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub routes message inserts to the subscribers of the sender and the
// receiver. Only the Run goroutine touches the subscriber sets.
type Hub struct {
	clients    map[uuid.UUID]map[*Subscriber]struct{}
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan models.Message
	done       chan struct{}
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Subscriber]struct{}),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan models.Message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for userID, set := range h.clients {
				for sub := range set {
					close(sub.events)
				}
				delete(h.clients, userID)
			}
			return
		case sub := <-h.register:
			set, ok := h.clients[sub.sess.UserID]
			if !ok {
				set = make(map[*Subscriber]struct{})
				h.clients[sub.sess.UserID] = set
			}
			set[sub] = struct{}{}
		case sub := <-h.unregister:
			h.remove(sub)
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Register returns false when the hub has stopped.
func (h *Hub) Register(sub *Subscriber) bool {
	select {
	case h.register <- sub:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish hands an inserted message to the hub. It matches realtime.Handler.
func (h *Hub) Publish(message models.Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *Hub) deliver(message models.Message) {
	h.sendToUser(message.SenderID, message)
	if message.ReceiverID != message.SenderID {
		h.sendToUser(message.ReceiverID, message)
	}
}

func (h *Hub) sendToUser(userID uuid.UUID, message models.Message) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for sub := range set {
		select {
		case sub.events <- message:
		default:
			h.log.Warn("dropping slow subscriber", zap.Stringer("user_id", userID))
			delete(set, sub)
			close(sub.events)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) remove(sub *Subscriber) {
	set, ok := h.clients[sub.sess.UserID]
	if !ok {
		return
	}
	if _, exists := set[sub]; exists {
		delete(set, sub)
		close(sub.events)
	}
	if len(set) == 0 {
		delete(h.clients, sub.sess.UserID)
	}
}
