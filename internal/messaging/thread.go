package messaging

import (
	"errors"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
)

type ThreadState int

const (
	ThreadClosed ThreadState = iota
	ThreadLoading
	ThreadOpen
)

func (s ThreadState) String() string {
	switch s {
	case ThreadLoading:
		return "loading"
	case ThreadOpen:
		return "open"
	default:
		return "closed"
	}
}

var ErrThreadNotLoading = errors.New("thread is not loading")

// Thread is the state of one open conversation view. Realtime deliveries are
// at-least-once, so Merge keys rows by id and never appends a row twice.
// Not safe for concurrent use.
type Thread struct {
	self     uuid.UUID
	partner  uuid.UUID
	state    ThreadState
	messages []models.Message
	index    map[uuid.UUID]int
	err      error
}

func NewThread(self uuid.UUID) *Thread {
	return &Thread{self: self, index: make(map[uuid.UUID]int)}
}

func (t *Thread) State() ThreadState { return t.state }
func (t *Thread) Partner() uuid.UUID { return t.partner }
func (t *Thread) Err() error         { return t.err }
func (t *Thread) Self() uuid.UUID    { return t.self }
func (t *Thread) IsOpen() bool       { return t.state == ThreadOpen }

// Select starts loading the thread with partner, dropping whatever was open.
func (t *Thread) Select(partner uuid.UUID) {
	t.reset()
	t.partner = partner
	t.state = ThreadLoading
}

// Loaded finishes a Select with the fetched history.
func (t *Thread) Loaded(history []models.Message) error {
	if t.state != ThreadLoading {
		return ErrThreadNotLoading
	}
	t.state = ThreadOpen
	for _, m := range history {
		t.merge(m)
	}
	return nil
}

// Failed finishes a Select with a fetch error.
func (t *Thread) Failed(err error) {
	t.reset()
	t.err = err
}

func (t *Thread) Close() {
	t.reset()
}

// Merge applies a delivered row to the open thread. It reports whether the row
// was new. Rows for other threads are ignored.
func (t *Thread) Merge(m models.Message) bool {
	if t.state != ThreadOpen || !BelongsTo(m, t.self, t.partner) {
		return false
	}
	return t.merge(m)
}

// Lookup returns the stored version of message id.
func (t *Thread) Lookup(id uuid.UUID) (models.Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return models.Message{}, false
	}
	return t.messages[i], true
}

// Messages returns a copy of the thread in arrival order.
func (t *Thread) Messages() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Thread) merge(m models.Message) bool {
	if i, ok := t.index[m.ID]; ok {
		existing := &t.messages[i]
		if m.ReadAt != nil && (existing.ReadAt == nil || m.ReadAt.After(*existing.ReadAt)) {
			readAt := *m.ReadAt
			existing.ReadAt = &readAt
		}
		return false
	}
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
	return true
}

func (t *Thread) reset() {
	t.partner = uuid.Nil
	t.state = ThreadClosed
	t.messages = nil
	t.index = make(map[uuid.UUID]int)
	t.err = nil
}
