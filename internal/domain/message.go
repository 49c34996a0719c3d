package domain

import (
	"errors"
	"sync"
	"time"
)

var ErrInvalidTransition = errors.New("invalid delivery state transition")

type MessageID int64

type DeliveryState int

const (
	Pending DeliveryState = iota
	Delivered
	Failed
)

func (s DeliveryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatMessage is an entry of the room's append-only chat log.
type ChatMessage struct {
	ID         MessageID
	RemoteID   string
	Room       RoomID
	Channel    int
	SenderID   UserID
	SenderName string
	AvatarRef  string
	Text       string
	FromMe     bool
	State      DeliveryState
	SentAt     time.Time
}

// Settle moves a pending message to its final delivery state.
// A message settles exactly once.
func (m *ChatMessage) Settle(to DeliveryState) error {
	if m.State != Pending || (to != Delivered && to != Failed) {
		return ErrInvalidTransition
	}
	m.State = to
	return nil
}

// MessageIDs hands out timestamp-derived ids that are strictly increasing
// even when several messages are created within the same millisecond.
type MessageIDs struct {
	mu   sync.Mutex
	last MessageID
	now  func() time.Time
}

func NewMessageIDs() *MessageIDs {
	return &MessageIDs{now: time.Now}
}

func (g *MessageIDs) Next() MessageID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := MessageID(g.now().UnixMilli())
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
