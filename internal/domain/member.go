package domain

import "time"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	Mute     bool
	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user, JoinedAt: time.Now()}
}

type ConnectionState int

const (
	Connected ConnectionState = iota
	Disconnected
)

func (s ConnectionState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Participant is one connected user as seen by a room roster.
type Participant struct {
	ID          UserID          `json:"id"`
	DisplayName string          `json:"display_name"`
	Role        Role            `json:"role"`
	AvatarRef   string          `json:"avatar,omitempty"`
	Connection  ConnectionState `json:"connection"`
}

// Session is the authenticated identity of a client for one login.
type Session struct {
	UserID      UserID
	DisplayName string
	Role        Role
	AuthToken   string
}
