// Package protocol defines the JSON frames exchanged over the classroom
// signaling websocket. Every frame carries a "type"; requests carry a "req"
// number that the server echoes on the matching response.
package protocol

import (
	"github.com/dkeye/Classroom/internal/domain"
)

type Type string

const (
	// client -> server
	TypeLogin      Type = "login"
	TypeJoin       Type = "join"
	TypeLeave      Type = "leave"
	TypeChat       Type = "chat"
	TypeWhiteboard Type = "whiteboard"
	TypePing       Type = "ping"
	TypeWhoAmI     Type = "whoami"

	// server -> client responses
	TypeLoginOK   Type = "login_ok"
	TypeRoomState Type = "room_state"
	TypeLeft      Type = "left"
	TypeChatAck   Type = "chat_ack"
	TypePong      Type = "pong"
	TypeError     Type = "error"

	// server -> client events
	TypeMemberJoined Type = "member_joined"
	TypeMemberLeft   Type = "member_left"
	TypeMessage      Type = "message"

	// media negotiation, both directions
	TypeOffer     Type = "offer"
	TypeAnswer    Type = "answer"
	TypeCandidate Type = "candidate"
)

// Error codes carried by TypeError frames.
const (
	CodeBadPayload      = "bad_payload"
	CodeInvalid         = "invalid"
	CodeNotLoggedIn     = "not_logged_in"
	CodeAlreadyLoggedIn = "already_logged_in"
	CodeRoomFull        = "room_full"
	CodeRoomNotFound    = "room_not_found"
	CodeHostTaken       = "host_taken"
	CodeNotInRoom       = "not_in_room"
	CodeNotHost         = "not_host"
	CodeRateLimited     = "rate_limited"
	CodeUnknownType     = "unknown_type"
	CodeInternal        = "internal"
)

type Header struct {
	Type Type   `json:"type"`
	Req  uint64 `json:"req,omitempty"`
}

func (h Header) Reply(t Type) Header { return Header{Type: t, Req: h.Req} }

type Login struct {
	Header
	Name string      `json:"name" validate:"required,max=36"`
	Role domain.Role `json:"role" validate:"oneof=0 1"`
}

type LoginOK struct {
	Header
	User  domain.Participant `json:"user"`
	Token string             `json:"token"`
}

type Join struct {
	Header
	Room domain.RoomID `json:"room" validate:"required,max=64"`
}

type RoomState struct {
	Header
	Room       domain.RoomID                 `json:"room"`
	Members    []domain.Participant          `json:"members"`
	Count      int                           `json:"count"`
	Whiteboard *domain.WhiteboardCredentials `json:"whiteboard,omitempty"`
}

type Chat struct {
	Header
	Room    domain.RoomID `json:"room" validate:"required"`
	Channel int           `json:"channel" validate:"gte=0"`
	Text    string        `json:"text" validate:"required,max=4096"`
}

type ChatAck struct {
	Header
	MessageID string `json:"message_id"`
	TS        int64  `json:"ts"`
}

// Message is a chat line relayed to the other members of a room.
type Message struct {
	Header
	Room      domain.RoomID      `json:"room"`
	Channel   int                `json:"channel"`
	From      domain.Participant `json:"from"`
	Text      string             `json:"text"`
	MessageID string             `json:"message_id"`
	TS        int64              `json:"ts"`
}

// Member announces a roster change (member_joined / member_left).
type Member struct {
	Header
	Room domain.RoomID      `json:"room"`
	User domain.Participant `json:"user"`
}

type Whiteboard struct {
	Header
	Room      domain.RoomID `json:"room,omitempty"`
	UUID      string        `json:"uuid" validate:"required"`
	RoomToken string        `json:"roomToken" validate:"required"`
}

func (w Whiteboard) Credentials() domain.WhiteboardCredentials {
	return domain.WhiteboardCredentials{UUID: w.UUID, RoomToken: w.RoomToken}
}

type WhoAmI struct {
	Header
	User domain.Participant `json:"user"`
	Room domain.RoomID      `json:"room,omitempty"`
}

// SDP carries an offer or an answer.
type SDP struct {
	Header
	SDP string `json:"sdp" validate:"required"`
}

type Candidate struct {
	Header
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

type Error struct {
	Header
	Code    string `json:"code"`
	Message string `json:"error"`
}
