package client

import (
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

// Event is anything the server pushes without being asked.
type Event interface{ event() }

// RoomJoined carries the snapshot the server answered a join with. It is
// raised before any presence or chat event of that room.
type RoomJoined struct {
	Room domain.Room
}

// RoomLeft is raised when the login is no longer in Room, whether it left
// or the server closed the room.
type RoomLeft struct {
	Room domain.RoomID
}

type ParticipantJoined struct {
	Room        domain.RoomID
	Participant domain.Participant
}

type ParticipantLeft struct {
	Room        domain.RoomID
	Participant domain.Participant
}

type MessageReceived struct {
	Room     domain.RoomID
	Channel  int
	From     domain.Participant
	Text     string
	RemoteID string
	SentAt   time.Time
}

// ConnectionLost is raised once per login when the link drops on its own.
// Logout never raises it.
type ConnectionLost struct {
	Err error
}

type WhiteboardShared struct {
	Room        domain.RoomID
	Credentials domain.WhiteboardCredentials
}

func (RoomJoined) event()        {}
func (RoomLeft) event()          {}
func (ParticipantJoined) event() {}
func (ParticipantLeft) event()   {}
func (MessageReceived) event()   {}
func (ConnectionLost) event()    {}
func (WhiteboardShared) event()  {}
