package core

import (
	"errors"

	"github.com/dkeye/Classroom/internal/domain"
)

var ErrRoomFull = errors.New("room is full")

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []domain.Participant
	HasMember(sid SessionID) bool

	// AddMember fails with ErrRoomFull or directory.ErrHostTaken.
	AddMember(sid SessionID, ms MemberSession) error
	RemoveMember(sid SessionID) bool
	Broadcast(from SessionID, data Frame) PublishResult

	Whiteboard() *domain.WhiteboardCredentials
	SetWhiteboard(domain.WhiteboardCredentials)
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
	HasHost     bool          `json:"has_host"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	GetRoom(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	StopRoom(id domain.RoomID)
}
