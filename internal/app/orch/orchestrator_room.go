package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

// Join moves the session into roomID. A host opens the room, a participant
// may only enter a room that is already open. A session sits in one room at
// a time, so the previous one is left first.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID) (core.RoomService, error) {
	user, err := o.Registry.User(sid)
	if err != nil {
		return nil, err
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return nil, ErrNotInRoom
	}

	if from, _, ok := o.Registry.RoomOf(sid); ok {
		o.KickBySID(sid)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}

	var room core.RoomService
	if user.Role == domain.RoleHost {
		room = o.Rooms.GetOrCreate(roomID)
	} else if room, ok = o.Rooms.GetRoom(roomID); !ok {
		return nil, ErrRoomNotFound
	}

	if err := room.AddMember(sid, sess); err != nil {
		if room.MemberCount() == 0 {
			o.Rooms.StopRoom(roomID)
		}
		return nil, err
	}
	o.Registry.UpdateRoom(sid, roomID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")

	o.publish(room, sid, protocol.Member{
		Header: protocol.Header{Type: protocol.TypeMemberJoined},
		Room:   roomID,
		User:   user.Participant(),
	})
	return room, nil
}

// Leave takes the session out of its room. It reports false when the
// session was not in a room.
func (o *Orchestrator) Leave(sid core.SessionID) bool {
	if _, _, ok := o.Registry.RoomOf(sid); !ok {
		return false
	}
	o.KickBySID(sid)
	return true
}

// KickBySID drops the session's media and membership and tells the rest
// of the room.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.cleanupMedia(sid)
	o.cleanupMembership(sid)
}

func (o *Orchestrator) cleanupMembership(sid core.SessionID) {
	roomID, sess, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.Registry.RemoveRoom(sid)
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok || !room.RemoveMember(sid) {
		return
	}
	if user := sess.Meta().User; user != nil {
		o.publish(room, sid, protocol.Member{
			Header: protocol.Header{Type: protocol.TypeMemberLeft},
			Room:   roomID,
			User:   user.Participant(),
		})
	}
	if room.MemberCount() == 0 {
		o.Rooms.StopRoom(roomID)
	}
}

func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.KickBySID(sid)
	o.Registry.Unbind(sid)
}

// EvictRoom removes everyone from a room and closes it. Members keep their
// login and are told with a left frame. It reports false for an unknown
// room.
func (o *Orchestrator) EvictRoom(id domain.RoomID) bool {
	if _, ok := o.Rooms.GetRoom(id); !ok {
		return false
	}
	members := o.Registry.MembersOfRoom(id)
	for _, snap := range members {
		o.KickBySID(snap.SID)
		o.send(snap.SID, protocol.Header{Type: protocol.TypeLeft})
	}
	o.Rooms.StopRoom(id)
	log.Info().Str("module", "orch").Str("room", string(id)).Int("members", len(members)).Msg("room evicted")
	return true
}
