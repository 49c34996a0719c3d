// Package orch coordinates the registry, the rooms and the media relays.
// Signaling adapters call into it and never touch rooms directly.
package orch

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app"
	"github.com/dkeye/Classroom/internal/app/sfu"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/directory"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("not in room")
	ErrNotHost      = errors.New("only the host may do this")
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Relays   *sfu.RelayManager
}

func (o *Orchestrator) Login(sid core.SessionID, name string, role domain.Role) (*domain.User, string, error) {
	return o.Registry.Login(sid, name, role)
}

// Chat relays a chat line to the rest of the room and returns the id the
// sender uses to acknowledge its pending copy.
func (o *Orchestrator) Chat(sid core.SessionID, in protocol.Chat) (protocol.ChatAck, error) {
	room, user, err := o.currentRoom(sid, in.Room)
	if err != nil {
		return protocol.ChatAck{}, err
	}
	msg := protocol.Message{
		Header:    protocol.Header{Type: protocol.TypeMessage},
		Room:      room.ID(),
		Channel:   in.Channel,
		From:      user.Participant(),
		Text:      in.Text,
		MessageID: uuid.NewString(),
		TS:        time.Now().UnixMilli(),
	}
	o.publish(room, sid, msg)
	return protocol.ChatAck{
		Header:    in.Reply(protocol.TypeChatAck),
		MessageID: msg.MessageID,
		TS:        msg.TS,
	}, nil
}

// ShareWhiteboard stores the host's whiteboard credentials on the room and
// hands them to everyone else. Late joiners get them with the room state.
func (o *Orchestrator) ShareWhiteboard(sid core.SessionID, in protocol.Whiteboard) error {
	roomID, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	room, user, err := o.currentRoom(sid, roomID)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleHost {
		return ErrNotHost
	}
	creds := in.Credentials()
	room.SetWhiteboard(creds)
	o.publish(room, sid, protocol.Whiteboard{
		Header:    protocol.Header{Type: protocol.TypeWhiteboard},
		Room:      room.ID(),
		UUID:      creds.UUID,
		RoomToken: creds.RoomToken,
	})
	log.Info().Str("module", "orch").Str("room", string(room.ID())).Msg("whiteboard shared")
	return nil
}

func (o *Orchestrator) currentRoom(sid core.SessionID, want domain.RoomID) (core.RoomService, *domain.User, error) {
	user, err := o.Registry.User(sid)
	if err != nil {
		return nil, nil, err
	}
	roomID, _, ok := o.Registry.RoomOf(sid)
	if !ok || roomID != want {
		return nil, nil, ErrNotInRoom
	}
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return nil, nil, ErrNotInRoom
	}
	return room, user, nil
}

// publish broadcasts v to the room and applies the backpressure policy to
// members whose queue was full.
func (o *Orchestrator) publish(room core.RoomService, from core.SessionID, v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode broadcast")
		return
	}
	res := room.Broadcast(from, data)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			for _, snap := range o.Registry.MembersOfRoom(room.ID()) {
				if snap.Session == slow {
					log.Warn().Str("module", "orch").Str("sid", string(snap.SID)).Msg("kicking slow member")
					o.KickBySID(snap.SID)
				}
			}
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}

// send delivers a frame to one session, ignoring a full queue.
func (o *Orchestrator) send(sid core.SessionID, v any) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok || sess.Signal() == nil {
		return
	}
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode frame")
		return
	}
	if err := sess.Signal().TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("send dropped")
	}
}

// ErrorCode maps an orchestrator failure to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, directory.ErrHostTaken):
		return protocol.CodeHostTaken
	case errors.Is(err, ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, ErrNotHost):
		return protocol.CodeNotHost
	case errors.Is(err, app.ErrNotLoggedIn), errors.Is(err, app.ErrUnknownSession):
		return protocol.CodeNotLoggedIn
	case errors.Is(err, app.ErrAlreadyLoggedIn):
		return protocol.CodeAlreadyLoggedIn
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong), errors.Is(err, domain.ErrInvalidRole):
		return protocol.CodeInvalid
	default:
		return protocol.CodeInternal
	}
}
