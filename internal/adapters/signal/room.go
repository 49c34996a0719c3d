package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.Join
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	room, err := ctl.Orch.Join(sid, p.Room)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.Room)).Msg("join rejected")
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	members := room.MembersSnapshot()
	ctl.sendJSON(conn, protocol.RoomState{
		Header:     h.Reply(protocol.TypeRoomState),
		Room:       room.ID(),
		Members:    members,
		Count:      len(members),
		Whiteboard: room.Whiteboard(),
	})
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID, conn *WsSignalConn, h protocol.Header) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
	ctl.sendJSON(conn, h.Reply(protocol.TypeLeft))
}
