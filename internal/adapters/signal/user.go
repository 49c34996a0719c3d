package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

func (ctl *SignalWSController) handleLogin(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.Login
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	user, token, err := ctl.Orch.Login(sid, p.Name, p.Role)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("login rejected")
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	ctl.sendJSON(conn, protocol.LoginOK{
		Header: h.Reply(protocol.TypeLoginOK),
		User:   user.Participant(),
		Token:  token,
	})
}

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn *WsSignalConn, h protocol.Header) {
	user, err := ctl.Orch.Registry.User(sid)
	if err != nil {
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	resp := protocol.WhoAmI{Header: h.Reply(protocol.TypeWhoAmI), User: user.Participant()}
	if roomID, _, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		resp.Room = roomID
	}
	ctl.sendJSON(conn, resp)
}
