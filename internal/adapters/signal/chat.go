package signal

import (
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

func (ctl *SignalWSController) handleChat(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.Chat
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	user, err := ctl.Orch.Registry.User(sid)
	if err != nil {
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(user.ID) {
		ctl.sendError(conn, h, protocol.CodeRateLimited, "too many messages")
		return
	}
	ack, err := ctl.Orch.Chat(sid, p)
	if err != nil {
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	ctl.sendJSON(conn, ack)
}
