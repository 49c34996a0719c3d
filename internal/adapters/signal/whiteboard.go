package signal

import (
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

// handleWhiteboard is acknowledged with the same frame type on success.
func (ctl *SignalWSController) handleWhiteboard(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.Whiteboard
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	if err := ctl.Orch.ShareWhiteboard(sid, p); err != nil {
		ctl.sendError(conn, h, orch.ErrorCode(err), err.Error())
		return
	}
	p.Header = h.Reply(protocol.TypeWhiteboard)
	ctl.sendJSON(conn, p)
}
