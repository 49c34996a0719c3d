package signal

import "github.com/dkeye/Classroom/internal/protocol"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn, h protocol.Header) {
	ctl.sendJSON(conn, h.Reply(protocol.TypePong))
}
