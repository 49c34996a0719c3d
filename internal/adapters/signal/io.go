package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		if user, err := ctl.Orch.Registry.User(sid); err == nil && ctl.Limiter != nil {
			ctl.Limiter.Forget(user.ID)
		}
		ctl.Orch.OnDisconnect(sid)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	h, err := protocol.Peek(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		ctl.sendError(c, protocol.Header{}, protocol.CodeBadPayload, err.Error())
		return
	}

	switch h.Type {
	case protocol.TypeLogin:
		ctl.handleLogin(sid, c, h, data)
	case protocol.TypeWhoAmI:
		ctl.handleWhoAmI(sid, c, h)
	case protocol.TypeJoin:
		ctl.handleJoin(sid, c, h, data)
	case protocol.TypeLeave:
		ctl.handleLeave(sid, c, h)
	case protocol.TypeChat:
		ctl.handleChat(sid, c, h, data)
	case protocol.TypeWhiteboard:
		ctl.handleWhiteboard(sid, c, h, data)
	case protocol.TypePing:
		ctl.handlePing(c, h)
	case protocol.TypeOffer:
		ctl.handleOffer(sid, c, h, data)
	case protocol.TypeAnswer:
		ctl.handleAnswer(sid, c, h, data)
	case protocol.TypeCandidate:
		ctl.handleCandidate(sid, c, data)
	default:
		log.Warn().Str("module", "signal").Str("type", string(h.Type)).Msg("unknown signal")
		ctl.sendError(c, h, protocol.CodeUnknownType, string(h.Type))
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	if c == nil {
		return
	}
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, h protocol.Header, code, msg string) {
	ctl.sendJSON(c, protocol.NewError(h, code, msg))
}
