package signal

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/adapters/rtc"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

func (ctl *SignalWSController) sendCandidate(c *WsSignalConn, ci webrtc.ICECandidateInit) {
	resp := protocol.Candidate{
		Header:    protocol.Header{Type: protocol.TypeCandidate},
		Candidate: ci.Candidate,
	}
	if ci.SDPMid != nil {
		resp.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		resp.SDPMLineIndex = *ci.SDPMLineIndex
	}
	ctl.sendJSON(c, resp)
}

// handleOffer answers a client offer. The first offer creates the media
// connection, later ones renegotiate it.
func (ctl *SignalWSController) handleOffer(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.SDP
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	if _, _, ok := ctl.Orch.Registry.RoomOf(sid); !ok {
		ctl.sendError(conn, h, protocol.CodeNotInRoom, "join a room before sending media")
		return
	}
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return
	}

	mc := sess.Media()
	fresh := mc == nil
	if fresh {
		wc, err := rtc.NewWebRTCConnection(ctl.opts.WebRTC, sid)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("webrtc new pc")
			ctl.sendError(conn, h, protocol.CodeInternal, "media unavailable")
			return
		}
		wc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
			ctl.sendCandidate(conn, ci)
		})
		ctl.Orch.BindMediaHandlers(wc, sid)
		if err = wc.Start(conn.ctx); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("webrtc start")
			wc.Close()
			return
		}
		mc = wc
		sess.UpdateMedia(mc)
	}

	answer, err := mc.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc apply offer")
		ctl.sendError(conn, h, protocol.CodeInvalid, "offer rejected")
		if fresh {
			sess.UpdateMedia(nil)
			mc.Close()
		}
		return
	}
	ctl.sendJSON(conn, protocol.SDP{Header: h.Reply(protocol.TypeAnswer), SDP: answer.SDP})

	if fresh {
		ctl.Orch.OnMediaReady(sid)
	}
}

// handleAnswer completes a server-initiated renegotiation.
func (ctl *SignalWSController) handleAnswer(sid core.SessionID, conn *WsSignalConn, h protocol.Header, data []byte) {
	var p protocol.SDP
	if err := protocol.DecodeValid(data, &p); err != nil {
		ctl.sendError(conn, h, protocol.CodeInvalid, err.Error())
		return
	}
	mc := ctl.mediaOf(sid)
	if mc == nil {
		return
	}
	if err := mc.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("apply answer")
	}
}

func (ctl *SignalWSController) handleCandidate(sid core.SessionID, _ *WsSignalConn, data []byte) {
	var p protocol.Candidate
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad candidate payload")
		return
	}
	cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex

	mc := ctl.mediaOf(sid)
	if mc == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("candidate: no media connection")
		return
	}
	if err := mc.AddICECandidate(cand); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("add ice candidate")
	}
}

func (ctl *SignalWSController) mediaOf(sid core.SessionID) core.MediaConnection {
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return nil
	}
	return sess.Media()
}
