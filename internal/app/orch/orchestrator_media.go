package orch

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/protocol"
)

func (o *Orchestrator) BindMediaHandlers(mc core.MediaConnection, sid core.SessionID) {
	mc.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		o.OnTrack(trackCtx, sid, track)
	})
	mc.OnClosed(func() { o.OnMediaDisconnect(sid, mc) })
}

// OnMediaDisconnect cleans up after mc unless the session already moved
// on to another connection.
func (o *Orchestrator) OnMediaDisconnect(sid core.SessionID, mc core.MediaConnection) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok || sess.Media() != mc {
		return
	}
	o.cleanupMedia(sid)
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID) {
	if o.Relays != nil {
		o.Relays.StopRelay(sid)
		for _, snap := range o.Registry.RoomMates(sid) {
			o.Relays.MarkSubscriberDelete(snap.SID, sid)
		}
	}

	if sess, ok := o.Registry.GetSession(sid); ok {
		mc := sess.Media()
		sess.UpdateMedia(nil)
		if mc != nil {
			mc.Close()
		}
	}
}

// OnTrack is called when sid publishes a new track. Everyone else in the
// room with a media connection starts receiving it.
func (o *Orchestrator) OnTrack(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) {
	if o.Relays == nil {
		return
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok || sess.Media() == nil || sess.Meta().User == nil {
		return
	}
	if _, _, ok := o.Registry.RoomOf(sid); !ok {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("track from a session outside any room")
		return
	}
	o.Relays.StartRelay(ctx, sid, track)

	publisher := sess.Meta().User.ID
	for _, snap := range o.Registry.RoomMates(sid) {
		mc := snap.Session.Media()
		if mc == nil {
			continue
		}
		n, err := o.Relays.Subscribe(sid, snap.SID, publisher, mc)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("dst", string(snap.SID)).Msg("subscribe")
		}
		if n > 0 {
			o.renegotiate(snap.SID, mc)
		}
	}
}

// OnMediaReady is called once sid's media connection is negotiated. It
// subscribes sid to every publisher already in the room.
func (o *Orchestrator) OnMediaReady(sid core.SessionID) {
	if o.Relays == nil {
		return
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	mc := sess.Media()
	if mc == nil {
		return
	}

	added := 0
	for _, snap := range o.Registry.RoomMates(sid) {
		user := snap.Session.Meta().User
		if user == nil || !o.Relays.HasRelay(snap.SID) {
			continue
		}
		n, err := o.Relays.Subscribe(snap.SID, sid, user.ID, mc)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("src", string(snap.SID)).Msg("subscribe")
		}
		added += n
	}
	if added > 0 {
		o.renegotiate(sid, mc)
	}
}

// renegotiate sends a server offer so the client picks up new tracks.
func (o *Orchestrator) renegotiate(sid core.SessionID, mc core.MediaConnection) {
	offer, err := mc.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("renegotiate offer")
		return
	}
	o.send(sid, protocol.SDP{Header: protocol.Header{Type: protocol.TypeOffer}, SDP: offer.SDP})
}
