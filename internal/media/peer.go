package media

import (
	"context"
	"errors"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/adapters/rtc"
	"github.com/dkeye/Classroom/internal/client"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

// Signaler is the part of client.Session that carries negotiation frames.
type Signaler interface {
	SendSignal(v any) error
	SetSignalHandler(fn client.SignalHandler)
}

type signal struct {
	h    protocol.Header
	data []byte
}

// Peer receives the forwarded tracks of the other room members and
// attaches them to the pipeline under the publisher's user id.
type Peer struct {
	conn     *rtc.WebRTCConnection
	signaler Signaler
	pipeline *Pipeline
	signals  chan signal
}

func NewPeer(cfg webrtc.Configuration, signaler Signaler, pipeline *Pipeline) (*Peer, error) {
	conn, err := rtc.NewWebRTCConnection(cfg, core.SessionID("local"))
	if err != nil {
		return nil, err
	}
	return &Peer{
		conn:     conn,
		signaler: signaler,
		pipeline: pipeline,
		signals:  make(chan signal, 32),
	}, nil
}

// Run negotiates the upstream connection and serves renegotiations until
// ctx is done. The session must already be in a room.
func (p *Peer) Run(ctx context.Context) error {
	p.conn.OnTrack(p.onTrack)
	p.conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		c := protocol.Candidate{Header: protocol.Header{Type: protocol.TypeCandidate}, Candidate: ci.Candidate}
		if ci.SDPMid != nil {
			c.SDPMid = *ci.SDPMid
		}
		if ci.SDPMLineIndex != nil {
			c.SDPMLineIndex = *ci.SDPMLineIndex
		}
		if err := p.signaler.SendSignal(c); err != nil {
			log.Debug().Err(err).Str("module", "media").Msg("candidate not sent")
		}
	})
	if err := p.conn.Start(ctx); err != nil {
		return err
	}
	defer p.conn.Close()

	p.signaler.SetSignalHandler(p.enqueue)
	defer p.signaler.SetSignalHandler(nil)

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if err := p.conn.AddTransceiver(kind, webrtc.RTPTransceiverDirectionRecvonly); err != nil {
			return err
		}
	}
	offer, err := p.conn.CreateAndSetOffer()
	if err != nil {
		return err
	}
	if err := p.signaler.SendSignal(protocol.SDP{Header: protocol.Header{Type: protocol.TypeOffer}, SDP: offer.SDP}); err != nil {
		return err
	}
	log.Info().Str("module", "media").Msg("offer sent")

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-p.signals:
			if err := p.handle(sig); err != nil {
				log.Warn().Err(err).Str("module", "media").Str("type", string(sig.h.Type)).Msg("signal failed")
			}
		}
	}
}

// enqueue runs on the session read pump and must not block it.
func (p *Peer) enqueue(h protocol.Header, data []byte) {
	select {
	case p.signals <- signal{h: h, data: data}:
	default:
		log.Warn().Str("module", "media").Str("type", string(h.Type)).Msg("signal queue full, dropped")
	}
}

func (p *Peer) handle(sig signal) error {
	switch sig.h.Type {
	case protocol.TypeOffer:
		var f protocol.SDP
		if err := protocol.Decode(sig.data, &f); err != nil {
			return err
		}
		answer, err := p.conn.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: f.SDP})
		if err != nil {
			return err
		}
		return p.signaler.SendSignal(protocol.SDP{Header: sig.h.Reply(protocol.TypeAnswer), SDP: answer.SDP})
	case protocol.TypeAnswer:
		var f protocol.SDP
		if err := protocol.Decode(sig.data, &f); err != nil {
			return err
		}
		return p.conn.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: f.SDP})
	case protocol.TypeCandidate:
		var f protocol.Candidate
		if err := protocol.Decode(sig.data, &f); err != nil {
			return err
		}
		return p.conn.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     f.Candidate,
			SDPMid:        &f.SDPMid,
			SDPMLineIndex: &f.SDPMLineIndex,
		})
	}
	return errors.New("unexpected signal " + string(sig.h.Type))
}

func (p *Peer) onTrack(_ context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if track.Kind() != webrtc.RTPCodecTypeVideo {
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
		return
	}

	owner := domain.UserID(track.StreamID())
	s := newRemoteStream(func() (*rtp.Packet, error) {
		pkt, _, err := track.ReadRTP()
		return pkt, err
	})
	p.pipeline.AttachStream(owner, s)
	go s.pump()
}
