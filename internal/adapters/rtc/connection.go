// Package rtc wraps a pion PeerConnection behind core.MediaConnection. The
// classroom server uses it for every member and the client uses it for its
// single upstream connection.
package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
)

type WebRTCConnection struct {
	pc  *webrtc.PeerConnection
	sid core.SessionID

	mu       sync.RWMutex
	onICE    func(webrtc.ICECandidateInit)
	onTrack  func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed func()

	// negotiation is serialized: pion rejects overlapping offers.
	negotiate sync.Mutex
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

// DefaultWebRTCConfig builds a configuration with the given STUN/TURN urls,
// falling back to a public STUN server.
func DefaultWebRTCConfig(iceURLs ...string) webrtc.Configuration {
	if len(iceURLs) == 0 {
		iceURLs = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceURLs}},
	}
}

func NewWebRTCConnection(cfg webrtc.Configuration, sid core.SessionID) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &WebRTCConnection{pc: pc, sid: sid}, nil
}

func (c *WebRTCConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "rtc").Str("sid", string(c.sid)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Str("state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			cancel()
			c.fireClosed()
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		c.mu.RLock()
		fn := c.onICE
		c.mu.RUnlock()
		if cand != nil && fn != nil {
			fn(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("sid", string(c.sid)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		c.mu.RLock()
		fn := c.onTrack
		c.mu.RUnlock()
		if fn != nil {
			fn(ctx, track, receiver)
		}
	})

	go func() {
		<-ctx.Done()
		c.Close()
	}()
	return nil
}

func (c *WebRTCConnection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	c.negotiate.Lock()
	defer c.negotiate.Unlock()
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocal(answer)
}

func (c *WebRTCConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	c.negotiate.Lock()
	defer c.negotiate.Unlock()
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocal(offer)
}

// setLocal waits for gathering so the returned description carries every
// candidate.
func (c *WebRTCConnection) setLocal(desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return nil, err
	}
	<-gatherComplete
	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	c.negotiate.Lock()
	defer c.negotiate.Unlock()
	return c.pc.SetRemoteDescription(answer)
}

// AddTransceiver declares interest in receiving one kind of media.
func (c *WebRTCConnection) AddTransceiver(kind webrtc.RTPCodecType, dir webrtc.RTPTransceiverDirection) error {
	_, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{Direction: dir})
	return err
}

func (c *WebRTCConnection) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("sid", string(c.sid)).Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Msg("closed")
		}
	})
	c.fireClosed()
}

func (c *WebRTCConnection) fireClosed() {
	c.mu.Lock()
	fn := c.onClosed
	c.onClosed = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// OnClosed runs once, whichever side closes first.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) AddLocalTrack(track *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error) {
	return c.pc.AddTrack(track)
}
