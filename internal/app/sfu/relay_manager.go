package sfu

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// RelayManager owns the relays of every publisher, one per published track.
type RelayManager struct {
	mu     sync.RWMutex
	relays map[core.SessionID]map[string]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{relays: make(map[core.SessionID]map[string]*Relay)}
}

// StartRelay starts forwarding a track published by sid. A track with the
// same id replaces the previous one.
func (m *RelayManager) StartRelay(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) {
	logger := log.With().
		Str("module", "sfu").
		Str("sid", string(sid)).
		Str("track", track.ID()).
		Str("kind", track.Kind().String()).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(track, cancel)

	m.mu.Lock()
	tracks, ok := m.relays[sid]
	if !ok {
		tracks = make(map[string]*Relay)
		m.relays[sid] = tracks
	}
	if old, ok := tracks[track.ID()]; ok {
		logger.Info().Msg("replacing existing relay")
		old.stop()
	}
	tracks[track.ID()] = relay
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	go relay.loop(relayCtx, &logger)
}

// Subscribe attaches every track published by srcSID to dst. The local
// tracks carry publisher as their stream id so receivers can tell whose
// media it is. It returns how many tracks were newly attached; the caller
// renegotiates when that is non-zero.
func (m *RelayManager) Subscribe(srcSID, dstSID core.SessionID, publisher domain.UserID, dst core.MediaConnection) (int, error) {
	relays := m.relaysOf(srcSID)
	added := 0
	var errs []error
	for _, relay := range relays {
		if relay.HasSubscriber(dstSID) {
			continue
		}
		local, err := webrtc.NewTrackLocalStaticRTP(relay.Src.Codec().RTPCodecCapability, relay.Src.ID(), string(publisher))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sender, err := dst.AddLocalTrack(local)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		go drainRTCP(sender)
		if relay.AddOutTrack(dstSID, NewOutTrack(local)) {
			added++
		}
	}
	if added > 0 {
		log.Info().Str("module", "sfu").Str("src", string(srcSID)).Str("dst", string(dstSID)).Int("tracks", added).Msg("subscribed")
	}
	return added, errors.Join(errs...)
}

// drainRTCP keeps interceptors such as NACK working for a sender.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// MarkSubscriberDelete stops forwarding srcSID's media to dstSID.
func (m *RelayManager) MarkSubscriberDelete(srcSID, dstSID core.SessionID) {
	for _, relay := range m.relaysOf(srcSID) {
		if ot, ok := relay.outTrack(dstSID); ok {
			ot.MarkDelete()
		}
	}
}

// SetMuted pauses or resumes forwarding of srcSID's media to dstSID.
func (m *RelayManager) SetMuted(srcSID, dstSID core.SessionID, muted bool) {
	for _, relay := range m.relaysOf(srcSID) {
		ot, ok := relay.outTrack(dstSID)
		if !ok {
			continue
		}
		if muted {
			ot.MarkMuted()
		} else {
			ot.MarkOk()
		}
	}
}

// StopRelay stops every relay of a publisher and forgets it.
func (m *RelayManager) StopRelay(srcSID core.SessionID) {
	m.mu.Lock()
	tracks, ok := m.relays[srcSID]
	delete(m.relays, srcSID)
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, relay := range tracks {
		relay.stop()
	}
	log.Info().Str("module", "sfu").Str("sid", string(srcSID)).Msg("relays stopped")
}

// HasRelay reports whether sid publishes anything.
func (m *RelayManager) HasRelay(sid core.SessionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relays[sid]) > 0
}

func (m *RelayManager) relaysOf(sid core.SessionID) []*Relay {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Relay, 0, len(m.relays[sid]))
	for _, r := range m.relays[sid] {
		out = append(out, r)
	}
	return out
}
