package sfu

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/Classroom/internal/core"
)

// Relay fans one published track out to every subscriber in the room.
type Relay struct {
	Src *webrtc.TrackRemote

	mu        sync.RWMutex
	outTracks map[core.SessionID]*OutTrack

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(src *webrtc.TrackRemote, cancel context.CancelFunc) *Relay {
	return &Relay{
		Src:       src,
		outTracks: make(map[core.SessionID]*OutTrack),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// loop reads RTP packets from the source track and forwards them to all OutTracks.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks for delete")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay source ended")
			r.markAllDelete()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	var dirty []core.SessionID
	for dstSID, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, dstSID)
		case TrackStateMuted:
		case TrackStateOk:
			if err := ot.Track.WriteRTP(pkt); err != nil {
				logger.Warn().Err(err).Str("dst_sid", string(dstSID)).Msg("relay write RTP error, dropping subscriber")
				ot.MarkDelete()
				dirty = append(dirty, dstSID)
			}
		}
	}
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sid := range dirty {
		if ot, ok := r.outTracks[sid]; ok && ot.GetState() == TrackStateDelete {
			delete(r.outTracks, sid)
		}
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.MarkDelete()
	}
}

func (r *Relay) stop() {
	r.markAllDelete()
	if r.cancel != nil {
		r.cancel()
	}
}

// AddOutTrack registers dst unless it already receives this relay.
func (r *Relay) AddOutTrack(dst core.SessionID, ot *OutTrack) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.outTracks[dst]; ok && cur.GetState() != TrackStateDelete {
		return false
	}
	r.outTracks[dst] = ot
	return true
}

func (r *Relay) HasSubscriber(dst core.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ot, ok := r.outTracks[dst]
	return ok && ot.GetState() != TrackStateDelete
}

func (r *Relay) outTrack(dst core.SessionID) (*OutTrack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ot, ok := r.outTracks[dst]
	return ot, ok
}
