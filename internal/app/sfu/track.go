package sfu

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

func (s TrackState) String() string {
	switch s {
	case TrackStateOk:
		return "ok"
	case TrackStateMuted:
		return "muted"
	default:
		return "delete"
	}
}

// OutTrack is one subscriber copy of a relayed track.
type OutTrack struct {
	Track *webrtc.TrackLocalStaticRTP
	state atomic.Int32
}

func NewOutTrack(track *webrtc.TrackLocalStaticRTP) *OutTrack {
	return &OutTrack{Track: track}
}

func (ot *OutTrack) GetState() TrackState { return TrackState(ot.state.Load()) }

func (ot *OutTrack) MarkOk() { ot.setUnlessDeleted(TrackStateOk) }

func (ot *OutTrack) MarkMuted() { ot.setUnlessDeleted(TrackStateMuted) }

// MarkDelete is final.
func (ot *OutTrack) MarkDelete() { ot.state.Store(int32(TrackStateDelete)) }

func (ot *OutTrack) setUnlessDeleted(s TrackState) {
	for {
		cur := ot.state.Load()
		if TrackState(cur) == TrackStateDelete {
			return
		}
		if ot.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}
