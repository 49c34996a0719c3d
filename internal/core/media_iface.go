package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is one member's WebRTC link to the SFU, seen from the
// orchestrator. Negotiation may run from either side.
type MediaConnection interface {
	// Start ties the connection to ctx: cancelling it closes the link.
	Start(ctx context.Context) error
	Close()
	AddICECandidate(webrtc.ICECandidateInit) error
	// ApplyOfferAndCreateAnswer handles an offer from the member.
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// CreateAndSetOffer starts a server side renegotiation, for example
	// after a new track was forwarded to the member.
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack fires for every track the member publishes.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// AddLocalTrack forwards another member's track to this one.
	AddLocalTrack(track *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error)
	// OnClosed fires once, whichever side closed the link.
	OnClosed(func())
}
