package whiteboard

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

var ErrDisconnected = errors.New("whiteboard disconnected")

// HeadlessBoard stands in for the drawing SDK in terminal clients. It keeps
// the joined room and the selected tool but draws nothing.
type HeadlessBoard struct{}

func (HeadlessBoard) Join(_ context.Context, creds domain.WhiteboardCredentials) (Room, error) {
	if creds.UUID == "" || creds.RoomToken == "" {
		return nil, errors.New("whiteboard: incomplete credentials")
	}
	return &headlessRoom{uuid: creds.UUID, appliance: Selector}, nil
}

type headlessRoom struct {
	mu        sync.Mutex
	uuid      string
	appliance Appliance
	closed    bool
}

func (r *headlessRoom) SetAppliance(a Appliance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrDisconnected
	}
	r.appliance = a
	log.Debug().Str("module", "whiteboard").Str("uuid", r.uuid).Str("appliance", string(a)).Msg("appliance")
	return nil
}

func (r *headlessRoom) Resize() {}

func (r *headlessRoom) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	log.Info().Str("module", "whiteboard").Str("uuid", r.uuid).Msg("whiteboard left")
	return nil
}
