// Package media owns the local camera, the remote participant streams and
// their binding to render surfaces. A fixed-period tick re-renders every
// binding for whoever is in the roster at that moment.
package media

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

var ErrCaptureActive = errors.New("capture already active")

const DefaultTickInterval = 50 * time.Millisecond

// Frame is the newest picture of a stream. Local captures carry an Image,
// remote streams carry the last RTP packet until something decodes it.
type Frame struct {
	Image  image.Image
	Packet *rtp.Packet
	At     time.Time
}

type Stream interface {
	Latest() (Frame, bool)
	Close()
}

type Surface interface {
	Render(Frame) error
}

// Surfaces resolves render target ids. A target that is not there yet is
// simply skipped.
type Surfaces interface {
	Lookup(id string) (Surface, bool)
}

type Roster interface {
	Has(id domain.UserID) bool
	Snapshot() []domain.Participant
}

//go:generate mockgen -destination=../mocks/capturer_mock.go -package=mocks github.com/dkeye/Classroom/internal/media Capturer
type Capturer interface {
	Capture(ctx context.Context) (Stream, error)
}

// SurfaceID names the default render target of a participant.
func SurfaceID(id domain.UserID) string { return "canvas-" + string(id) }

type Pipeline struct {
	capturer Capturer
	surfaces Surfaces
	roster   Roster
	interval time.Duration

	mu        sync.Mutex
	capturing bool
	self      domain.UserID
	local     Stream
	streams   map[domain.UserID]Stream
	targets   map[domain.UserID]string
	bound     map[domain.UserID]string
}

// NewPipeline renders every interval; zero or less means DefaultTickInterval.
func NewPipeline(capturer Capturer, surfaces Surfaces, roster Roster, interval time.Duration) *Pipeline {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Pipeline{
		capturer: capturer,
		surfaces: surfaces,
		roster:   roster,
		interval: interval,
		streams:  make(map[domain.UserID]Stream),
		targets:  make(map[domain.UserID]string),
		bound:    make(map[domain.UserID]string),
	}
}

// StartCapture acquires the local camera once.
func (p *Pipeline) StartCapture(ctx context.Context) error {
	p.mu.Lock()
	if p.capturing || p.local != nil {
		p.mu.Unlock()
		return ErrCaptureActive
	}
	p.capturing = true
	p.mu.Unlock()

	s, err := p.capturer.Capture(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.capturing = false
	if err != nil {
		var de *domain.DeviceError
		if !errors.As(err, &de) {
			err = &domain.DeviceError{Device: "camera", Err: err}
		}
		log.Warn().Err(err).Str("module", "media").Msg("capture failed")
		return err
	}
	p.local = s
	log.Info().Str("module", "media").Msg("capture started")
	return nil
}

// SetSelf tells the pipeline which participant the local capture belongs to.
func (p *Pipeline) SetSelf(id domain.UserID) {
	p.mu.Lock()
	p.self = id
	p.mu.Unlock()
}

// AttachStream sets the remote stream of a participant, releasing any
// stream it replaces.
func (p *Pipeline) AttachStream(id domain.UserID, s Stream) {
	p.mu.Lock()
	old := p.streams[id]
	p.streams[id] = s
	p.mu.Unlock()
	if old != nil && old != s {
		old.Close()
	}
	log.Debug().Str("module", "media").Str("user", string(id)).Msg("stream attached")
}

func (p *Pipeline) DetachStream(id domain.UserID) {
	p.mu.Lock()
	s := p.releaseLocked(id)
	p.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// UpdateCanvas binds a participant to a render target. A missing target is
// a no-op; a participant who left is unbound and its stream released.
func (p *Pipeline) UpdateCanvas(id domain.UserID, target string) {
	surface, ok := p.surfaces.Lookup(target)
	if !ok {
		return
	}
	if !p.roster.Has(id) {
		p.DetachStream(id)
		return
	}

	p.mu.Lock()
	p.targets[id] = target
	p.bound[id] = target
	s := p.streamLocked(id)
	p.mu.Unlock()

	render(id, surface, s)
}

// Bindings returns the participant to target bindings applied so far.
func (p *Pipeline) Bindings() map[domain.UserID]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[domain.UserID]string, len(p.bound))
	for id, t := range p.bound {
		out[id] = t
	}
	return out
}

// Tick re-applies every binding for the current roster.
func (p *Pipeline) Tick() {
	members := p.roster.Snapshot()
	present := make(map[domain.UserID]struct{}, len(members))

	type job struct {
		id      domain.UserID
		surface Surface
		stream  Stream
	}
	var jobs []job
	var released []Stream

	p.mu.Lock()
	for _, m := range members {
		present[m.ID] = struct{}{}
		target, ok := p.targets[m.ID]
		if !ok {
			target = SurfaceID(m.ID)
		}
		surface, ok := p.surfaces.Lookup(target)
		if !ok {
			delete(p.bound, m.ID)
			continue
		}
		p.bound[m.ID] = target
		jobs = append(jobs, job{id: m.ID, surface: surface, stream: p.streamLocked(m.ID)})
	}
	for id := range p.streams {
		if _, ok := present[id]; !ok {
			if s := p.releaseLocked(id); s != nil {
				released = append(released, s)
			}
		}
	}
	for id := range p.bound {
		if _, ok := present[id]; !ok {
			p.releaseLocked(id)
		}
	}
	p.mu.Unlock()

	for _, s := range released {
		s.Close()
	}
	for _, j := range jobs {
		render(j.id, j.surface, j.stream)
	}
}

// Run ticks until ctx is done. No tick starts after Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Close releases the capture and every remote stream.
func (p *Pipeline) Close() {
	p.mu.Lock()
	streams := make([]Stream, 0, len(p.streams)+1)
	for id, s := range p.streams {
		streams = append(streams, s)
		delete(p.streams, id)
	}
	if p.local != nil {
		streams = append(streams, p.local)
		p.local = nil
	}
	clear(p.targets)
	clear(p.bound)
	p.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
}

func (p *Pipeline) streamLocked(id domain.UserID) Stream {
	if id == p.self && p.local != nil {
		return p.local
	}
	return p.streams[id]
}

// releaseLocked forgets every binding of id and hands back its remote
// stream for the caller to close outside the lock.
func (p *Pipeline) releaseLocked(id domain.UserID) Stream {
	s := p.streams[id]
	delete(p.streams, id)
	delete(p.targets, id)
	delete(p.bound, id)
	return s
}

func render(id domain.UserID, surface Surface, s Stream) {
	if s == nil {
		return
	}
	f, ok := s.Latest()
	if !ok {
		return
	}
	if err := surface.Render(f); err != nil {
		log.Debug().Err(err).Str("module", "media").Str("user", string(id)).Msg("render failed")
	}
}
