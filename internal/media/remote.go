package media

import (
	"sync"
	"time"

	"github.com/pion/rtp"
)

// remoteStream keeps the newest RTP packet of a subscribed track.
type remoteStream struct {
	read func() (*rtp.Packet, error)

	mu     sync.RWMutex
	latest Frame
	has    bool

	done      chan struct{}
	closeOnce sync.Once
}

func newRemoteStream(read func() (*rtp.Packet, error)) *remoteStream {
	return &remoteStream{read: read, done: make(chan struct{})}
}

// pump reads until the track ends or the stream is released.
func (s *remoteStream) pump() {
	for {
		pkt, err := s.read()
		if err != nil {
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.mu.Lock()
		s.latest = Frame{Packet: pkt, At: time.Now()}
		s.has = true
		s.mu.Unlock()
	}
}

func (s *remoteStream) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

func (s *remoteStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
