package media

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

var ErrNoVideoTrack = errors.New("no video track")

// DeviceCapturer reads raw frames from the first camera the registered
// mediadevices drivers expose.
type DeviceCapturer struct {
	Width  int
	Height int

	getUserMedia func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
}

func NewDeviceCapturer(width, height int) *DeviceCapturer {
	return &DeviceCapturer{Width: width, Height: height, getUserMedia: mediadevices.GetUserMedia}
}

func (c *DeviceCapturer) Capture(ctx context.Context) (Stream, error) {
	ms, err := c.getUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(m *mediadevices.MediaTrackConstraints) {
			m.FrameFormat = prop.FrameFormat(frame.FormatI420)
			if c.Width > 0 {
				m.Width = prop.Int(c.Width)
			}
			if c.Height > 0 {
				m.Height = prop.Int(c.Height)
			}
		},
	})
	if err != nil {
		return nil, &domain.DeviceError{Device: "camera", Err: err}
	}

	tracks := ms.GetVideoTracks()
	closeAll := func() {
		for _, t := range ms.GetTracks() {
			_ = t.Close()
		}
	}
	if len(tracks) == 0 {
		closeAll()
		return nil, &domain.DeviceError{Device: "camera", Err: ErrNoVideoTrack}
	}
	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		closeAll()
		return nil, &domain.DeviceError{Device: "camera", Err: ErrNoVideoTrack}
	}

	s := newLocalStream(vt.NewReader(false), closeAll)
	go s.pump(ctx)
	log.Info().Str("module", "media").Str("track_id", vt.ID()).Msg("camera opened")
	return s, nil
}

// localStream keeps a private copy of the newest captured picture; the
// reader reuses its buffers once released.
type localStream struct {
	reader video.Reader
	stop   func()

	mu     sync.RWMutex
	latest Frame
	has    bool

	done      chan struct{}
	closeOnce sync.Once
}

func newLocalStream(r video.Reader, stop func()) *localStream {
	return &localStream{reader: r, stop: stop, done: make(chan struct{})}
}

func (s *localStream) pump(ctx context.Context) {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}
		img, release, err := s.reader.Read()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Warn().Err(err).Str("module", "media").Msg("capture read failed")
			}
			return
		}
		cp := cloneImage(img)
		release()

		s.mu.Lock()
		s.latest = Frame{Image: cp, At: time.Now()}
		s.has = true
		s.mu.Unlock()
	}
}

func (s *localStream) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

func (s *localStream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
	})
}

func cloneImage(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
