package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/protocol"
)

const (
	writeWait   = 5 * time.Second
	outboxDepth = 64
)

type pendingDelivery struct {
	settle func(string, error)
	timer  *time.Timer
}

// link is one websocket connection with a FIFO write pump and a read pump.
// Requests carry a req number; the read pump routes replies back by it.
type link struct {
	conn       Conn
	out        chan []byte
	ackTimeout time.Duration
	nextReq    atomic.Uint64

	mu         sync.Mutex
	requests   map[uint64]chan []byte
	deliveries map[uint64]*pendingDelivery
	closed     bool
	cause      error
	done       chan struct{}

	// onFrame gets every frame that is not a reply. It runs on the read pump.
	onFrame func(h protocol.Header, data []byte)
	// onReply sees a request's reply on the read pump before the caller
	// gets it, in wire order with the frames around it.
	onReply func(h protocol.Header, data []byte)
	// onDown runs once when the link goes down, with the cause.
	onDown func(l *link, cause error)
}

func newLink(conn Conn, ackTimeout time.Duration) *link {
	return &link{
		conn:       conn,
		out:        make(chan []byte, outboxDepth),
		ackTimeout: ackTimeout,
		requests:   make(map[uint64]chan []byte),
		deliveries: make(map[uint64]*pendingDelivery),
		done:       make(chan struct{}),
	}
}

func (l *link) start() {
	go l.writePump()
	go l.readPump()
}

func (l *link) writePump() {
	for {
		select {
		case <-l.done:
			return
		case data := <-l.out:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.shutdown(err)
				return
			}
		}
	}
}

func (l *link) readPump() {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			l.shutdown(err)
			return
		}
		h, err := protocol.Peek(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad frame from server")
			continue
		}
		if h.Req != 0 && l.routeReply(h, data) {
			continue
		}
		if l.onFrame != nil {
			l.onFrame(h, data)
		}
	}
}

func (l *link) routeReply(h protocol.Header, data []byte) bool {
	l.mu.Lock()
	if ch, ok := l.requests[h.Req]; ok {
		delete(l.requests, h.Req)
		l.mu.Unlock()
		if l.onReply != nil {
			l.onReply(h, data)
		}
		ch <- data
		return true
	}
	pd, ok := l.deliveries[h.Req]
	delete(l.deliveries, h.Req)
	l.mu.Unlock()
	if !ok {
		return false
	}
	pd.timer.Stop()

	switch h.Type {
	case protocol.TypeChatAck:
		var ack protocol.ChatAck
		if err := protocol.Decode(data, &ack); err != nil {
			pd.settle("", err)
			break
		}
		pd.settle(ack.MessageID, nil)
	case protocol.TypeError:
		var f protocol.Error
		_ = protocol.Decode(data, &f)
		pd.settle("", serverError(f))
	default:
		pd.settle("", &ServerError{Code: protocol.CodeUnknownType, Message: string(h.Type)})
	}
	return true
}

// enqueue hands a frame to the write pump without blocking.
func (l *link) enqueue(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.cause
	}
	select {
	case l.out <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// request sends a frame built for a fresh req number and waits for the
// reply frame.
func (l *link) request(ctx context.Context, build func(h protocol.Header) any) ([]byte, error) {
	req := l.nextReq.Add(1)
	data, err := protocol.Encode(build(protocol.Header{Req: req}))
	if err != nil {
		return nil, err
	}
	ch := make(chan []byte, 1)
	l.mu.Lock()
	if l.closed {
		cause := l.cause
		l.mu.Unlock()
		return nil, cause
	}
	l.requests[req] = ch
	l.mu.Unlock()

	if err := l.enqueue(data); err != nil {
		l.forget(req)
		return nil, err
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		l.forget(req)
		return nil, ctx.Err()
	case <-l.done:
		return nil, l.cause
	}
}

func (l *link) forget(req uint64) {
	l.mu.Lock()
	delete(l.requests, req)
	l.mu.Unlock()
}

// deliver sends a frame whose outcome is reported through settle: the
// matching ack, an error reply, the ack timeout or the link going down.
func (l *link) deliver(build func(h protocol.Header) any, settle func(string, error)) {
	req := l.nextReq.Add(1)
	data, err := protocol.Encode(build(protocol.Header{Req: req}))
	if err != nil {
		settle("", err)
		return
	}

	l.mu.Lock()
	if l.closed {
		cause := l.cause
		l.mu.Unlock()
		settle("", cause)
		return
	}
	pd := &pendingDelivery{settle: settle}
	pd.timer = time.AfterFunc(l.ackTimeout, func() {
		if l.takeDelivery(req) != nil {
			settle("", ErrAckTimeout)
		}
	})
	l.deliveries[req] = pd
	l.mu.Unlock()

	if err := l.enqueue(data); err != nil {
		if l.takeDelivery(req) != nil {
			pd.timer.Stop()
			settle("", err)
		}
	}
}

func (l *link) takeDelivery(req uint64) *pendingDelivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	pd, ok := l.deliveries[req]
	if !ok {
		return nil
	}
	delete(l.deliveries, req)
	return pd
}

// shutdown closes the link once. Every delivery still waiting fails with
// cause, then onDown runs.
func (l *link) shutdown(cause error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.cause = cause
	close(l.done)
	pending := l.deliveries
	l.deliveries = make(map[uint64]*pendingDelivery)
	l.requests = make(map[uint64]chan []byte)
	l.mu.Unlock()

	_ = l.conn.Close()
	for _, pd := range pending {
		pd.timer.Stop()
		pd.settle("", cause)
	}
	log.Info().Err(cause).Str("module", "client").Int("failed_deliveries", len(pending)).Msg("link down")
	if l.onDown != nil {
		l.onDown(l, cause)
	}
}

func (l *link) isUp() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}
