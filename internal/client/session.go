// Package client is the classroom session handle: it logs in over the
// signaling websocket, joins rooms, sends chat with delivery tracking and
// turns server pushes into Events.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

type Options struct {
	URL        string
	Dialer     Dialer
	AckTimeout time.Duration
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// SignalHandler receives media negotiation frames (offer, answer,
// candidate). It runs on the read pump and must not block.
type SignalHandler func(h protocol.Header, data []byte)

// Session holds at most one login at a time. All methods are safe for
// concurrent use.
type Session struct {
	opts   Options
	events chan Event

	mu      sync.Mutex
	pending bool
	current *domain.Session
	link    *link
	room    domain.RoomID
	signal  SignalHandler
}

func New(opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = WSDialer{}
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 10 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	return &Session{opts: opts, events: make(chan Event, opts.EventBuffer)}
}

// Events is never closed.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) SetSignalHandler(fn SignalHandler) {
	s.mu.Lock()
	s.signal = fn
	s.mu.Unlock()
}

// Current returns the active login.
func (s *Session) Current() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

func (s *Session) Login(ctx context.Context, displayName string, role domain.Role) (domain.Session, error) {
	displayName = strings.TrimSpace(displayName)
	if err := domain.ValidateUsername(displayName); err != nil {
		return domain.Session{}, &domain.AuthError{Reason: "invalid_name", Err: err}
	}
	if !role.Valid() {
		return domain.Session{}, &domain.AuthError{Reason: "invalid_role", Err: domain.ErrInvalidRole}
	}

	s.mu.Lock()
	switch {
	case s.pending:
		s.mu.Unlock()
		return domain.Session{}, &domain.AuthError{Reason: "pending", Err: ErrLoginPending}
	case s.current != nil:
		s.mu.Unlock()
		return domain.Session{}, &domain.AuthError{Reason: "active", Err: ErrSessionActive}
	}
	s.pending = true
	s.mu.Unlock()

	sess, l, err := s.login(ctx, displayName, role)

	s.mu.Lock()
	s.pending = false
	if err == nil {
		// onDown has already run for a dead link
		if l.isUp() {
			s.current = &sess
			s.link = l
		} else {
			err = &domain.AuthError{Reason: "network", Err: ErrConnectionLost}
		}
	}
	s.mu.Unlock()
	if err != nil {
		log.Info().Err(err).Str("module", "client").Str("name", displayName).Msg("login failed")
		return domain.Session{}, err
	}
	log.Info().Str("module", "client").Str("user", string(sess.UserID)).Str("role", role.String()).Msg("logged in")
	return sess, nil
}

func (s *Session) login(ctx context.Context, name string, role domain.Role) (domain.Session, *link, error) {
	conn, err := s.opts.Dialer.Dial(ctx, s.opts.URL)
	if err != nil {
		return domain.Session{}, nil, &domain.AuthError{Reason: "network", Err: err}
	}
	l := newLink(conn, s.opts.AckTimeout)
	l.onFrame = func(h protocol.Header, data []byte) { s.onFrame(l, h, data) }
	l.onReply = func(h protocol.Header, data []byte) { s.onReply(l, h, data) }
	l.onDown = s.onDown
	l.start()

	reply, err := l.request(ctx, func(h protocol.Header) any {
		h.Type = protocol.TypeLogin
		return protocol.Login{Header: h, Name: name, Role: role}
	})
	if err != nil {
		l.shutdown(ErrLoggedOut)
		return domain.Session{}, nil, &domain.AuthError{Reason: "network", Err: err}
	}
	var ok protocol.LoginOK
	if err := decodeReply(reply, protocol.TypeLoginOK, &ok); err != nil {
		l.shutdown(ErrLoggedOut)
		reason := "rejected"
		var se *ServerError
		if errors.As(err, &se) {
			reason = se.Code
		}
		return domain.Session{}, nil, &domain.AuthError{Reason: reason, Err: err}
	}
	return domain.Session{
		UserID:      ok.User.ID,
		DisplayName: ok.User.DisplayName,
		Role:        ok.User.Role,
		AuthToken:   ok.Token,
	}, l, nil
}

// decodeReply turns an error frame into *ServerError and anything else of
// the wrong type into a protocol error.
func decodeReply(data []byte, want protocol.Type, v any) error {
	h, err := protocol.Peek(data)
	if err != nil {
		return err
	}
	if h.Type == protocol.TypeError {
		var f protocol.Error
		if err := protocol.Decode(data, &f); err != nil {
			return err
		}
		return serverError(f)
	}
	if h.Type != want {
		return &ServerError{Code: protocol.CodeUnknownType, Message: string(h.Type)}
	}
	return protocol.Decode(data, v)
}

// active returns the link of the current login.
func (s *Session) active() (*link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.link == nil {
		return nil, ErrNoSession
	}
	return s.link, nil
}

func (s *Session) JoinRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error) {
	l, err := s.active()
	if err != nil {
		return domain.Room{}, &domain.AuthError{Reason: "no_session", Err: err}
	}
	if strings.TrimSpace(string(roomID)) == "" {
		return domain.Room{}, &domain.JoinError{Room: roomID, Reason: domain.JoinInvalid}
	}

	reply, err := l.request(ctx, func(h protocol.Header) any {
		h.Type = protocol.TypeJoin
		return protocol.Join{Header: h, Room: roomID}
	})
	if err != nil {
		return domain.Room{}, &domain.JoinError{Room: roomID, Reason: domain.JoinNetwork, Err: err}
	}
	var st protocol.RoomState
	if err := decodeReply(reply, protocol.TypeRoomState, &st); err != nil {
		reason := domain.JoinInvalid
		var se *ServerError
		if errors.As(err, &se) {
			reason = joinReason(se.Code)
		}
		return domain.Room{}, &domain.JoinError{Room: roomID, Reason: reason, Err: err}
	}

	s.mu.Lock()
	current := s.link == l
	s.mu.Unlock()
	if !current {
		return domain.Room{}, &domain.JoinError{Room: roomID, Reason: domain.JoinNetwork, Err: ErrConnectionLost}
	}
	log.Info().Str("module", "client").Str("room", string(st.Room)).Int("members", st.Count).Msg("joined room")
	return domain.Room{ID: st.Room, Members: st.Members, Whiteboard: st.Whiteboard}, nil
}

// LeaveRoom exits the current room and keeps the login.
func (s *Session) LeaveRoom(ctx context.Context) error {
	l, err := s.active()
	if err != nil {
		return &domain.AuthError{Reason: "no_session", Err: err}
	}
	reply, err := l.request(ctx, func(h protocol.Header) any {
		h.Type = protocol.TypeLeave
		return h
	})
	if err != nil {
		return err
	}
	var h protocol.Header
	return decodeReply(reply, protocol.TypeLeft, &h)
}

// Room is the room joined last, empty when none.
func (s *Session) Room() domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// SendTextMessage never blocks. The returned Delivery settles on the
// server ack, an error reply, the ack timeout, connection loss or logout.
// Failures are *domain.DeliveryError. Nothing is resent.
func (s *Session) SendTextMessage(roomID domain.RoomID, channel int, text string) *Delivery {
	d, settle := NewDelivery()
	fail := func(remoteID string, err error) {
		if err != nil {
			err = &domain.DeliveryError{Reason: deliveryReason(err), Err: err}
		}
		settle(remoteID, err)
	}

	l, err := s.active()
	if err != nil {
		fail("", err)
		return d
	}
	l.deliver(func(h protocol.Header) any {
		h.Type = protocol.TypeChat
		return protocol.Chat{Header: h, Room: roomID, Channel: channel, Text: text}
	}, fail)
	return d
}

// ShareWhiteboard hands whiteboard credentials to the rest of the room.
// Only the host may do it.
func (s *Session) ShareWhiteboard(ctx context.Context, creds domain.WhiteboardCredentials) error {
	l, err := s.active()
	if err != nil {
		return &domain.AuthError{Reason: "no_session", Err: err}
	}
	reply, err := l.request(ctx, func(h protocol.Header) any {
		h.Type = protocol.TypeWhiteboard
		return protocol.Whiteboard{Header: h, Room: s.Room(), UUID: creds.UUID, RoomToken: creds.RoomToken}
	})
	if err != nil {
		return err
	}
	var ack protocol.Whiteboard
	return decodeReply(reply, protocol.TypeWhiteboard, &ack)
}

// SendSignal forwards a media negotiation frame.
func (s *Session) SendSignal(v any) error {
	l, err := s.active()
	if err != nil {
		return err
	}
	data, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	return l.enqueue(data)
}

// Logout ends the login and the connection. Safe to call at any time.
func (s *Session) Logout() {
	s.mu.Lock()
	l := s.link
	had := s.current != nil
	s.link = nil
	s.current = nil
	s.room = ""
	s.mu.Unlock()

	if l != nil {
		l.shutdown(ErrLoggedOut)
	}
	if had {
		log.Info().Str("module", "client").Msg("logged out")
	}
}

// onDown clears the login when the current link drops by itself.
func (s *Session) onDown(l *link, cause error) {
	s.mu.Lock()
	current := s.link == l
	if current {
		s.link = nil
		s.current = nil
		s.room = ""
	}
	s.mu.Unlock()
	if current {
		s.emit(l, ConnectionLost{Err: errors.Join(ErrConnectionLost, cause)})
	}
}

// onReply updates room membership from join and leave replies and raises
// the matching event before the requester resumes.
func (s *Session) onReply(l *link, h protocol.Header, data []byte) {
	switch h.Type {
	case protocol.TypeRoomState:
		var st protocol.RoomState
		if err := protocol.Decode(data, &st); err != nil {
			return
		}
		s.mu.Lock()
		current := s.link == l
		if current {
			s.room = st.Room
		}
		s.mu.Unlock()
		if current {
			s.emit(l, RoomJoined{Room: domain.Room{ID: st.Room, Members: st.Members, Whiteboard: st.Whiteboard}})
		}
	case protocol.TypeLeft:
		s.leftRoom(l)
	}
}

// leftRoom runs for our own leave and for a room the server closed under us.
func (s *Session) leftRoom(l *link) {
	s.mu.Lock()
	room := s.room
	current := s.link == l && room != ""
	if current {
		s.room = ""
	}
	s.mu.Unlock()
	if current {
		s.emit(l, RoomLeft{Room: room})
	}
}

func (s *Session) onFrame(l *link, h protocol.Header, data []byte) {
	s.mu.Lock()
	sig := s.signal
	s.mu.Unlock()

	switch h.Type {
	case protocol.TypeMemberJoined, protocol.TypeMemberLeft:
		var m protocol.Member
		if err := protocol.Decode(data, &m); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad member frame")
			return
		}
		if h.Type == protocol.TypeMemberJoined {
			s.emit(l, ParticipantJoined{Room: m.Room, Participant: m.User})
		} else {
			s.emit(l, ParticipantLeft{Room: m.Room, Participant: m.User})
		}
	case protocol.TypeMessage:
		var m protocol.Message
		if err := protocol.Decode(data, &m); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad message frame")
			return
		}
		s.emit(l, MessageReceived{
			Room:     m.Room,
			Channel:  m.Channel,
			From:     m.From,
			Text:     m.Text,
			RemoteID: m.MessageID,
			SentAt:   time.UnixMilli(m.TS),
		})
	case protocol.TypeWhiteboard:
		var w protocol.Whiteboard
		if err := protocol.Decode(data, &w); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad whiteboard frame")
			return
		}
		s.emit(l, WhiteboardShared{Room: w.Room, Credentials: w.Credentials()})
	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeCandidate:
		if sig != nil {
			sig(h, data)
		}
	case protocol.TypeLeft:
		s.leftRoom(l)
	case protocol.TypeError:
		var f protocol.Error
		_ = protocol.Decode(data, &f)
		log.Warn().Str("module", "client").Str("code", f.Code).Str("error", f.Message).Msg("server error")
	default:
		log.Debug().Str("module", "client").Str("type", string(h.Type)).Msg("ignored frame")
	}
}

// emit blocks until the event is taken or the link that produced it is
// gone, so a dead link never wedges on a full channel.
func (s *Session) emit(l *link, e Event) {
	select {
	case s.events <- e:
	case <-l.done:
		if _, lost := e.(ConnectionLost); lost {
			select {
			case s.events <- e:
			default:
				log.Warn().Str("module", "client").Msg("event channel full, connection lost event dropped")
			}
		}
	}
}
