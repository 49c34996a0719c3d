package app

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var (
	ErrUnknownSession  = errors.New("unknown session")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

type sessionEntry struct {
	RoomID  domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
	Token   string
}

// Registry tracks every live signaling session, who it is logged in as and
// which room it currently sits in.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[sid]; ok && old.Cancel != nil {
		old.Cancel()
	}
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

// Login attaches a fresh identity to the session. A session logs in once.
func (r *Registry) Login(sid core.SessionID, name string, role domain.Role) (*domain.User, string, error) {
	user, err := domain.NewUser(name, role)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, "", ErrUnknownSession
	}
	if e.Token != "" {
		return nil, "", ErrAlreadyLoggedIn
	}
	e.Token = uuid.NewString()
	e.Session.Meta().User = user
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("user", string(user.ID)).Str("role", role.String()).Msg("logged in")
	return user, e.Token, nil
}

// User returns the identity the session logged in with.
func (r *Registry) User(sid core.SessionID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, ErrUnknownSession
	}
	if e.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return e.Session.Meta().User, nil
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomID == "" {
		return "", nil, false
	}
	return entry.RoomID, entry.Session, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomID = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomID = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

type RegSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.RoomID == room {
			out = append(out, RegSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// RoomMates lists the other sessions sharing sid's room.
func (r *Registry) RoomMates(sid core.SessionID) []RegSnap {
	room, _, ok := r.RoomOf(sid)
	if !ok {
		return nil
	}
	all := r.MembersOfRoom(room)
	out := all[:0]
	for _, s := range all {
		if s.SID != sid {
			out = append(out, s)
		}
	}
	return out
}
