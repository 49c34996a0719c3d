// Package store is the client's state container. State changes only through
// Dispatch; readers work on copies.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Classroom/internal/domain"
)

var (
	ErrUnknownMessage   = errors.New("unknown message")
	ErrDuplicateMessage = errors.New("duplicate message id")
)

type State struct {
	Room           domain.RoomID
	UserID         domain.UserID
	Nickname       string
	Role           domain.Role
	Users          []domain.Participant
	Messages       []domain.ChatMessage
	WhiteBoardRoom *domain.WhiteboardCredentials
	Connection     domain.ConnectionState
}

func initialState() State {
	return State{Role: domain.RoleParticipant, Connection: domain.Disconnected}
}

func (s State) clone() State {
	out := s
	out.Users = slices.Clone(s.Users)
	out.Messages = slices.Clone(s.Messages)
	if s.WhiteBoardRoom != nil {
		wb := *s.WhiteBoardRoom
		out.WhiteBoardRoom = &wb
	}
	return out
}

// Message finds a chat message by local id.
func (s State) Message(id domain.MessageID) (domain.ChatMessage, bool) {
	return lo.Find(s.Messages, func(m domain.ChatMessage) bool { return m.ID == id })
}

// User finds a participant by id.
func (s State) User(id domain.UserID) (domain.Participant, bool) {
	return lo.Find(s.Users, func(p domain.Participant) bool { return p.ID == id })
}

type Store struct {
	mu      sync.RWMutex
	state   State
	version uint64
	subs    map[int]chan State
	nextSub int
}

func New() *Store {
	return &Store{state: initialState(), subs: make(map[int]chan State)}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dispatch applies the actions in order as one update. If any action fails
// nothing is applied.
func (s *Store) Dispatch(actions ...Action) error {
	if len(actions) == 0 {
		return nil
	}
	s.mu.Lock()
	next := s.state.clone()
	for _, a := range actions {
		if err := a.apply(&next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%s: %w", a.Type, err)
		}
	}
	s.state = next
	s.version++
	snap := next.clone()
	subs := lo.Values(s.subs)
	s.mu.Unlock()

	log.Debug().Str("module", "store").Strs("actions", lo.Map(actions, func(a Action, _ int) string { return string(a.Type) })).Msg("dispatch")
	for _, ch := range subs {
		publish(ch, snap)
	}
	return nil
}

// publish keeps only the newest snapshot in a subscriber's buffer.
func publish(ch chan State, st State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel that always yields the latest state. Missed
// intermediate states are skipped. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
