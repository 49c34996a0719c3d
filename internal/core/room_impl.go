package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/directory"
	"github.com/dkeye/Classroom/internal/domain"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id         domain.RoomID
	maxMembers int

	mu         sync.RWMutex
	bySID      map[SessionID]MemberSession
	byUser     map[domain.UserID]SessionID
	roster     *directory.Roster
	whiteboard *domain.WhiteboardCredentials
}

func NewRoomService(id domain.RoomID, maxMembers int) RoomService {
	if maxMembers <= 0 {
		maxMembers = domain.DefaultMaxMembers
	}
	return &roomImpl{
		id:         id,
		maxMembers: maxMembers,
		bySID:      make(map[SessionID]MemberSession),
		byUser:     make(map[domain.UserID]SessionID),
		roster:     directory.New(),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) HasMember(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) error {
	u := ms.Meta().User
	r.mu.Lock()
	defer r.mu.Unlock()

	// A user re-entering through a new session replaces the stale entry.
	if old, ok := r.byUser[u.ID]; ok {
		delete(r.bySID, old)
		r.roster.Remove(u.ID)
	}
	if _, ok := r.bySID[sid]; !ok && len(r.bySID) >= r.maxMembers {
		return ErrRoomFull
	}
	if err := r.roster.Add(u.Participant()); err != nil {
		return err
	}
	r.bySID[sid] = ms
	r.byUser[u.ID] = sid
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).
		Str("user", string(u.ID)).Str("role", u.Role.String()).Msg("member added")
	return nil
}

func (r *roomImpl) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.bySID[sid]
	if !ok {
		return false
	}
	u := ms.Meta().User.ID
	delete(r.byUser, u)
	delete(r.bySID, sid)
	r.roster.Remove(u)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		sc := m.Signal()
		if sc == nil {
			continue
		}
		if err := sc.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// MembersSnapshot lists members in join order.
func (r *roomImpl) MembersSnapshot() []domain.Participant {
	return r.roster.Snapshot()
}

func (r *roomImpl) Whiteboard() *domain.WhiteboardCredentials {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.whiteboard == nil {
		return nil
	}
	wb := *r.whiteboard
	return &wb
}

func (r *roomImpl) SetWhiteboard(c domain.WhiteboardCredentials) {
	r.mu.Lock()
	r.whiteboard = &c
	r.mu.Unlock()
}
