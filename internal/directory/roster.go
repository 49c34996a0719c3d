// Package directory keeps the roster of a room: who is connected and with
// which role. Roles partition the roster: every participant has exactly one
// role and at most one participant is the host.
package directory

import (
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/dkeye/Classroom/internal/domain"
)

var (
	ErrHostTaken = errors.New("room already has a host")
	ErrDuplicate = errors.New("participant already in roster")
)

// Roster is safe for concurrent use. Readers get copies.
type Roster struct {
	mu    sync.RWMutex
	byID  map[domain.UserID]domain.Participant
	order []domain.UserID
	host  domain.UserID
}

func New() *Roster {
	return &Roster{byID: make(map[domain.UserID]domain.Participant)}
}

func (r *Roster) Add(p domain.Participant) error {
	if !p.Role.Valid() {
		return domain.ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(p)
}

func (r *Roster) addLocked(p domain.Participant) error {
	if _, ok := r.byID[p.ID]; ok {
		return ErrDuplicate
	}
	if p.Role == domain.RoleHost {
		if r.host != "" {
			return ErrHostTaken
		}
		r.host = p.ID
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Upsert adds p, or replaces the entry with the same id where it stands.
// On error the roster is unchanged.
func (r *Roster) Upsert(p domain.Participant) error {
	if !p.Role.Valid() {
		return domain.ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return r.addLocked(p)
	}
	switch {
	case p.Role == domain.RoleHost && r.host != "" && r.host != p.ID:
		return ErrHostTaken
	case p.Role == domain.RoleHost:
		r.host = p.ID
	case r.host == p.ID:
		r.host = ""
	}
	r.byID[p.ID] = p
	return nil
}

// Remove drops the participant and reports whether it was present.
func (r *Roster) Remove(id domain.UserID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.byID, id)
	r.order = lo.Without(r.order, id)
	if r.host == id {
		r.host = ""
	}
	return p, true
}

// Replace swaps the whole roster atomically. On error the roster is unchanged.
func (r *Roster) Replace(ps []domain.Participant) error {
	next := New()
	for _, p := range ps {
		if err := next.Add(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID, r.order, r.host = next.byID, next.order, next.host
	return nil
}

func (r *Roster) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[domain.UserID]domain.Participant)
	r.order = nil
	r.host = ""
}

func (r *Roster) Get(id domain.UserID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

func (r *Roster) Has(id domain.UserID) bool {
	_, ok := r.Get(id)
	return ok
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Host returns the current host, at most one.
func (r *Roster) Host() (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.host == "" {
		return domain.Participant{}, false
	}
	return r.byID[r.host], true
}

// Snapshot returns every participant in join order.
func (r *Roster) Snapshot() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(id domain.UserID, _ int) domain.Participant {
		return r.byID[id]
	})
}

func (r *Roster) ListByRole(role domain.Role) []domain.Participant {
	return lo.Filter(r.Snapshot(), func(p domain.Participant, _ int) bool {
		return p.Role == role
	})
}

// Participants lists everyone who is not the host.
func (r *Roster) Participants() []domain.Participant {
	return r.ListByRole(domain.RoleParticipant)
}
