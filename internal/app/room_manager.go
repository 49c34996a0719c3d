package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

type RoomManagerImpl struct {
	maxMembers int

	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager(maxMembers int) core.RoomManager {
	return &RoomManagerImpl{
		maxMembers: maxMembers,
		rooms:      make(map[domain.RoomID]core.RoomService),
	}
}

func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(id, f.maxMembers)
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

// List is sorted by room id.
func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		_, hasHost := domain.Room{Members: r.MembersSnapshot()}.Host()
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount(), HasHost: hasHost})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *RoomManagerImpl) StopRoom(id domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room stopped")
}
