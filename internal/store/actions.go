package store

import (
	"slices"

	"github.com/dkeye/Classroom/internal/domain"
)

type ActionType string

const (
	TypeSetRoom            ActionType = "setRoom"
	TypeSetUserID          ActionType = "setUserID"
	TypeSetNickname        ActionType = "setNickname"
	TypeSetRole            ActionType = "setRole"
	TypeAddOneUser         ActionType = "addOneUser"
	TypeRemoveOneUser      ActionType = "removeOneUser"
	TypeSetUsers           ActionType = "setUsers"
	TypeAddOneMessage      ActionType = "addOneMessage"
	TypeUpdateOneMessage   ActionType = "updateOneMessage"
	TypeSetWhiteBoardRoom  ActionType = "setWhiteBoardRoom"
	TypeSetConnectionState ActionType = "setConnectionState"
	TypeReset              ActionType = "reset"
)

type Action struct {
	Type  ActionType
	apply func(*State) error
}

func SetRoom(id domain.RoomID) Action {
	return Action{TypeSetRoom, func(s *State) error {
		s.Room = id
		return nil
	}}
}

func SetUserID(id domain.UserID) Action {
	return Action{TypeSetUserID, func(s *State) error {
		s.UserID = id
		return nil
	}}
}

func SetNickname(name string) Action {
	return Action{TypeSetNickname, func(s *State) error {
		s.Nickname = name
		return nil
	}}
}

func SetRole(r domain.Role) Action {
	return Action{TypeSetRole, func(s *State) error {
		if !r.Valid() {
			return domain.ErrInvalidRole
		}
		s.Role = r
		return nil
	}}
}

// AddOneUser appends p, or replaces the entry with the same id.
func AddOneUser(p domain.Participant) Action {
	return Action{TypeAddOneUser, func(s *State) error {
		if i := slices.IndexFunc(s.Users, func(u domain.Participant) bool { return u.ID == p.ID }); i >= 0 {
			s.Users[i] = p
			return nil
		}
		s.Users = append(s.Users, p)
		return nil
	}}
}

func RemoveOneUser(id domain.UserID) Action {
	return Action{TypeRemoveOneUser, func(s *State) error {
		s.Users = slices.DeleteFunc(s.Users, func(u domain.Participant) bool { return u.ID == id })
		return nil
	}}
}

func SetUsers(ps []domain.Participant) Action {
	return Action{TypeSetUsers, func(s *State) error {
		s.Users = slices.Clone(ps)
		return nil
	}}
}

// AddOneMessage appends to the log. Ids never repeat.
func AddOneMessage(m domain.ChatMessage) Action {
	return Action{TypeAddOneMessage, func(s *State) error {
		if _, ok := s.Message(m.ID); ok {
			return ErrDuplicateMessage
		}
		s.Messages = append(s.Messages, m)
		return nil
	}}
}

// UpdateOneMessage settles a pending message. remoteID is kept when set.
func UpdateOneMessage(id domain.MessageID, to domain.DeliveryState, remoteID string) Action {
	return Action{TypeUpdateOneMessage, func(s *State) error {
		i := slices.IndexFunc(s.Messages, func(m domain.ChatMessage) bool { return m.ID == id })
		if i < 0 {
			return ErrUnknownMessage
		}
		if err := s.Messages[i].Settle(to); err != nil {
			return err
		}
		if remoteID != "" {
			s.Messages[i].RemoteID = remoteID
		}
		return nil
	}}
}

// SetWhiteBoardRoom with nil clears the credentials.
func SetWhiteBoardRoom(c *domain.WhiteboardCredentials) Action {
	return Action{TypeSetWhiteBoardRoom, func(s *State) error {
		if c == nil {
			s.WhiteBoardRoom = nil
			return nil
		}
		wb := *c
		s.WhiteBoardRoom = &wb
		return nil
	}}
}

func SetConnectionState(c domain.ConnectionState) Action {
	return Action{TypeSetConnectionState, func(s *State) error {
		s.Connection = c
		return nil
	}}
}

func Reset() Action {
	return Action{TypeReset, func(s *State) error {
		*s = initialState()
		return nil
	}}
}
