package app

import "github.com/dkeye/Classroom/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks any member whose send queue is full.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the frame for a slow member and keeps it in the room.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return DropFrame
}

// PolicyByName maps a config value to a policy. Unknown names fall back to
// SimplePolicy.
func PolicyByName(name string) Policy {
	if name == "tolerant" {
		return TolerantPolicy{}
	}
	return SimplePolicy{}
}
