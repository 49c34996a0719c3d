package orch

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Classroom/internal/app"
	"github.com/dkeye/Classroom/internal/app/sfu"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

type recorder struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (r *recorder) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return errors.New("backpressure")
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) types(t *testing.T) []protocol.Type {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Type, 0, len(r.frames))
	for _, f := range r.frames {
		h, err := protocol.Peek(f)
		require.NoError(t, err)
		out = append(out, h.Type)
	}
	return out
}

func (r *recorder) last(t *testing.T, v any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.frames)
	require.NoError(t, protocol.Decode(r.frames[len(r.frames)-1], v))
}

func newOrch(maxMembers int, policy app.Policy) *Orchestrator {
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(maxMembers),
		Policy:   policy,
		Relays:   sfu.NewRelayManager(),
	}
}

func connect(t *testing.T, o *Orchestrator, sid core.SessionID, name string, role domain.Role) *recorder {
	t.Helper()
	rec := &recorder{}
	o.Registry.BindSignal(sid, core.NewMemberSession(domain.NewMember(nil)).UpdateSignal(rec), nil)
	if name != "" {
		_, _, err := o.Login(sid, name, role)
		require.NoError(t, err)
	}
	return rec
}

func TestJoin_HostOpensRoomParticipantFollows(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, app.SimplePolicy{})
	alice := connect(t, o, "a", "alice", domain.RoleHost)
	connect(t, o, "b", "bob", domain.RoleParticipant)

	// when
	_, err := o.Join("b", "math")
	// then
	req.ErrorIs(err, ErrRoomNotFound)

	room, err := o.Join("a", "math")
	req.NoError(err)
	req.Equal(domain.RoomID("math"), room.ID())

	_, err = o.Join("b", "math")
	req.NoError(err)
	req.Equal(2, room.MemberCount())

	var joined protocol.Member
	alice.last(t, &joined)
	req.Equal(protocol.TypeMemberJoined, joined.Type)
	req.Equal("bob", joined.User.DisplayName)
}

func TestJoin_RequiresLogin(t *testing.T) {
	o := newOrch(5, nil)
	connect(t, o, "x", "", domain.RoleHost)

	_, err := o.Join("x", "math")
	require.ErrorIs(t, err, app.ErrNotLoggedIn)
	require.Equal(t, protocol.CodeNotLoggedIn, ErrorCode(err))
}

func TestJoin_SecondHostAndCapacity(t *testing.T) {
	req := require.New(t)
	o := newOrch(2, nil)
	connect(t, o, "a", "alice", domain.RoleHost)
	connect(t, o, "c", "carol", domain.RoleHost)
	connect(t, o, "b", "bob", domain.RoleParticipant)
	connect(t, o, "d", "dave", domain.RoleParticipant)

	_, err := o.Join("a", "math")
	req.NoError(err)

	_, err = o.Join("c", "math")
	req.Equal(protocol.CodeHostTaken, ErrorCode(err))

	_, err = o.Join("b", "math")
	req.NoError(err)
	_, err = o.Join("d", "math")
	req.ErrorIs(err, core.ErrRoomFull)
	req.Equal(protocol.CodeRoomFull, ErrorCode(err))

	_, _, inRoom := o.Registry.RoomOf("d")
	req.False(inRoom)
}

func TestJoin_SwitchingRoomsLeavesPrevious(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, nil)
	connect(t, o, "a", "alice", domain.RoleHost)

	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("a", "art")
	req.NoError(err)

	_, ok := o.Rooms.GetRoom("math")
	req.False(ok, "empty room is closed")
	roomID, _, ok := o.Registry.RoomOf("a")
	req.True(ok)
	req.Equal(domain.RoomID("art"), roomID)
}

func TestChat_BroadcastAndAck(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, nil)
	alice := connect(t, o, "a", "alice", domain.RoleHost)
	bob := connect(t, o, "b", "bob", domain.RoleParticipant)
	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("b", "math")
	req.NoError(err)

	// when
	ack, err := o.Chat("b", protocol.Chat{
		Header: protocol.Header{Type: protocol.TypeChat, Req: 7},
		Room:   "math",
		Text:   "hello",
	})

	// then
	req.NoError(err)
	req.Equal(uint64(7), ack.Req)
	req.Equal(protocol.TypeChatAck, ack.Type)
	req.NotEmpty(ack.MessageID)

	var msg protocol.Message
	alice.last(t, &msg)
	req.Equal("hello", msg.Text)
	req.Equal("bob", msg.From.DisplayName)
	req.Equal(ack.MessageID, msg.MessageID)
	req.NotContains(bob.types(t), protocol.TypeMessage)

	_, err = o.Chat("b", protocol.Chat{Room: "art", Text: "x"})
	req.ErrorIs(err, ErrNotInRoom)
}

func TestChat_SlowMemberIsKicked(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, app.SimplePolicy{})
	connect(t, o, "a", "alice", domain.RoleHost)
	bob := connect(t, o, "b", "bob", domain.RoleParticipant)
	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("b", "math")
	req.NoError(err)

	bob.mu.Lock()
	bob.full = true
	bob.mu.Unlock()

	_, err = o.Chat("a", protocol.Chat{Room: "math", Text: "hi"})
	req.NoError(err)

	_, _, ok := o.Registry.RoomOf("b")
	req.False(ok)
	room, _ := o.Rooms.GetRoom("math")
	req.Equal(1, room.MemberCount())
}

func TestShareWhiteboard(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, nil)
	connect(t, o, "a", "alice", domain.RoleHost)
	bob := connect(t, o, "b", "bob", domain.RoleParticipant)
	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("b", "math")
	req.NoError(err)

	wb := protocol.Whiteboard{UUID: "wb-1", RoomToken: "tok"}
	req.ErrorIs(o.ShareWhiteboard("b", wb), ErrNotHost)
	req.NoError(o.ShareWhiteboard("a", wb))

	var got protocol.Whiteboard
	bob.last(t, &got)
	req.Equal(protocol.TypeWhiteboard, got.Type)
	req.Equal(domain.WhiteboardCredentials{UUID: "wb-1", RoomToken: "tok"}, got.Credentials())

	room, _ := o.Rooms.GetRoom("math")
	req.Equal("wb-1", room.Whiteboard().UUID)
}

func TestOnDisconnect_AnnouncesAndClosesEmptyRoom(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, nil)
	alice := connect(t, o, "a", "alice", domain.RoleHost)
	connect(t, o, "b", "bob", domain.RoleParticipant)
	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("b", "math")
	req.NoError(err)

	o.OnDisconnect("b")

	var left protocol.Member
	alice.last(t, &left)
	req.Equal(protocol.TypeMemberLeft, left.Type)
	req.Equal("bob", left.User.DisplayName)
	_, ok := o.Registry.GetSession("b")
	req.False(ok)

	req.True(o.Leave("a"))
	req.False(o.Leave("a"))
	_, ok = o.Rooms.GetRoom("math")
	req.False(ok)
}

func TestEvictRoom(t *testing.T) {
	req := require.New(t)
	o := newOrch(5, nil)
	connect(t, o, "a", "alice", domain.RoleHost)
	bob := connect(t, o, "b", "bob", domain.RoleParticipant)
	_, err := o.Join("a", "math")
	req.NoError(err)
	_, err = o.Join("b", "math")
	req.NoError(err)

	req.True(o.EvictRoom("math"))

	req.Empty(o.Rooms.List())
	req.Contains(bob.types(t), protocol.TypeLeft)
	_, _, ok := o.Registry.RoomOf("a")
	req.False(ok)
	// logins survive the eviction
	_, ok = o.Registry.GetSession("b")
	req.True(ok)
	req.False(o.EvictRoom("math"))
}
