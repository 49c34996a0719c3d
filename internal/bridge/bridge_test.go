package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/Classroom/internal/bridge"
	"github.com/dkeye/Classroom/internal/client"
	"github.com/dkeye/Classroom/internal/directory"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/mocks"
	"github.com/dkeye/Classroom/internal/store"
)

var (
	alice = domain.Participant{ID: "u-alice", DisplayName: "alice", Role: domain.RoleHost}
	bob   = domain.Participant{ID: "u-bob", DisplayName: "bob", Role: domain.RoleParticipant}
)

type fixture struct {
	bridge    *bridge.Bridge
	transport *mocks.MockTransport
	events    chan client.Event
	store     *store.Store
	roster    *directory.Roster
	// stop ends Run and waits for it.
	stop func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		transport: mocks.NewMockTransport(ctrl),
		events:    make(chan client.Event, 16),
		store:     store.New(),
		roster:    directory.New(),
	}
	f.transport.EXPECT().Events().Return(f.events).AnyTimes()
	f.bridge = bridge.New(f.transport, f.store, f.roster)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.bridge.Run(ctx)
	}()
	f.stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(f.stop)
	return f
}

// enterRoom logs in as alice and joins room1 with the given members.
func (f *fixture) enterRoom(t *testing.T, members ...domain.Participant) {
	t.Helper()
	req := require.New(t)
	f.transport.EXPECT().Login(gomock.Any(), "alice", domain.RoleHost).
		Return(domain.Session{UserID: alice.ID, DisplayName: "alice", Role: domain.RoleHost, AuthToken: "tok"}, nil)
	f.expectJoin(domain.Room{ID: "room1", Members: members})

	_, err := f.bridge.Login(context.Background(), "alice", domain.RoleHost)
	req.NoError(err)
	_, err = f.bridge.JoinRoom(context.Background(), "room1")
	req.NoError(err)
}

// expectJoin answers the next join with room, raising RoomJoined the way
// the session does before the join returns, followed by then.
func (f *fixture) expectJoin(room domain.Room, then ...client.Event) {
	f.transport.EXPECT().JoinRoom(gomock.Any(), room.ID).
		DoAndReturn(func(context.Context, domain.RoomID) (domain.Room, error) {
			f.events <- client.RoomJoined{Room: room}
			for _, ev := range then {
				f.events <- ev
			}
			return room, nil
		})
}

func (f *fixture) eventually(t *testing.T, cond func(store.State) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.store.State()) }, time.Second, 5*time.Millisecond)
}

func TestLoginAndJoin_FillStore(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// when
	f.enterRoom(t, alice)

	// then
	st := f.store.State()
	req.Equal("alice", st.Nickname)
	req.Equal(domain.RoleHost, st.Role)
	req.Equal(alice.ID, st.UserID)
	req.Equal(domain.Connected, st.Connection)
	req.Equal(domain.RoomID("room1"), st.Room)
	req.Equal([]domain.Participant{alice}, st.Users)
	host, ok := f.roster.Host()
	req.True(ok)
	req.Equal(alice.ID, host.ID)
}

func TestLogin_FailureLeavesStoreUntouched(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.transport.EXPECT().Login(gomock.Any(), "alice", domain.RoleHost).
		Return(domain.Session{}, &domain.AuthError{Reason: "network"})
	f.transport.EXPECT().JoinRoom(gomock.Any(), domain.RoomID("room1")).
		Return(domain.Room{}, &domain.AuthError{Reason: "no_session"})
	before := f.store.Version()

	_, err := f.bridge.Login(context.Background(), "alice", domain.RoleHost)
	req.Error(err)
	_, err = f.bridge.JoinRoom(context.Background(), "room1")
	var authErr *domain.AuthError
	req.ErrorAs(err, &authErr)

	req.Equal(before, f.store.Version())
	req.Empty(f.store.State().Room)
}

func TestSendText_PendingThenDelivered(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice)

	d, settle := client.NewDelivery()
	f.transport.EXPECT().SendTextMessage(domain.RoomID("room1"), 2, "hello").Return(d)

	// when
	id, err := f.bridge.SendText("room1", 2, "hello")

	// then the message is already there, pending
	req.NoError(err)
	msg, ok := f.store.State().Message(id)
	req.True(ok)
	req.Equal(domain.Pending, msg.State)
	req.True(msg.FromMe)
	req.Equal(alice.ID, msg.SenderID)

	settle("srv-1", nil)
	f.eventually(t, func(st store.State) bool {
		m, _ := st.Message(id)
		return m.State == domain.Delivered
	})
	msg, _ = f.store.State().Message(id)
	req.Equal("hello", msg.Text)
	req.Equal("srv-1", msg.RemoteID)
}

func TestSendText_NoNetworkEndsFailed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice)

	d, settle := client.NewDelivery()
	settle("", &domain.DeliveryError{Reason: "no_session", Err: client.ErrNoSession})
	f.transport.EXPECT().SendTextMessage(domain.RoomID("room1"), 0, "anyone?").Return(d)

	id, err := f.bridge.SendText("room1", 0, "anyone?")
	req.NoError(err)

	f.eventually(t, func(st store.State) bool {
		m, _ := st.Message(id)
		return m.State == domain.Failed
	})
	msg, _ := f.store.State().Message(id)
	req.Equal(id, msg.ID)
	req.Equal("anyone?", msg.Text)
	req.Len(f.store.State().Messages, 1)
}

func TestSendText_Rejections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.bridge.SendText("room1", 0, "hi")
	req.ErrorIs(err, bridge.ErrNoRoom)

	f.enterRoom(t, alice)
	before := f.store.Version()

	_, err = f.bridge.SendText("room1", 0, "   ")
	req.ErrorIs(err, bridge.ErrEmptyMessage)
	_, err = f.bridge.SendText("other", 0, "hi")
	req.ErrorIs(err, bridge.ErrNoRoom)
	req.Equal(before, f.store.Version())
}

func TestEvents_PresenceAndMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice)

	// when
	f.events <- client.ParticipantJoined{Room: "room1", Participant: bob}
	f.events <- client.MessageReceived{Room: "room1", Channel: 2, From: bob, Text: "hi", RemoteID: "m-1", SentAt: time.Now()}
	f.events <- client.MessageReceived{Room: "elsewhere", From: bob, Text: "lost"}
	f.events <- client.WhiteboardShared{Room: "room1", Credentials: domain.WhiteboardCredentials{UUID: "wb", RoomToken: "tok"}}

	// then
	f.eventually(t, func(st store.State) bool { return st.WhiteBoardRoom != nil })
	st := f.store.State()
	req.Len(st.Users, 2)
	req.True(f.roster.Has(bob.ID))
	req.Len(st.Messages, 1)
	req.Equal("hi", st.Messages[0].Text)
	req.Equal(domain.Delivered, st.Messages[0].State)
	req.False(st.Messages[0].FromMe)
	req.Equal("m-1", st.Messages[0].RemoteID)
	req.Equal("wb", st.WhiteBoardRoom.UUID)

	// leave and rejoin gives one fresh entry
	f.events <- client.ParticipantLeft{Room: "room1", Participant: bob}
	f.eventually(t, func(st store.State) bool { return len(st.Users) == 1 })
	req.False(f.roster.Has(bob.ID))

	f.events <- client.ParticipantJoined{Room: "room1", Participant: bob}
	f.events <- client.ParticipantJoined{Room: "room1", Participant: bob}
	f.eventually(t, func(st store.State) bool { return len(st.Users) == 2 })
	req.Len(f.roster.Snapshot(), 2)
}

func TestEvents_ConnectionLost(t *testing.T) {
	f := newFixture(t)
	f.enterRoom(t, alice, bob)

	f.events <- client.ConnectionLost{Err: errors.New("eof")}

	f.eventually(t, func(st store.State) bool {
		return st.Connection == domain.Disconnected && len(st.Users) == 0
	})
	require.Zero(t, f.roster.Len())
}

func TestLogout_ResetsAndIsRepeatable(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice, bob)
	f.transport.EXPECT().Logout().Times(2)

	req.NoError(f.bridge.Logout(context.Background()))
	req.NoError(f.bridge.Logout(context.Background()))

	st := f.store.State()
	req.Empty(st.Room)
	req.Empty(st.Users)
	req.Empty(st.Nickname)
	req.Zero(f.roster.Len())
}

func TestShareWhiteboard(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice)
	creds := domain.WhiteboardCredentials{UUID: "wb", RoomToken: "tok"}

	f.transport.EXPECT().ShareWhiteboard(gomock.Any(), creds).Return(nil)
	req.NoError(f.bridge.ShareWhiteboard(context.Background(), creds))
	req.Equal(&creds, f.store.State().WhiteBoardRoom)

	f.transport.EXPECT().ShareWhiteboard(gomock.Any(), creds).Return(errors.New("not host"))
	req.Error(f.bridge.ShareWhiteboard(context.Background(), creds))
}

func TestJoinRoom_PresenceRightAfterSnapshotIsKept(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.transport.EXPECT().Login(gomock.Any(), "alice", domain.RoleHost).
		Return(domain.Session{UserID: alice.ID, DisplayName: "alice", Role: domain.RoleHost}, nil)

	// given bob joins right after the server answered our join
	f.expectJoin(domain.Room{ID: "room1", Members: []domain.Participant{alice}},
		client.ParticipantJoined{Room: "room1", Participant: bob})

	// when
	_, err := f.bridge.Login(context.Background(), "alice", domain.RoleHost)
	req.NoError(err)
	room, err := f.bridge.JoinRoom(context.Background(), "room1")

	// then the snapshot is applied first and bob is not lost
	req.NoError(err)
	req.Equal(domain.RoomID("room1"), room.ID)
	f.eventually(t, func(st store.State) bool { return len(st.Users) == 2 })
	req.True(f.roster.Has(bob.ID))
	req.Equal([]domain.Participant{alice, bob}, f.store.State().Users)
}

func TestJoinRoom_ConnectionLostEndsWait(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// given the link drops before the snapshot could be raised
	f.transport.EXPECT().JoinRoom(gomock.Any(), domain.RoomID("room1")).
		DoAndReturn(func(context.Context, domain.RoomID) (domain.Room, error) {
			f.events <- client.ConnectionLost{Err: errors.New("eof")}
			return domain.Room{ID: "room1"}, nil
		})

	// when
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.bridge.JoinRoom(ctx, "room1")

	// then
	req.ErrorIs(err, client.ErrConnectionLost)
	req.Empty(f.store.State().Room)
}

func TestEvents_RejoinAsHostKeepsEntry(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	carol := domain.Participant{ID: "u-carol", DisplayName: "carol", Role: domain.RoleParticipant}
	f.enterRoom(t, alice, carol)

	// when carol comes back claiming the seat alice holds
	promoted := carol
	promoted.Role = domain.RoleHost
	f.events <- client.ParticipantJoined{Room: "room1", Participant: promoted}
	f.events <- client.WhiteboardShared{Room: "room1", Credentials: domain.WhiteboardCredentials{UUID: "wb", RoomToken: "tok"}}

	// then her previous entry survives in the roster and the store
	f.eventually(t, func(st store.State) bool { return st.WhiteBoardRoom != nil })
	p, ok := f.roster.Get(carol.ID)
	req.True(ok)
	req.Equal(domain.RoleParticipant, p.Role)
	req.Equal([]domain.Participant{alice, carol}, f.store.State().Users)
}

func TestEvents_RoomClosedClearsRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice, bob)

	// a close for another room changes nothing
	f.events <- client.RoomLeft{Room: "elsewhere"}
	// when
	f.events <- client.RoomLeft{Room: "room1"}
	f.events <- client.MessageReceived{Room: "room1", From: bob, Text: "too late"}

	// then
	f.eventually(t, func(st store.State) bool { return st.Room == "" })
	st := f.store.State()
	req.Empty(st.Users)
	req.Nil(st.WhiteBoardRoom)
	req.Equal(domain.Connected, st.Connection)
	req.Zero(f.roster.Len())
	_, err := f.bridge.SendText("room1", 0, "hello?")
	req.ErrorIs(err, bridge.ErrNoRoom)
	req.Empty(f.store.State().Messages)
}

func TestSendText_SettledAfterStop(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.enterRoom(t, alice)
	d, settle := client.NewDelivery()
	f.transport.EXPECT().SendTextMessage(domain.RoomID("room1"), 0, "bye").Return(d)
	id, err := f.bridge.SendText("room1", 0, "bye")
	req.NoError(err)

	// when the bridge stops before the ack arrives
	f.stop()
	settle("srv-9", nil)

	// then the message still settles
	f.eventually(t, func(st store.State) bool {
		m, _ := st.Message(id)
		return m.State == domain.Delivered
	})
	msg, _ := f.store.State().Message(id)
	req.Equal("srv-9", msg.RemoteID)
}
