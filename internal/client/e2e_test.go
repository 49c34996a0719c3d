package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	router "github.com/dkeye/Classroom/internal/adapters/http"
	"github.com/dkeye/Classroom/internal/app"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/app/sfu"
	"github.com/dkeye/Classroom/internal/client"
	"github.com/dkeye/Classroom/internal/config"
	"github.com/dkeye/Classroom/internal/domain"
)

type classroom struct {
	url  string
	api  string
	stop context.CancelFunc
}

func startClassroom(t *testing.T) *classroom {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(domain.DefaultMaxMembers),
		Policy:   app.SimplePolicy{},
		Relays:   sfu.NewRelayManager(),
	}
	cfg := &config.Config{
		Mode:         "release",
		Secret:       "test-secret",
		ReadLimit:    32768,
		PingPeriod:   time.Minute,
		MaxMembers:   domain.DefaultMaxMembers,
		ChatLimit:    50,
		ChatInterval: time.Second,
	}
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &classroom{
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal",
		api:  srv.URL + "/api",
		stop: cancel,
	}
}

func (c *classroom) session(t *testing.T, name string, role domain.Role) *client.Session {
	t.Helper()
	s := client.New(client.Options{URL: c.url, AckTimeout: 2 * time.Second})
	_, err := s.Login(context.Background(), name, role)
	require.NoError(t, err)
	t.Cleanup(s.Logout)
	return s
}

// waitFor returns the next event of type T, skipping others.
func waitFor[T client.Event](t *testing.T, s *client.Session) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if e, ok := ev.(T); ok {
				return e
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T event", zero)
			return zero
		}
	}
}

func TestClassroom_HostOpensRoom(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)

	// when
	room, err := alice.JoinRoom(context.Background(), "room1")

	// then
	req.NoError(err)
	req.Equal(domain.RoomID("room1"), room.ID)
	req.Len(room.Members, 1)
	req.Equal("alice", room.Members[0].DisplayName)
	req.Equal(domain.RoleHost, room.Members[0].Role)
	req.Equal(domain.RoomID("room1"), alice.Room())
}

func TestClassroom_SnapshotPrecedesPresence(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)

	// when
	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	// then the snapshot is queued by the time the join returns
	select {
	case ev := <-alice.Events():
		joined, ok := ev.(client.RoomJoined)
		req.True(ok, "got %T", ev)
		req.Equal(domain.RoomID("room1"), joined.Room.ID)
		req.Len(joined.Room.Members, 1)
	default:
		t.Fatal("no RoomJoined queued")
	}

	// and later arrivals follow it
	_, err = bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	bobJoined := waitFor[client.RoomJoined](t, bob)
	req.Len(bobJoined.Room.Members, 2)
	arrived := waitFor[client.ParticipantJoined](t, alice)
	req.Equal("bob", arrived.Participant.DisplayName)
}

func TestClassroom_EvictedRoomRaisesRoomLeft(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)
	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	_, err = bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	// when an operator closes the room
	r, err := http.NewRequest(http.MethodDelete, c.api+"/rooms/room1", nil)
	req.NoError(err)
	r.Header.Set(router.AdminSecretHeader, "test-secret")
	resp, err := http.DefaultClient.Do(r)
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(http.StatusNoContent, resp.StatusCode)

	// then both members hear about it and keep their login
	for _, s := range []*client.Session{alice, bob} {
		left := waitFor[client.RoomLeft](t, s)
		req.Equal(domain.RoomID("room1"), left.Room)
		req.Empty(s.Room())
		_, ok := s.Current()
		req.True(ok)
	}
	_, err = alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)
}

func TestClassroom_JoinFailuresKeepSession(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)
	carol := c.session(t, "carol", domain.RoleHost)

	_, err := bob.JoinRoom(context.Background(), "room1")
	var joinErr *domain.JoinError
	req.ErrorAs(err, &joinErr)
	req.Equal(domain.JoinRoomNotFound, joinErr.Reason)

	_, err = alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	_, err = carol.JoinRoom(context.Background(), "room1")
	req.ErrorAs(err, &joinErr)
	req.Equal(domain.JoinHostTaken, joinErr.Reason)

	room, err := bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	req.Len(room.Members, 2)
}

func TestClassroom_ChatAndPresence(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)

	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	_, err = bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	joined := waitFor[client.ParticipantJoined](t, alice)
	req.Equal("bob", joined.Participant.DisplayName)

	// when
	d := bob.SendTextMessage("room1", 2, "hello teacher")

	// then
	req.NoError(d.Wait(context.Background()))
	req.NotEmpty(d.RemoteID())

	msg := waitFor[client.MessageReceived](t, alice)
	req.Equal("hello teacher", msg.Text)
	req.Equal(2, msg.Channel)
	req.Equal("bob", msg.From.DisplayName)
	req.Equal(d.RemoteID(), msg.RemoteID)

	// whiteboard credentials travel from the host to the room
	creds := domain.WhiteboardCredentials{UUID: "wb-uuid", RoomToken: "wb-token"}
	req.NoError(alice.ShareWhiteboard(context.Background(), creds))
	shared := waitFor[client.WhiteboardShared](t, bob)
	req.Equal(creds, shared.Credentials)
	req.Error(bob.ShareWhiteboard(context.Background(), creds))
}

func TestClassroom_LeaveAndRejoin(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)

	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	_, err = bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	req.NoError(bob.LeaveRoom(context.Background()))
	own := waitFor[client.RoomLeft](t, bob)
	req.Equal(domain.RoomID("room1"), own.Room)
	left := waitFor[client.ParticipantLeft](t, alice)
	req.Equal("bob", left.Participant.DisplayName)
	req.Empty(bob.Room())

	room, err := bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	req.Len(room.Members, 2)
	req.NotEqual(room.Members[0].ID, room.Members[1].ID)
}

func TestClassroom_LogoutAnnouncesLeave(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	bob := c.session(t, "bob", domain.RoleParticipant)
	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)
	_, err = bob.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	bob.Logout()
	bob.Logout()

	left := waitFor[client.ParticipantLeft](t, alice)
	req.Equal("bob", left.Participant.DisplayName)
}

func TestClassroom_ServerGoesAway(t *testing.T) {
	req := require.New(t)
	c := startClassroom(t)
	alice := c.session(t, "alice", domain.RoleHost)
	_, err := alice.JoinRoom(context.Background(), "room1")
	req.NoError(err)

	c.stop()

	lost := waitFor[client.ConnectionLost](t, alice)
	req.ErrorIs(lost.Err, client.ErrConnectionLost)

	d := alice.SendTextMessage("room1", 0, "anyone?")
	var delErr *domain.DeliveryError
	req.ErrorAs(d.Wait(context.Background()), &delErr)
}
