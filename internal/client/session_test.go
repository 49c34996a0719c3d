package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/protocol"
)

var errClosed = errors.New("use of closed connection")

// pipeConn is an in-memory Conn driven by a scripted server.
type pipeConn struct {
	toClient chan []byte
	toServer chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		toClient: make(chan []byte, 16),
		toServer: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (c *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case d := <-c.toClient:
		return 1, d, nil
	case <-c.closed:
		return 0, nil, errClosed
	}
}

func (c *pipeConn) WriteMessage(_ int, data []byte) error {
	select {
	case c.toServer <- data:
		return nil
	case <-c.closed:
		return errClosed
	}
}

func (c *pipeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type pipeDialer struct{ conn *pipeConn }

func (d pipeDialer) Dial(context.Context, string) (Conn, error) { return d.conn, nil }

type failDialer struct{}

func (failDialer) Dial(context.Context, string) (Conn, error) { return nil, errors.New("connection refused") }

// fakeServer answers login and join and hands every other frame to the test.
type fakeServer struct {
	t       *testing.T
	conn    *pipeConn
	release chan struct{}
	other   chan []byte
}

func startFakeServer(t *testing.T, conn *pipeConn, holdLogin bool) *fakeServer {
	fs := &fakeServer{t: t, conn: conn, other: make(chan []byte, 16)}
	if holdLogin {
		fs.release = make(chan struct{})
	}
	go fs.loop()
	return fs
}

func (fs *fakeServer) reply(v any) {
	data, err := protocol.Encode(v)
	require.NoError(fs.t, err)
	select {
	case fs.conn.toClient <- data:
	case <-fs.conn.closed:
	}
}

func (fs *fakeServer) loop() {
	for {
		var data []byte
		select {
		case data = <-fs.conn.toServer:
		case <-fs.conn.closed:
			return
		}
		h, err := protocol.Peek(data)
		if err != nil {
			continue
		}
		switch h.Type {
		case protocol.TypeLogin:
			if fs.release != nil {
				<-fs.release
			}
			var in protocol.Login
			_ = protocol.Decode(data, &in)
			fs.reply(protocol.LoginOK{
				Header: h.Reply(protocol.TypeLoginOK),
				User:   domain.Participant{ID: "u-1", DisplayName: in.Name, Role: in.Role},
				Token:  "tok",
			})
		case protocol.TypeJoin:
			fs.reply(protocol.NewError(h, protocol.CodeRoomFull, "room is full"))
		default:
			fs.other <- data
		}
	}
}

func TestLogin_ConcurrentLoginIsRejected(t *testing.T) {
	req := require.New(t)
	conn := newPipeConn()
	srv := startFakeServer(t, conn, true)
	s := New(Options{Dialer: pipeDialer{conn}})

	// given a login waiting for the server
	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "alice", domain.RoleHost)
		done <- err
	}()
	req.Eventually(func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.pending
	}, time.Second, 5*time.Millisecond)

	// when
	_, err := s.Login(context.Background(), "alice", domain.RoleHost)

	// then
	req.ErrorIs(err, ErrLoginPending)
	var authErr *domain.AuthError
	req.ErrorAs(err, &authErr)

	close(srv.release)
	req.NoError(<-done)

	_, err = s.Login(context.Background(), "alice", domain.RoleHost)
	req.ErrorIs(err, ErrSessionActive)

	cur, ok := s.Current()
	req.True(ok)
	req.Equal("tok", cur.AuthToken)
	req.Equal(domain.RoleHost, cur.Role)
	s.Logout()
}

func TestLogin_InvalidNameAndNetworkFailure(t *testing.T) {
	req := require.New(t)
	s := New(Options{Dialer: failDialer{}})

	_, err := s.Login(context.Background(), "   ", domain.RoleParticipant)
	var authErr *domain.AuthError
	req.ErrorAs(err, &authErr)
	req.ErrorIs(err, domain.ErrUsernameEmpty)

	_, err = s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.ErrorAs(err, &authErr)
	req.Equal("network", authErr.Reason)

	// retry after a failure is allowed
	conn := newPipeConn()
	startFakeServer(t, conn, false)
	s.opts.Dialer = pipeDialer{conn}
	_, err = s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)
	s.Logout()
}

// closingServer accepts the login and hangs up straight after.
func closingServer(t *testing.T, conn *pipeConn) {
	go func() {
		var data []byte
		select {
		case data = <-conn.toServer:
		case <-conn.closed:
			return
		}
		h, err := protocol.Peek(data)
		require.NoError(t, err)
		reply, err := protocol.Encode(protocol.LoginOK{
			Header: h.Reply(protocol.TypeLoginOK),
			User:   domain.Participant{ID: "u-1", DisplayName: "bob", Role: domain.RoleParticipant},
			Token:  "tok",
		})
		require.NoError(t, err)
		select {
		case conn.toClient <- reply:
		case <-conn.closed:
		}
		_ = conn.Close()
	}()
}

func TestLogin_LinkDroppedAfterAcceptIsNotKept(t *testing.T) {
	req := require.New(t)
	for i := 0; i < 50; i++ {
		conn := newPipeConn()
		closingServer(t, conn)
		s := New(Options{Dialer: pipeDialer{conn}})

		// when
		_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)

		// then either the login fails or its loss is reported
		if err != nil {
			var authErr *domain.AuthError
			req.ErrorAs(err, &authErr)
			req.Equal("network", authErr.Reason)
		} else {
			select {
			case ev := <-s.Events():
				_, ok := ev.(ConnectionLost)
				req.True(ok, "got %T", ev)
			case <-time.After(time.Second):
				t.Fatal("login kept on a dead link without ConnectionLost")
			}
		}
		_, ok := s.Current()
		req.False(ok)

		// and a fresh login is possible
		next := newPipeConn()
		startFakeServer(t, next, false)
		s.opts.Dialer = pipeDialer{next}
		_, err = s.Login(context.Background(), "bob", domain.RoleParticipant)
		req.NoError(err)
		s.Logout()
	}
}

func TestJoinRoom_WithoutLogin(t *testing.T) {
	req := require.New(t)
	s := New(Options{Dialer: failDialer{}})

	_, err := s.JoinRoom(context.Background(), "room1")

	var authErr *domain.AuthError
	req.ErrorAs(err, &authErr)
	req.ErrorIs(err, ErrNoSession)
	req.Empty(s.Room())
}

func TestJoinRoom_ServerRejectionKeepsSession(t *testing.T) {
	req := require.New(t)
	conn := newPipeConn()
	startFakeServer(t, conn, false)
	s := New(Options{Dialer: pipeDialer{conn}})
	_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)

	_, err = s.JoinRoom(context.Background(), "room1")

	var joinErr *domain.JoinError
	req.ErrorAs(err, &joinErr)
	req.Equal(domain.JoinRoomFull, joinErr.Reason)
	_, ok := s.Current()
	req.True(ok)
	s.Logout()
}

func TestSendTextMessage_AckTimeout(t *testing.T) {
	req := require.New(t)
	conn := newPipeConn()
	srv := startFakeServer(t, conn, false)
	s := New(Options{Dialer: pipeDialer{conn}, AckTimeout: 30 * time.Millisecond})
	_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)

	d := s.SendTextMessage("room1", 2, "hello")
	req.Nil(d.Err())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = d.Wait(ctx)

	var delErr *domain.DeliveryError
	req.ErrorAs(err, &delErr)
	req.Equal("timeout", delErr.Reason)
	req.ErrorIs(err, ErrAckTimeout)

	var chat protocol.Chat
	req.NoError(protocol.Decode(<-srv.other, &chat))
	req.Equal(2, chat.Channel)
	req.Equal("hello", chat.Text)
	s.Logout()
}

func TestSendTextMessage_AckSettlesDelivered(t *testing.T) {
	req := require.New(t)
	conn := newPipeConn()
	srv := startFakeServer(t, conn, false)
	s := New(Options{Dialer: pipeDialer{conn}})
	_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)

	d := s.SendTextMessage("room1", 0, "hello")
	var chat protocol.Chat
	req.NoError(protocol.Decode(<-srv.other, &chat))
	srv.reply(protocol.ChatAck{Header: chat.Reply(protocol.TypeChatAck), MessageID: "m-1"})

	req.NoError(d.Wait(context.Background()))
	req.Equal("m-1", d.RemoteID())
	s.Logout()
}

func TestConnectionLoss_FailsPendingAndRaisesEvent(t *testing.T) {
	req := require.New(t)
	conn := newPipeConn()
	srv := startFakeServer(t, conn, false)
	s := New(Options{Dialer: pipeDialer{conn}})
	_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)

	d := s.SendTextMessage("room1", 0, "hello")
	<-srv.other

	// when the connection drops
	_ = conn.Close()

	// then
	err = d.Wait(context.Background())
	var delErr *domain.DeliveryError
	req.ErrorAs(err, &delErr)
	req.Equal("connection_lost", delErr.Reason)

	select {
	case ev := <-s.Events():
		lost, ok := ev.(ConnectionLost)
		req.True(ok)
		req.ErrorIs(lost.Err, ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("no ConnectionLost event")
	}
	_, ok := s.Current()
	req.False(ok)

	// and further sends fail immediately
	err = s.SendTextMessage("room1", 0, "again").Err()
	req.ErrorAs(err, &delErr)
	req.Equal("no_session", delErr.Reason)
}

func TestLogout_IsIdempotentAndSilent(t *testing.T) {
	req := require.New(t)
	s := New(Options{Dialer: failDialer{}})
	s.Logout()

	conn := newPipeConn()
	srv := startFakeServer(t, conn, false)
	s.opts.Dialer = pipeDialer{conn}
	_, err := s.Login(context.Background(), "bob", domain.RoleParticipant)
	req.NoError(err)

	d := s.SendTextMessage("room1", 0, "bye")
	<-srv.other
	s.Logout()
	s.Logout()

	var delErr *domain.DeliveryError
	req.ErrorAs(d.Wait(context.Background()), &delErr)
	req.Equal("logout", delErr.Reason)

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %T", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDelivery_SettlesOnce(t *testing.T) {
	req := require.New(t)
	d, settle := NewDelivery()
	req.Nil(d.Err())

	settle("m-1", nil)
	settle("", errors.New("late"))

	<-d.Done()
	req.NoError(d.Err())
	req.Equal("m-1", d.RemoteID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pendingD, _ := NewDelivery()
	req.ErrorIs(pendingD.Wait(ctx), context.Canceled)
}
