// Package bridge turns session events and user commands into store
// updates. One goroutine drains a FIFO inbox; every inbox entry becomes
// exactly one Dispatch.
package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Classroom/internal/client"
	"github.com/dkeye/Classroom/internal/directory"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/store"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrNoRoom       = errors.New("not in that room")
	ErrStopped      = errors.New("bridge stopped")
)

// Transport is the part of client.Session the bridge drives.
//
//go:generate mockgen -destination=../mocks/transport_mock.go -package=mocks github.com/dkeye/Classroom/internal/bridge Transport
type Transport interface {
	Events() <-chan client.Event
	Login(ctx context.Context, displayName string, role domain.Role) (domain.Session, error)
	JoinRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error)
	SendTextMessage(roomID domain.RoomID, channel int, text string) *client.Delivery
	ShareWhiteboard(ctx context.Context, creds domain.WhiteboardCredentials) error
	Logout()
}

type envelope struct {
	name    string
	actions func() []store.Action
	applied chan error
	// after runs on the dispatcher once the actions are in the store.
	after func(err error)
}

type Bridge struct {
	transport Transport
	store     *store.Store
	roster    *directory.Roster
	ids       *domain.MessageIDs

	inbox   chan envelope
	stopped chan struct{}

	// gate orders late settlements against the final drain in Run.
	gate   sync.RWMutex
	closed bool

	mu    sync.Mutex
	joins map[domain.RoomID][]chan error
}

func New(t Transport, st *store.Store, roster *directory.Roster) *Bridge {
	return &Bridge{
		transport: t,
		store:     st,
		roster:    roster,
		ids:       domain.NewMessageIDs(),
		inbox:     make(chan envelope, 256),
		stopped:   make(chan struct{}),
		joins:     make(map[domain.RoomID][]chan error),
	}
}

// Run forwards transport events and applies the inbox until ctx ends.
// Whatever is still queued when it returns is applied before it returns.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.drain()
	g, ctx := errgroup.WithContext(ctx)
	events := b.transport.Events()
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				if env, ok := b.translate(ev); ok {
					if err := b.post(ctx, env); err != nil {
						return nil
					}
				}
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case env := <-b.inbox:
				b.apply(env)
			}
		}
	})
	return g.Wait()
}

func (b *Bridge) drain() {
	close(b.stopped)
	b.gate.Lock()
	b.closed = true
	b.gate.Unlock()
	for {
		select {
		case env := <-b.inbox:
			b.apply(env)
		default:
			return
		}
	}
}

func (b *Bridge) apply(env envelope) {
	err := b.store.Dispatch(env.actions()...)
	if err != nil {
		log.Warn().Err(err).Str("module", "bridge").Str("event", env.name).Msg("dispatch rejected")
	}
	if env.applied != nil {
		env.applied <- err
	}
	if env.after != nil {
		env.after(err)
	}
}

func (b *Bridge) post(ctx context.Context, env envelope) error {
	select {
	case b.inbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		return ErrStopped
	}
}

// postOrApply queues env, or applies it in place once the dispatcher is
// gone, so it is never lost.
func (b *Bridge) postOrApply(env envelope) {
	b.gate.RLock()
	defer b.gate.RUnlock()
	if !b.closed {
		select {
		case b.inbox <- env:
			return
		case <-b.stopped:
		}
	}
	b.apply(env)
}

// postWait posts env and waits until the dispatcher applied it.
func (b *Bridge) postWait(ctx context.Context, name string, actions func() []store.Action) error {
	env := envelope{name: name, actions: actions, applied: make(chan error, 1)}
	if err := b.post(ctx, env); err != nil {
		return err
	}
	select {
	case err := <-env.applied:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		return ErrStopped
	}
}

func (b *Bridge) Login(ctx context.Context, displayName string, role domain.Role) (domain.Session, error) {
	sess, err := b.transport.Login(ctx, displayName, role)
	if err != nil {
		return domain.Session{}, err
	}
	err = b.postWait(ctx, "sessionStarted", func() []store.Action {
		return []store.Action{
			store.SetUserID(sess.UserID),
			store.SetNickname(sess.DisplayName),
			store.SetRole(sess.Role),
			store.SetConnectionState(domain.Connected),
		}
	})
	return sess, err
}

// JoinRoom returns once the room snapshot is in the store. The snapshot
// arrives as a RoomJoined event, ahead of any presence event of the room.
func (b *Bridge) JoinRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error) {
	entered := b.awaitJoin(roomID)
	room, err := b.transport.JoinRoom(ctx, roomID)
	if err != nil {
		b.dropJoin(roomID, entered)
		return domain.Room{}, err
	}
	select {
	case err := <-entered:
		return room, err
	case <-ctx.Done():
		b.dropJoin(roomID, entered)
		return domain.Room{}, ctx.Err()
	case <-b.stopped:
		b.dropJoin(roomID, entered)
		return domain.Room{}, ErrStopped
	}
}

func (b *Bridge) awaitJoin(id domain.RoomID) chan error {
	ch := make(chan error, 1)
	b.mu.Lock()
	b.joins[id] = append(b.joins[id], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bridge) dropJoin(id domain.RoomID, ch chan error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joins[id] = lo.Without(b.joins[id], ch)
	if len(b.joins[id]) == 0 {
		delete(b.joins, id)
	}
}

// finishJoins wakes the joins waiting on id, or every join when id is empty.
func (b *Bridge) finishJoins(id domain.RoomID, err error) {
	b.mu.Lock()
	var waiting []chan error
	if id == "" {
		waiting = lo.Flatten(lo.Values(b.joins))
		clear(b.joins)
	} else {
		waiting = b.joins[id]
		delete(b.joins, id)
	}
	b.mu.Unlock()
	for _, ch := range waiting {
		ch <- err
	}
}

// SendText appends the message as pending right away and settles it to
// delivered or failed once the transport knows. The returned id names the
// message in the store.
func (b *Bridge) SendText(roomID domain.RoomID, channel int, text string) (domain.MessageID, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyMessage
	}
	st := b.store.State()
	if st.Room == "" || st.Room != roomID {
		return 0, ErrNoRoom
	}

	id := b.ids.Next()
	msg := domain.ChatMessage{
		ID:         id,
		Room:       roomID,
		Channel:    channel,
		SenderID:   st.UserID,
		SenderName: st.Nickname,
		Text:       text,
		FromMe:     true,
		State:      domain.Pending,
		SentAt:     time.Now(),
	}
	if u, ok := st.User(st.UserID); ok {
		msg.AvatarRef = u.AvatarRef
	}
	if err := b.store.Dispatch(store.AddOneMessage(msg)); err != nil {
		return 0, err
	}

	d := b.transport.SendTextMessage(roomID, channel, text)
	go func() {
		<-d.Done()
		b.postOrApply(envelope{name: "deliverySettled", actions: func() []store.Action {
			to := domain.Delivered
			if d.Err() != nil {
				to = domain.Failed
				log.Info().Err(d.Err()).Str("module", "bridge").Int64("message_id", int64(id)).Msg("message failed")
			}
			return []store.Action{store.UpdateOneMessage(id, to, d.RemoteID())}
		}})
	}()
	return id, nil
}

// ShareWhiteboard publishes the credentials and records them locally.
func (b *Bridge) ShareWhiteboard(ctx context.Context, creds domain.WhiteboardCredentials) error {
	if err := b.transport.ShareWhiteboard(ctx, creds); err != nil {
		return err
	}
	return b.postWait(ctx, "whiteboardShared", func() []store.Action {
		return []store.Action{store.SetWhiteBoardRoom(&creds)}
	})
}

// Logout ends the session and clears everything the session put in the
// store.
func (b *Bridge) Logout(ctx context.Context) error {
	b.transport.Logout()
	return b.postWait(ctx, "loggedOut", func() []store.Action {
		b.roster.Reset()
		return []store.Action{store.Reset()}
	})
}

// translate maps a session event to an inbox entry. Events for another
// room are dropped.
func (b *Bridge) translate(ev client.Event) (envelope, bool) {
	switch e := ev.(type) {
	case client.RoomJoined:
		return envelope{name: "roomEntered", actions: func() []store.Action {
			if err := b.roster.Replace(e.Room.Members); err != nil {
				log.Warn().Err(err).Str("module", "bridge").Str("room", string(e.Room.ID)).Msg("roster snapshot rejected")
			}
			return []store.Action{
				store.SetRoom(e.Room.ID),
				store.SetUsers(b.roster.Snapshot()),
				store.SetWhiteBoardRoom(e.Room.Whiteboard),
			}
		}, after: func(err error) { b.finishJoins(e.Room.ID, err) }}, true
	case client.RoomLeft:
		return envelope{name: "roomLeft", actions: func() []store.Action {
			if !b.inRoom(e.Room) {
				return nil
			}
			log.Info().Str("module", "bridge").Str("room", string(e.Room)).Msg("left room")
			b.roster.Reset()
			return []store.Action{
				store.SetRoom(""),
				store.SetUsers(nil),
				store.SetWhiteBoardRoom(nil),
			}
		}}, true
	case client.ParticipantJoined:
		return envelope{name: "participantJoined", actions: func() []store.Action {
			if !b.inRoom(e.Room) {
				return nil
			}
			if err := b.roster.Upsert(e.Participant); err != nil {
				log.Warn().Err(err).Str("module", "bridge").Str("user", string(e.Participant.ID)).Msg("participant rejected")
				return nil
			}
			return []store.Action{store.AddOneUser(e.Participant)}
		}}, true
	case client.ParticipantLeft:
		return envelope{name: "participantLeft", actions: func() []store.Action {
			if !b.inRoom(e.Room) {
				return nil
			}
			b.roster.Remove(e.Participant.ID)
			return []store.Action{store.RemoveOneUser(e.Participant.ID)}
		}}, true
	case client.MessageReceived:
		return envelope{name: "messageReceived", actions: func() []store.Action {
			if !b.inRoom(e.Room) {
				return nil
			}
			return []store.Action{store.AddOneMessage(domain.ChatMessage{
				ID:         b.ids.Next(),
				RemoteID:   e.RemoteID,
				Room:       e.Room,
				Channel:    e.Channel,
				SenderID:   e.From.ID,
				SenderName: e.From.DisplayName,
				AvatarRef:  e.From.AvatarRef,
				Text:       e.Text,
				State:      domain.Delivered,
				SentAt:     e.SentAt,
			})}
		}}, true
	case client.WhiteboardShared:
		return envelope{name: "whiteboardShared", actions: func() []store.Action {
			if !b.inRoom(e.Room) {
				return nil
			}
			creds := e.Credentials
			return []store.Action{store.SetWhiteBoardRoom(&creds)}
		}}, true
	case client.ConnectionLost:
		return envelope{name: "connectionLost", actions: func() []store.Action {
			log.Warn().Err(e.Err).Str("module", "bridge").Msg("connection lost")
			b.roster.Reset()
			return []store.Action{
				store.SetConnectionState(domain.Disconnected),
				store.SetUsers(nil),
			}
		}, after: func(error) { b.finishJoins("", client.ErrConnectionLost) }}, true
	}
	return envelope{}, false
}

// inRoom runs on the dispatcher.
func (b *Bridge) inRoom(id domain.RoomID) bool {
	return id != "" && b.store.State().Room == id
}
