package whiteboard

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/store"
)

type Appliance string

const (
	Selector  Appliance = "selector"
	Pencil    Appliance = "pencil"
	Text      Appliance = "text"
	Eraser    Appliance = "eraser"
	Ellipse   Appliance = "ellipse"
	Rectangle Appliance = "rectangle"
)

// Board joins whiteboard rooms by their credentials.
//
//go:generate mockgen -destination=../mocks/board_mock.go -package=mocks github.com/dkeye/Classroom/internal/whiteboard Board,Room,Creator,Sharer
type Board interface {
	Join(ctx context.Context, creds domain.WhiteboardCredentials) (Room, error)
}

type Room interface {
	SetAppliance(a Appliance) error
	Resize()
	Disconnect() error
}

type Creator interface {
	Create(ctx context.Context, name string, limit int) (domain.WhiteboardCredentials, error)
}

type Sharer interface {
	ShareWhiteboard(ctx context.Context, creds domain.WhiteboardCredentials) error
}

// Coordinator opens the whiteboard of a classroom for either role.
type Coordinator struct {
	creator Creator
	board   Board
	sharer  Sharer
	store   *store.Store
	limit   int
}

func NewCoordinator(creator Creator, board Board, sharer Sharer, st *store.Store, limit int) *Coordinator {
	return &Coordinator{creator: creator, board: board, sharer: sharer, store: st, limit: limit}
}

// Open provisions and shares a room when role is host, otherwise waits
// until the host's credentials reach the store. Either way it joins the
// board with the pencil selected.
func (c *Coordinator) Open(ctx context.Context, role domain.Role, roomID domain.RoomID) (Room, error) {
	var (
		creds domain.WhiteboardCredentials
		err   error
	)
	if role == domain.RoleHost {
		creds, err = c.creator.Create(ctx, string(roomID), c.limit)
	} else {
		creds, err = c.await(ctx)
	}
	if err != nil {
		return nil, err
	}

	room, err := c.board.Join(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := room.SetAppliance(Pencil); err != nil {
		log.Warn().Err(err).Str("module", "whiteboard").Msg("set appliance failed")
	}

	if role == domain.RoleHost {
		if err := c.sharer.ShareWhiteboard(ctx, creds); err != nil {
			_ = room.Disconnect()
			return nil, err
		}
	}
	log.Info().Str("module", "whiteboard").Str("room", string(roomID)).Str("uuid", creds.UUID).Msg("whiteboard joined")
	return room, nil
}

func (c *Coordinator) await(ctx context.Context) (domain.WhiteboardCredentials, error) {
	updates, unsubscribe := c.store.Subscribe()
	defer unsubscribe()

	if wb := c.store.State().WhiteBoardRoom; wb != nil {
		return *wb, nil
	}
	for {
		select {
		case <-ctx.Done():
			return domain.WhiteboardCredentials{}, ctx.Err()
		case st := <-updates:
			if st.WhiteBoardRoom != nil {
				return *st.WhiteBoardRoom, nil
			}
		}
	}
}
