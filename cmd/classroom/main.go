package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Classroom/internal/adapters/rtc"
	"github.com/dkeye/Classroom/internal/bridge"
	"github.com/dkeye/Classroom/internal/client"
	"github.com/dkeye/Classroom/internal/config"
	"github.com/dkeye/Classroom/internal/directory"
	"github.com/dkeye/Classroom/internal/domain"
	"github.com/dkeye/Classroom/internal/media"
	"github.com/dkeye/Classroom/internal/store"
	"github.com/dkeye/Classroom/internal/whiteboard"
)

// chatChannel is the channel every typed line is sent on.
const chatChannel = 2

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	flags := config.ClientFlags("classroom")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("bad flags")
	}
	cfg, err := config.LoadClient(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	role, _ := domain.ParseRole(cfg.Role)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess := client.New(client.Options{
		URL:        cfg.Server,
		Dialer:     client.WSDialer{Dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}},
		AckTimeout: cfg.AckTimeout,
	})
	st := store.New()
	roster := directory.New()
	b := bridge.New(sess, st, roster)
	pipeline := media.NewPipeline(media.NewDeviceCapturer(640, 480), logSurfaces{}, roster, cfg.TickInterval)
	defer pipeline.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return pipeline.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return attend(gctx, cfg, role, b, sess, st, pipeline)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("classroom stopped")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}

// attend logs in, joins the room and stays until ctx is done or stdin ends.
func attend(ctx context.Context, cfg *config.ClientConfig, role domain.Role, b *bridge.Bridge, sess *client.Session, st *store.Store, pipeline *media.Pipeline) error {
	loginCtx, cancelLogin := context.WithTimeout(ctx, cfg.DialTimeout+cfg.AckTimeout)
	defer cancelLogin()
	me, err := b.Login(loginCtx, cfg.Name, role)
	if err != nil {
		return err
	}
	defer func() {
		logoutCtx, cancelLogout := context.WithTimeout(context.Background(), time.Second)
		defer cancelLogout()
		if err := b.Logout(logoutCtx); err != nil {
			log.Warn().Err(err).Str("module", "classroom").Msg("logout")
		}
	}()
	pipeline.SetSelf(me.UserID)

	room, err := b.JoinRoom(loginCtx, domain.RoomID(cfg.Room))
	if err != nil {
		return err
	}
	log.Info().Str("room", string(room.ID)).Int("members", len(room.Members)).Msg("joined")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Camera {
		if err := pipeline.StartCapture(gctx); err != nil {
			log.Warn().Err(err).Msg("continuing without camera")
		}
	}

	peer, err := media.NewPeer(rtc.DefaultWebRTCConfig(cfg.ICEServers...), sess, pipeline)
	if err != nil {
		log.Warn().Err(err).Msg("continuing without media")
	} else {
		g.Go(func() error {
			if err := peer.Run(gctx); err != nil {
				log.Warn().Err(err).Msg("media stopped")
			}
			return nil
		})
	}

	if role == domain.RoleParticipant || cfg.WhiteboardAPI != "" {
		co := whiteboard.NewCoordinator(
			whiteboard.NewProvisioner(cfg.WhiteboardAPI, cfg.WhiteboardToken, nil),
			whiteboard.HeadlessBoard{}, b, st, cfg.MaxMembers,
		)
		g.Go(func() error {
			wb, err := co.Open(gctx, role, room.ID)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Msg("continuing without whiteboard")
				}
				return nil
			}
			<-gctx.Done()
			return wb.Disconnect()
		})
	}

	g.Go(func() error {
		watch(gctx, st)
		return nil
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return context.Canceled
				}
				if _, err := b.SendText(room.ID, chatChannel, line); err != nil && !errors.Is(err, bridge.ErrEmptyMessage) {
					log.Warn().Err(err).Msg("not sent")
				}
			}
		}
	})
	return g.Wait()
}

// watch prints roster and chat changes as they reach the store.
func watch(ctx context.Context, st *store.Store) {
	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()

	seen := map[domain.MessageID]domain.DeliveryState{}
	users := -1
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			if len(s.Users) != users {
				users = len(s.Users)
				ev := log.Info().Str("room", string(s.Room)).Int("users", users)
				for _, u := range s.Users {
					ev = ev.Str(string(u.ID), u.DisplayName+"/"+u.Role.String())
				}
				ev.Msg("roster")
			}
			for _, m := range s.Messages {
				if prev, ok := seen[m.ID]; ok && prev == m.State {
					continue
				}
				seen[m.ID] = m.State
				log.Info().
					Str("from", m.SenderName).
					Bool("me", m.FromMe).
					Str("state", m.State.String()).
					Msg(m.Text)
			}
			if s.Connection == domain.Disconnected && users > 0 {
				log.Warn().Msg("connection lost")
				users = -1
			}
		}
	}
}

// logSurfaces gives every participant a surface that only reports frames.
type logSurfaces struct{}

func (logSurfaces) Lookup(id string) (media.Surface, bool) { return logSurface(id), true }

type logSurface string

func (s logSurface) Render(f media.Frame) error {
	ev := log.Trace().Str("surface", string(s)).Time("at", f.At)
	if f.Image != nil {
		ev = ev.Int("width", f.Image.Bounds().Dx())
	}
	if f.Packet != nil {
		ev = ev.Uint16("seq", f.Packet.SequenceNumber)
	}
	ev.Msg("frame")
	return nil
}
