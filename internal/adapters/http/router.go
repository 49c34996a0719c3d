package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/adapters/rtc"
	"github.com/dkeye/Classroom/internal/adapters/signal"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/config"
	"github.com/dkeye/Classroom/internal/domain"
)

// ClientTokenMiddleware tags every browser with a long-lived cookie so
// reconnects can be correlated in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AdminSecretHeader carries cfg.Secret on admin requests.
const AdminSecretHeader = "X-Classroom-Secret"

// RequireSecret rejects requests without the shared secret. An empty secret
// disables the guarded routes.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ClassroomSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	ctrl := signal.NewSignalWSController(o,
		signal.NewRoomRateLimiter(cfg.ChatLimit, cfg.ChatInterval),
		signal.Options{
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			WebRTC:     rtc.DefaultWebRTCConfig(cfg.ICEServers...),
		})

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set("last_seen_token", c.GetString("client_token"))
		if err := sess.Save(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
		}
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Rooms.List())
	})
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		room, ok := o.Rooms.GetRoom(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		c.JSON(http.StatusOK, room.MembersSnapshot())
	})
	api.DELETE("/rooms/:id", RequireSecret(cfg.Secret), func(c *gin.Context) {
		if !o.EvictRoom(domain.RoomID(c.Param("id"))) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
