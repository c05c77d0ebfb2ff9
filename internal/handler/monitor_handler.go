package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/config"
	"github.com/assesshub/assesshub-backend/internal/middleware"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
)

const monitorPingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live completion events for a test to its author
// over WebSocket, fed by Redis pub/sub.
type MonitorHandler struct {
	rdb         *redis.Client
	testService *service.TestService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

func NewMonitorHandler(rdb *redis.Client, testService *service.TestService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:         rdb,
		testService: testService,
		log:         log.With().Str("component", "monitor_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// MonitorTest godoc
// WS /ws/v1/author/tests/:id/monitor
// Relays completion events published on the test's Redis channel.
func (h *MonitorHandler) MonitorTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership check before upgrading; non-owners see a plain 404.
	if _, err := h.testService.Get(c.Request.Context(), testID, claims.AuthorID); err != nil {
		failFromService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqCtx := c.Request.Context()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.TestCompletionChannel(testID.String()))
	defer pubsub.Close()

	ch := pubsub.Channel()

	pingTicker := time.NewTicker(monitorPingInterval)
	defer pingTicker.Stop()

	wsLog := h.log.With().
		Int("author_id", claims.AuthorID).
		Str("test_id", testID.String()).
		Logger()

	wsLog.Info().Msg("Author attached to live completion feed")

	// Drain inbound frames so close handshakes and pongs are processed.
	// The feed is write-only from the client's perspective.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-reqCtx.Done():
			wsLog.Debug().Msg("Request context cancelled")
			return
		case <-clientGone:
			wsLog.Debug().Msg("Client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				wsLog.Warn().Msg("Redis subscription closed")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, dropping connection")
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				wsLog.Debug().Err(err).Msg("Ping failed, dropping connection")
				return
			}
		}
	}
}
