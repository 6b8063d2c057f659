package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/middleware"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/service"
	ws "github.com/lumenlearn/lumen-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

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

// WSHandler streams teaching metric updates and adaptation events.
type WSHandler struct {
	rdb             *redis.Client
	teachingService *service.TeachingService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, teachingService *service.TeachingService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:             rdb,
		teachingService: teachingService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// TeachingStream godoc
// WS /ws/v1/learner/teaching/:session_id/stream
// Upgrades to WebSocket for live metric reporting and adaptation pushes.
// Adaptations applied by other instances arrive through the event channel.
func (h *WSHandler) TeachingStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	learnerID := claims.LearnerID
	sessionID := c.Param("session_id")

	// Ownership is checked before the upgrade so strangers never hold a
	// socket open.
	if _, err := h.teachingService.Get(c.Request.Context(), learnerID, sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "teaching session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("learner_id", learnerID.String()).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Learner connected")

	// Writes come from both the read loop and the event forwarder.
	var writeMu sync.Mutex
	write := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := ws.WriteTyped(conn, v); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
		}
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.forwardAdaptations(streamCtx, sessionID, write, wsLog)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionMetrics:
			h.handleMetrics(streamCtx, learnerID, sessionID, &msg, write)
		case ws.ActionPing:
			write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			write(ws.ErrorMessage("unknown action: " + string(msg.Action)))
		}
	}
}

// handleMetrics applies one metric update and acknowledges with the current
// method. The adaptation itself reaches the client through the event channel.
func (h *WSHandler) handleMetrics(ctx context.Context, learnerID uuid.UUID, sessionID string, msg *ws.RequestEnvelope, write func(interface{})) {
	if msg.Metrics == nil {
		write(ws.ErrorMessage("metrics payload required"))
		return
	}

	session, content, err := h.teachingService.UpdateMetrics(ctx, learnerID, sessionID, msg.Metrics)
	if err != nil {
		write(ws.ErrorMessage("metric update failed"))
		return
	}

	write(ws.MetricsAckResponse{
		Event:   ws.EventMetricsAck,
		Adapted: content != nil,
		Metrics: session.Metrics,
		Method:  session.Method,
	})
}

// forwardAdaptations relays adaptation events from the session's PubSub
// channel to this connection until the context ends.
func (h *WSHandler) forwardAdaptations(ctx context.Context, sessionID string, write func(interface{}), wsLog zerolog.Logger) {
	sub := h.rdb.Subscribe(ctx, config.CacheKey.TeachingAdaptationChannel(sessionID))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var adaptation model.Adaptation
			if err := json.Unmarshal([]byte(msg.Payload), &adaptation); err != nil {
				wsLog.Warn().Err(err).Msg("Bad adaptation event payload")
				continue
			}
			write(ws.AdaptedResponse{Event: ws.EventAdapted, Adaptation: adaptation})
		}
	}
}
