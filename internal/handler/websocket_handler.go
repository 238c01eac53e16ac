package handler

import (
	"net/http"
	"strings"

	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/dafibh/fortuna/vault-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var knownEntities = map[events.EntityType]bool{
	events.EntityTypeLedger:      true,
	events.EntityTypeTransaction: true,
	events.EntityTypeGoal:        true,
	events.EntityTypeInvestment:  true,
	events.EntityTypeAutomation:  true,
	events.EntityTypeAchievement: true,
}

// WebSocketHandler handles dashboard WebSocket connections
type WebSocketHandler struct {
	hub            *websocket.Hub
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin header
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// parseEntities reads the ?entities=goal,ledger subscription filter.
// An empty filter subscribes to everything.
func parseEntities(raw string) ([]events.EntityType, bool) {
	if raw == "" {
		return nil, true
	}
	var entities []events.EntityType
	for _, part := range strings.Split(raw, ",") {
		entity := events.EntityType(strings.ToLower(strings.TrimSpace(part)))
		if !knownEntities[entity] {
			return nil, false
		}
		entities = append(entities, entity)
	}
	return entities, true
}

// HandleWS handles WebSocket connection requests at GET /ws
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	entities, ok := parseEntities(c.QueryParam("entities"))
	if !ok {
		log.Debug().Str("entities", c.QueryParam("entities")).Msg("WebSocket connection rejected: unknown entity")
		return echo.NewHTTPError(http.StatusBadRequest, "unknown entity")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, h.hub, entities)
	h.hub.Register(client)

	log.Info().
		Str("client_id", client.ID()).
		Int("subscriptions", len(entities)).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
