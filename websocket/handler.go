// websocket/handler.go
package websocket

import (
	"permit-processing-backend/config"
	"permit-processing-backend/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService defines a token validator interface
type AuthService interface {
	VerifyToken(token string) (*token.Payload, error)
}

// WsHandler manages WebSocket upgrade requests and connections
type WsHandler struct {
	hub  *Hub
	auth AuthService
}

func NewWsHandler(hub *Hub, auth AuthService) *WsHandler {
	return &WsHandler{hub: hub, auth: auth}
}

// HandleWebSocket handles incoming WebSocket upgrade requests. The access
// token comes from the HTTPOnly cookie, never a query parameter.
func (h *WsHandler) HandleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Cookies("access_token")
	if tokenStr == "" {
		config.Logger.Warn("WebSocket connection attempted without access token cookie")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	payload, err := h.auth.VerifyToken(tokenStr)
	if err != nil {
		config.Logger.Warn("Invalid access token for WebSocket", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired session",
		})
	}

	userID := payload.UserID

	return websocket.New(func(conn *websocket.Conn) {
		client := &Client{
			ID:     uuid.New(),
			UserID: userID,
			Conn:   conn,
			Hub:    h.hub,
			Send:   make(chan WebSocketMessage, 16),
		}
		h.hub.register <- client

		go client.writePump()
		client.readPump()
	})(c)
}

func (c *Client) writePump() {
	for message := range c.Send {
		if err := c.Conn.WriteJSON(message); err != nil {
			config.Logger.Debug("WebSocket write failed", zap.Error(err))
			return
		}
	}
}

// readPump drains the connection until the client disconnects. The status
// feed is one-way; inbound frames are ignored.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
