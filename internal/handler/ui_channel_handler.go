package handler

import (
	"context"
	"encoding/json"
	"os"

	"voicepilot-be/internal/dto"
	"voicepilot-be/internal/pkg/logger"
	"voicepilot-be/internal/service"
	internalWS "voicepilot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UIChannelHandler owns the realtime UI channel: one websocket per active
// session carrying voice transcripts in and UI commands / feedback out.
type UIChannelHandler struct {
	sessions service.ISessionService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewUIChannelHandler(sessions service.ISessionService, hub *internalWS.Hub, log logger.ILogger) *UIChannelHandler {
	h := &UIChannelHandler{
		sessions: sessions,
		hub:      hub,
		logger:   log,
	}
	hub.SetInbound(h.handleInbound)
	return h
}

// ServeWs upgrades the request to a websocket bound to the session in the path.
func (h *UIChannelHandler) ServeWs(c *fiber.Ctx) error {
	// 1. Get Token source
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	// 2. Parse JWT with the same secret the HTTP middleware uses.
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		h.logger.Warn("UIChannelHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	clientId, ok := claims["client_id"].(string)
	if !ok || clientId == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing client_id"})
	}

	sessionId := c.Params("sessionId")
	if sessionId == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing session id"})
	}

	// 3. The session must exist before a channel can attach to it.
	if _, err := h.sessions.Stats(c.UserContext(), sessionId); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown session"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("UIChannelHandler", "Starting UI channel", map[string]interface{}{"session_id": sessionId, "client_id": clientId})
			internalWS.ServeWs(h.hub, conn, sessionId)
			h.logger.Info("UIChannelHandler", "UI channel closed", map[string]interface{}{"session_id": sessionId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// handleInbound dispatches messages arriving on a session's channel.
func (h *UIChannelHandler) handleInbound(sessionId string, message []byte) {
	var envelope dto.WsEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		h.logger.Warn("UIChannelHandler", "Dropping malformed ws message", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return
	}

	ctx := context.Background()

	switch envelope.Type {
	case dto.WsTypeVoiceInput:
		var input dto.VoiceInputMessage
		if err := json.Unmarshal(envelope.Data, &input); err != nil {
			h.logger.Warn("UIChannelHandler", "Dropping malformed voice_input payload", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
			return
		}
		resp, err := h.sessions.ProcessInput(ctx, sessionId, &dto.ProcessInputRequest{
			Transcript: input.Transcript,
			SpeakerId:  input.SpeakerId,
		})
		if err != nil {
			h.hub.SendEvent(sessionId, dto.WsTypeVoiceFeedback, fiber.Map{"error": err.Error()})
			return
		}
		h.hub.SendEvent(sessionId, dto.WsTypeVoiceFeedback, resp)

	case dto.WsTypeUIStateUpdate:
		var update dto.UIStateUpdateMessage
		if err := json.Unmarshal(envelope.Data, &update); err != nil {
			h.logger.Warn("UIChannelHandler", "Dropping malformed ui_state_update payload", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
			return
		}
		if err := h.sessions.UpdateUIContext(ctx, sessionId, update.UIContext); err != nil {
			h.logger.Warn("UIChannelHandler", "Failed to update UI context", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		}

	default:
		h.logger.Warn("UIChannelHandler", "Unknown ws message type", map[string]interface{}{"session_id": sessionId, "type": envelope.Type})
	}
}

// RegisterRoutes registers the UI channel route.
func (h *UIChannelHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/ui/:sessionId", h.ServeWs)
}
