package server

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var validate = validator.New()

// notifyMessageRequest is posted by the message store after it persists a
// message; delivery here is best effort and never blocks the store.
type notifyMessageRequest struct {
	RecipientID string         `json:"recipient_id" validate:"required"`
	SenderName  string         `json:"sender_name" validate:"required"`
	Data        map[string]any `json:"data"`
}

// notifyReadRequest is posted after a read-receipt update.
type notifyReadRequest struct {
	SenderID   string   `json:"sender_id" validate:"required"`
	MessageIDs []string `json:"message_ids" validate:"required,min=1"`
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/healthz", s.handleHealth)
	app.Get("/ws/info", s.handleInfo)

	internal := app.Group("/internal")
	internal.Post("/notify/message", s.handleNotifyMessage)
	internal.Post("/notify/read", s.handleNotifyRead)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	stats := s.svc.Stats(s.staleAge())
	return c.JSON(fiber.Map{
		"websocket":         true,
		"endpoint":          "/ws/chat",
		"connections":       stats.Connections,
		"online_users":      stats.OnlineUsers,
		"stale_connections": stats.Stale,
	})
}

func (s *Server) handleNotifyMessage(c fiber.Ctx) error {
	var req notifyMessageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	delivered := s.svc.NotifyNewMessage(req.RecipientID, req.SenderName, req.Data)
	return c.JSON(fiber.Map{"delivered": delivered})
}

func (s *Server) handleNotifyRead(c fiber.Ctx) error {
	var req notifyReadRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	delivered := s.svc.NotifyMessagesRead(req.SenderID, req.MessageIDs)
	return c.JSON(fiber.Map{"delivered": delivered})
}
