package server

import (
	"io"
	"log/slog"
	"strings"

	"greenline/internal/models"
	"greenline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendMessageRequest is the JSON body for POST /api/messages.
type SendMessageRequest struct {
	Type     string `json:"type" form:"type"`
	ToUserID uint   `json:"to_user_id" form:"to_user_id"`
	GroupID  uint   `json:"group_id" form:"group_id"`
	Content  string `json:"content" form:"content"`
}

// SendMessageResponse wraps the stored message with its conversation, so a
// client that just created a conversation learns its ID without a second
// round trip.
type SendMessageResponse struct {
	Message             *models.Message `json:"message"`
	ConversationID      uint            `json:"conversation_id"`
	ConversationCreated bool            `json:"conversation_created"`
}

// SendMessage handles POST /api/messages. Accepts plain JSON, or
// multipart/form-data when the message carries an attachment.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.SendMessageInput{
		SenderID:    userID,
		Type:        models.ConversationType(strings.ToUpper(req.Type)),
		RecipientID: req.ToUserID,
		GroupID:     req.GroupID,
		Content:     req.Content,
	}

	// Attachment is optional and only present on multipart requests.
	var savedName string
	if file, err := c.FormFile("attachment"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		content, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}

		saved, err := s.store.Save(file.Filename, content)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		in.Attachment = &service.Attachment{URL: saved.URL, Type: saved.Type}
		savedName = saved.Name
	}

	msg, conv, created, err := s.messageService.SendMessage(c.UserContext(), in)
	if err != nil {
		// A rejected send must not leave its attachment fetchable.
		if savedName != "" {
			if rmErr := s.store.Remove(savedName); rmErr != nil {
				slog.Warn("failed to remove attachment of rejected send",
					"name", savedName, "error", rmErr)
			}
		}
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	status := fiber.StatusCreated
	return c.Status(status).JSON(SendMessageResponse{
		Message:             msg,
		ConversationID:      conv.ID,
		ConversationCreated: created,
	})
}

// DeleteMessage handles DELETE /api/messages/:id
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	msgID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.messageService.DeleteMessage(c.UserContext(), msgID, userID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
