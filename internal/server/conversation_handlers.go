package server

import (
	"greenline/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultMessagePageSize = 50

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	summaries, err := s.messageService.ListConversations(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"conversations": summaries})
}

// GetConversationMessages handles GET /api/conversations/:id/messages.
// Pages are keyed by an opaque cursor; a missing cursor means the newest page
// and a null next_cursor means history is exhausted.
func (s *Server) GetConversationMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	limit := c.QueryInt("limit", defaultMessagePageSize)
	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	cursor := c.QueryInt("cursor", 0)
	if cursor < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid cursor"))
	}

	messages, nextCursor, err := s.messageService.GetMessages(
		c.UserContext(), convID, userID, limit, uint(cursor))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"messages":    messages,
		"next_cursor": nextCursor,
	})
}

// MarkConversationRead handles POST /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.messageService.MarkRead(c.UserContext(), convID, userID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUnreadCount handles GET /api/conversations/:id/unread
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	count, err := s.messageService.UnreadCount(c.UserContext(), convID, userID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}
