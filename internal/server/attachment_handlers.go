package server

import (
	"greenline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DownloadAttachment handles GET /api/attachments/:name
func (s *Server) DownloadAttachment(c *fiber.Ctx) error {
	name := c.Params("name")

	path, err := s.store.Open(name)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Attachment", name))
	}
	return c.SendFile(path)
}
