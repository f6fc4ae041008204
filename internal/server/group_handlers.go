package server

import (
	"strings"

	"greenline/internal/models"
	"greenline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateGroup handles POST /api/groups
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		MemberIDs   []uint `json:"member_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.UserContext(), service.CreateGroupInput{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if s.hub != nil {
		s.hub.JoinGroup(userID, group.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

// GetGroups handles GET /api/groups
func (s *Server) GetGroups(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	groups, err := s.groupService.ListGroups(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

// GetGroup handles GET /api/groups/:id
func (s *Server) GetGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	group, err := s.groupService.GetGroup(c.UserContext(), groupID, userID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(group)
}

// UpdateGroup handles PUT /api/groups/:id
func (s *Server) UpdateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.UpdateGroup(c.UserContext(), groupID, userID, req.Name, req.Description)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(group)
}

// DeleteGroup handles DELETE /api/groups/:id
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.groupService.DeleteGroup(c.UserContext(), groupID, userID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddGroupMember handles POST /api/groups/:id/members
func (s *Server) AddGroupMember(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}

	role := models.GroupRole(strings.ToUpper(req.Role))
	if req.Role == "" {
		role = models.RoleMember
	}

	if err := s.groupService.AddMember(c.UserContext(), groupID, actorID, req.UserID, role); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if s.hub != nil {
		s.hub.JoinGroup(req.UserID, groupID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveGroupMember handles DELETE /api/groups/:id/members/:userId
func (s *Server) RemoveGroupMember(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.groupService.RemoveMember(c.UserContext(), groupID, actorID, targetID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if s.hub != nil {
		s.hub.LeaveGroup(targetID, groupID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeGroupMemberRole handles PUT /api/groups/:id/members/:userId/role
func (s *Server) ChangeGroupMemberRole(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || req.Role == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("role is required"))
	}

	role := models.GroupRole(strings.ToUpper(req.Role))
	if err := s.groupService.ChangeRole(c.UserContext(), groupID, actorID, targetID, role); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
