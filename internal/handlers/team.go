package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/dimitrije/taskdeck-api/internal/middleware"
	"github.com/dimitrije/taskdeck-api/internal/services"
	"github.com/dimitrije/taskdeck-api/pkg/dto"
)

type TeamHandler struct {
	teamService TeamServiceInterface
	userService UserServiceInterface
}

func NewTeamHandler(teamService TeamServiceInterface, userService UserServiceInterface) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		userService: userService,
	}
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Create(context.Background(), req.Name, req.Description, userID)
	if err != nil {
		if errors.Is(err, services.ErrTeamNameTaken) {
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "team name already taken"})
			return
		}
		c.InternalServerError("failed to create team")
		return
	}

	_ = c.JSON(201, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        "owner",
	})
}

func (h *TeamHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teams, roles, err := h.teamService.GetUserTeams(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i, team := range teams {
		response[i] = dto.TeamResponse{
			ID:          team.ID,
			Name:        team.Name,
			Description: team.Description,
			OwnerID:     team.OwnerID,
			Role:        roles[i],
		}
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	role, err := h.teamService.GetMemberRole(context.Background(), teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	team, err := h.teamService.GetByID(context.Background(), teamID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	_ = c.JSON(200, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        role,
	})
}

func (h *TeamHandler) Update(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Update(context.Background(), teamID, req.Name, req.Description, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrNotTeamOwner):
			c.Forbidden("only owner can update team")
		case errors.Is(err, services.ErrTeamNameTaken):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "team name already taken"})
		default:
			c.InternalServerError("failed to update team")
		}
		return
	}

	_ = c.JSON(200, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        "owner",
	})
}

func (h *TeamHandler) Delete(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	if err := h.teamService.Delete(context.Background(), teamID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrNotTeamOwner):
			c.Forbidden("only owner can delete team")
		default:
			c.InternalServerError("failed to delete team")
		}
		return
	}

	_ = c.JSON(200, map[string]string{"message": "team deleted"})
}

func (h *TeamHandler) GetMembers(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	isMember, err := h.teamService.IsMember(context.Background(), teamID, userID)
	if err != nil || !isMember {
		c.NotFound("team not found")
		return
	}

	members, err := h.teamService.GetMembers(context.Background(), teamID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.TeamMemberResponse{
			ID:     m.ID,
			UserID: m.UserID,
			Role:   m.Role,
			User: dto.UserResponse{
				ID:        m.User.ID,
				Email:     m.User.Email,
				Name:      m.User.Name,
				AvatarURL: m.User.AvatarURL,
			},
		}
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) InviteMember(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	var req dto.InviteMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}

	invitee, err := h.userService.GetByEmail(context.Background(), req.Email)
	if err != nil {
		c.NotFound("user with this email not found")
		return
	}

	member, err := h.teamService.InviteMember(context.Background(), teamID, invitee.ID, req.Role, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole), errors.Is(err, services.ErrOwnerRoleViaInvite):
			c.BadRequest(err.Error())
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrNotTeamAdmin):
			c.Forbidden("only admins and owners can invite members")
		case errors.Is(err, services.ErrAlreadyMember):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "user is already a team member"})
		default:
			c.InternalServerError("failed to add member")
		}
		return
	}

	_ = c.JSON(201, dto.TeamMemberResponse{
		ID:     member.ID,
		UserID: member.UserID,
		Role:   member.Role,
		User: dto.UserResponse{
			ID:        invitee.ID,
			Email:     invitee.Email,
			Name:      invitee.Name,
			AvatarURL: invitee.AvatarURL,
		},
	})
}

func (h *TeamHandler) ChangeRole(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	var req dto.ChangeRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.teamService.ChangeRole(context.Background(), teamID, memberID, req.Role, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			c.BadRequest("invalid role")
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrMemberNotFound):
			c.NotFound("member not found")
		case errors.Is(err, services.ErrNotTeamAdmin),
			errors.Is(err, services.ErrCannotChangeAdminRole),
			errors.Is(err, services.ErrCannotChangeOwnRole):
			c.Forbidden(err.Error())
		case errors.Is(err, services.ErrOwnershipChanged):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "team ownership changed concurrently"})
		default:
			c.InternalServerError("failed to change role")
		}
		return
	}

	_ = c.JSON(200, map[string]string{"message": "role updated"})
}

func (h *TeamHandler) RemoveMember(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	if err := h.teamService.RemoveMember(context.Background(), teamID, memberID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrMemberNotFound):
			c.NotFound("member not found")
		case errors.Is(err, services.ErrNotTeamAdmin):
			c.Forbidden("only admins and owners can remove members")
		case errors.Is(err, services.ErrCannotRemoveOwner):
			c.Forbidden("cannot remove team owner, transfer ownership first")
		default:
			c.InternalServerError("failed to remove member")
		}
		return
	}

	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func (h *TeamHandler) Leave(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	if err := h.teamService.Leave(context.Background(), teamID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			c.NotFound("team not found or not a member")
		case errors.Is(err, services.ErrOwnerCannotLeave):
			c.Forbidden("owner cannot leave team, transfer ownership or delete it")
		default:
			c.InternalServerError("failed to leave team")
		}
		return
	}

	_ = c.JSON(200, map[string]string{"message": "left team"})
}
