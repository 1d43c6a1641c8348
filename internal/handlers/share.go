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

type ShareHandler struct {
	shareService ShareServiceInterface
	userService  UserServiceInterface
}

func NewShareHandler(shareService ShareServiceInterface, userService UserServiceInterface) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		userService:  userService,
	}
}

func (h *ShareHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid task id")
		return
	}

	var req dto.ShareTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	target, err := h.userService.GetByEmail(context.Background(), req.Email)
	if err != nil {
		c.NotFound("user with this email not found")
		return
	}

	share, err := h.shareService.Share(context.Background(), taskID, target.ID, req.Permission, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPermission):
			c.BadRequest("permission must be view or edit")
		case errors.Is(err, services.ErrSelfShare):
			c.BadRequest("cannot share a task with its owner")
		case errors.Is(err, services.ErrTaskNotFound):
			c.NotFound("task not found")
		case errors.Is(err, services.ErrNotTaskOwner):
			// Non-owners cannot tell a task they cannot see from a missing one
			c.NotFound("task not found")
		case errors.Is(err, services.ErrShareExists):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "task already shared with this user"})
		default:
			c.InternalServerError("failed to share task")
		}
		return
	}

	_ = c.JSON(201, dto.ShareResponse{
		ID:         share.ID,
		TaskID:     share.TaskID,
		UserID:     share.UserID,
		Permission: share.Permission,
		User: dto.UserResponse{
			ID:        target.ID,
			Email:     target.Email,
			Name:      target.Name,
			AvatarURL: target.AvatarURL,
		},
	})
}

func (h *ShareHandler) Update(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid task id")
		return
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.BadRequest("invalid user id")
		return
	}

	var req dto.UpdateShareRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	share, err := h.shareService.UpdatePermission(context.Background(), taskID, targetID, req.Permission, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPermission):
			c.BadRequest("permission must be view or edit")
		case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrNotTaskOwner):
			c.NotFound("task not found")
		case errors.Is(err, services.ErrShareNotFound):
			c.NotFound("share not found")
		default:
			c.InternalServerError("failed to update share")
		}
		return
	}

	_ = c.JSON(200, dto.ShareResponse{
		ID:         share.ID,
		TaskID:     share.TaskID,
		UserID:     share.UserID,
		Permission: share.Permission,
	})
}

func (h *ShareHandler) Revoke(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid task id")
		return
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.BadRequest("invalid user id")
		return
	}

	if err := h.shareService.Revoke(context.Background(), taskID, targetID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrNotTaskOwner):
			c.NotFound("task not found")
		case errors.Is(err, services.ErrShareNotFound):
			c.NotFound("share not found")
		default:
			c.InternalServerError("failed to revoke share")
		}
		return
	}

	_ = c.JSON(200, map[string]string{"message": "share revoked"})
}

func (h *ShareHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid task id")
		return
	}

	shares, err := h.shareService.ListShares(context.Background(), taskID, userID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.NotFound("task not found")
			return
		}
		c.InternalServerError("failed to list shares")
		return
	}

	response := make([]dto.ShareResponse, len(shares))
	for i, share := range shares {
		response[i] = dto.ShareResponse{
			ID:         share.ID,
			TaskID:     share.TaskID,
			UserID:     share.UserID,
			Permission: share.Permission,
		}
		if share.User != nil {
			response[i].User = dto.UserResponse{
				ID:        share.User.ID,
				Email:     share.User.Email,
				Name:      share.User.Name,
				AvatarURL: share.User.AvatarURL,
			}
		}
	}

	_ = c.JSON(200, response)
}

func (h *ShareHandler) SharedWithMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	shared, err := h.shareService.ListSharedWithMe(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to list shared tasks")
		return
	}

	response := make([]dto.SharedTaskResponse, len(shared))
	for i, st := range shared {
		response[i] = dto.SharedTaskResponse{
			Task: dto.TaskResponse{
				ID:          st.Task.ID,
				Title:       st.Task.Title,
				Description: st.Task.Description,
				Completed:   st.Task.Completed,
				OwnerID:     st.Task.OwnerID,
				TeamID:      st.Task.TeamID,
				CreatedBy:   st.Task.CreatedBy,
				Capability:  st.Permission,
			},
			Permission: st.Permission,
			OwnerName:  st.OwnerName,
			OwnerEmail: st.OwnerEmail,
		}
	}

	_ = c.JSON(200, response)
}
