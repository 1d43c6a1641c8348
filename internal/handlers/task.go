package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/dimitrije/taskdeck-api/internal/access"
	"github.com/dimitrije/taskdeck-api/internal/middleware"
	"github.com/dimitrije/taskdeck-api/internal/models"
	"github.com/dimitrije/taskdeck-api/internal/services"
	"github.com/dimitrije/taskdeck-api/pkg/dto"
)

type TaskHandler struct {
	taskService   TaskServiceInterface
	accessService AccessServiceInterface
}

func NewTaskHandler(taskService TaskServiceInterface, accessService AccessServiceInterface) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		accessService: accessService,
	}
}

func taskRef(task *models.Task) access.TaskRef {
	return access.TaskRef{
		ID:        task.ID,
		OwnerID:   task.OwnerID,
		TeamID:    task.TeamID,
		CreatedBy: task.CreatedBy,
	}
}

func taskResponse(task *models.Task, capability access.Capability) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		TeamID:      task.TeamID,
		CreatedBy:   task.CreatedBy,
		Capability:  capability.String(),
	}
}

func (h *TaskHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Title == "" {
		c.BadRequest("title is required")
		return
	}

	task, err := h.taskService.Create(context.Background(), req.Title, req.Description, req.TeamID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			c.NotFound("team not found")
		case errors.Is(err, services.ErrTeamReadOnly):
			c.Forbidden("viewers cannot create team tasks")
		default:
			c.InternalServerError("failed to create task")
		}
		return
	}

	_ = c.JSON(201, taskResponse(task, access.CapabilityDelete))
}

func (h *TaskHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	tasks, err := h.taskService.ListForUser(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to list tasks")
		return
	}

	ctx := context.Background()
	response := make([]dto.TaskResponse, len(tasks))
	for i := range tasks {
		capability := h.accessService.Resolve(ctx, userID, taskRef(&tasks[i]))
		response[i] = taskResponse(&tasks[i], capability)
	}

	_ = c.JSON(200, response)
}

func (h *TaskHandler) Get(c *drift.Context) {
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

	task, err := h.taskService.GetByID(context.Background(), taskID)
	if err != nil {
		c.NotFound("task not found")
		return
	}

	capability, ok := h.accessService.Require(context.Background(), userID, taskRef(task), access.CapabilityView, "task.get")
	if !ok {
		// No access reads as nonexistent
		c.NotFound("task not found")
		return
	}

	_ = c.JSON(200, taskResponse(task, capability))
}

func (h *TaskHandler) Update(c *drift.Context) {
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

	task, err := h.taskService.GetByID(context.Background(), taskID)
	if err != nil {
		c.NotFound("task not found")
		return
	}

	capability, ok := h.accessService.Require(context.Background(), userID, taskRef(task), access.CapabilityEdit, "task.update")
	if !ok {
		if capability == access.CapabilityNone {
			c.NotFound("task not found")
		} else {
			c.Forbidden("edit access required")
		}
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	updated, err := h.taskService.Update(context.Background(), taskID, req.Title, req.Description, req.Completed)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoTaskFields):
			c.BadRequest("no fields to update")
		case errors.Is(err, services.ErrTaskNotFound):
			c.NotFound("task not found")
		default:
			c.InternalServerError("failed to update task")
		}
		return
	}

	_ = c.JSON(200, taskResponse(updated, capability))
}

func (h *TaskHandler) Delete(c *drift.Context) {
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

	task, err := h.taskService.GetByID(context.Background(), taskID)
	if err != nil {
		c.NotFound("task not found")
		return
	}

	capability, ok := h.accessService.Require(context.Background(), userID, taskRef(task), access.CapabilityDelete, "task.delete")
	if !ok {
		if capability == access.CapabilityNone {
			c.NotFound("task not found")
		} else {
			c.Forbidden("delete access required")
		}
		return
	}

	if err := h.taskService.Delete(context.Background(), taskID); err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.NotFound("task not found")
			return
		}
		c.InternalServerError("failed to delete task")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "task deleted"})
}
