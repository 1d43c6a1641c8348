package dto

import "github.com/google/uuid"

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	Capability  string     `json:"capability,omitempty"`
}
