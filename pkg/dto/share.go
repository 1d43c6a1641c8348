package dto

import "github.com/google/uuid"

type ShareTaskRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

type UpdateShareRequest struct {
	Permission string `json:"permission"`
}

type ShareResponse struct {
	ID         uuid.UUID    `json:"id"`
	TaskID     uuid.UUID    `json:"task_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Permission string       `json:"permission"`
	User       UserResponse `json:"user"`
}

type SharedTaskResponse struct {
	Task       TaskResponse `json:"task"`
	Permission string       `json:"permission"`
	OwnerName  string       `json:"owner_name"`
	OwnerEmail string       `json:"owner_email"`
}
