package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskShare struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	Permission string    `json:"permission"`
	GrantedBy  uuid.UUID `json:"granted_by"`
	GrantedAt  time.Time `json:"granted_at"`
	User       *User     `json:"user,omitempty"`
}

// Share permissions. A share never grants delete.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

func IsValidPermission(permission string) bool {
	return permission == PermissionView || permission == PermissionEdit
}

// SharedTask is a task as seen by a grantee: the task plus the granted
// permission and minimal owner-identifying metadata.
type SharedTask struct {
	Task       Task   `json:"task"`
	Permission string `json:"permission"`
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email"`
}
