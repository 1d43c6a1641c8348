package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) IsPersonal() bool {
	return t.TeamID == nil
}

func (t *Task) IsTeam() bool {
	return t.TeamID != nil
}
