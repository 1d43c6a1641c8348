package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/dimitrije/taskdeck-api/internal/audit"
	"github.com/dimitrije/taskdeck-api/internal/database"
)

// Service resolves the capability an actor holds on a task by combining
// ownership, team membership, and direct shares. It never returns an error:
// any lookup failure resolves to None, so callers cannot tell "forbidden"
// apart from "nonexistent".
type Service struct {
	db    *database.DB
	audit audit.Recorder
}

func NewService(db *database.DB, recorder audit.Recorder) *Service {
	return &Service{db: db, audit: recorder}
}

// TaskRef is the slice of a task the resolver reads. The task content
// itself lives in the task store.
type TaskRef struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	TeamID    *uuid.UUID
	CreatedBy uuid.UUID
}

func (s *Service) Resolve(ctx context.Context, actorID uuid.UUID, task TaskRef) Capability {
	in := Input{
		ActorID:       actorID,
		TaskOwnerID:   task.OwnerID,
		TaskCreatedBy: task.CreatedBy,
	}

	if task.TeamID != nil {
		var role string
		err := s.db.Pool.QueryRow(ctx, `
			SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2
		`, *task.TeamID, actorID).Scan(&role)
		if err == nil {
			in.TeamRole = role
		}
	}

	var permission string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT permission FROM task_shares WHERE task_id = $1 AND user_id = $2
	`, task.ID, actorID).Scan(&permission)
	if err == nil {
		in.SharePermission = permission
	}

	return CapabilityFor(in)
}

// Require resolves the actor's capability and reports whether it satisfies
// required. Every failed check is recorded with the audit sink. The resolved
// capability is returned either way so callers can merge a None into their
// not-found path.
func (s *Service) Require(ctx context.Context, actorID uuid.UUID, task TaskRef, required Capability, action string) (Capability, bool) {
	capability := s.Resolve(ctx, actorID, task)
	if capability.Allows(required) {
		return capability, true
	}
	s.audit.RecordDenial(ctx, actorID, action, task.ID, required.String(), capability.String())
	return capability, false
}
