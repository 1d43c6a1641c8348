package access

import (
	"github.com/google/uuid"

	"github.com/dimitrije/taskdeck-api/internal/models"
)

// Capability is the action level an actor holds on a task. Levels are
// totally ordered: Delete implies Edit implies View.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityView
	CapabilityEdit
	CapabilityDelete
)

func (c Capability) String() string {
	switch c {
	case CapabilityView:
		return "view"
	case CapabilityEdit:
		return "edit"
	case CapabilityDelete:
		return "delete"
	default:
		return "none"
	}
}

// Allows reports whether c is sufficient for an operation requiring required.
func (c Capability) Allows(required Capability) bool {
	return c >= required
}

// Input carries everything CapabilityFor needs to decide: the actor, the
// task's ownership fields, the actor's team role on the task's team (empty
// when the task is personal or the actor is not a member), and the actor's
// direct share permission (empty when no grant exists).
type Input struct {
	ActorID         uuid.UUID
	TaskOwnerID     uuid.UUID
	TaskCreatedBy   uuid.UUID
	TeamRole        string
	SharePermission string
}

// CapabilityFor evaluates every grant source and keeps the maximum.
// Delete is only ever produced by direct ownership or an owner/admin team
// role; a share or member-level team access tops out at Edit.
func CapabilityFor(in Input) Capability {
	result := CapabilityNone

	if in.ActorID == in.TaskOwnerID {
		result = max(result, CapabilityDelete)
	}

	switch in.TeamRole {
	case models.RoleOwner, models.RoleAdmin:
		result = max(result, CapabilityDelete)
	case models.RoleMember:
		if in.TaskCreatedBy == in.ActorID {
			result = max(result, CapabilityEdit)
		} else {
			result = max(result, CapabilityView)
		}
	case models.RoleViewer:
		result = max(result, CapabilityView)
	}

	switch in.SharePermission {
	case models.PermissionEdit:
		result = max(result, CapabilityEdit)
	case models.PermissionView:
		result = max(result, CapabilityView)
	}

	return result
}
