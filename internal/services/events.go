package services

import "github.com/google/uuid"

// Events is the domain-event sink the registries emit into on each commit.
// The SSE hub implements it; delivery to subscribers is the hub's concern.
type Events interface {
	BroadcastMembershipChanged(teamID, userID uuid.UUID, role, change string)
	BroadcastShareGranted(taskID, targetID, grantedBy uuid.UUID, permission string)
	BroadcastShareRevoked(taskID, targetID, revokedBy uuid.UUID)
	BroadcastTaskReassigned(teamID, taskID uuid.UUID)
	BroadcastTeamDeleted(teamID uuid.UUID)
}

// NoopEvents discards all events.
type NoopEvents struct{}

func (NoopEvents) BroadcastMembershipChanged(uuid.UUID, uuid.UUID, string, string) {}
func (NoopEvents) BroadcastShareGranted(uuid.UUID, uuid.UUID, uuid.UUID, string)   {}
func (NoopEvents) BroadcastShareRevoked(uuid.UUID, uuid.UUID, uuid.UUID)           {}
func (NoopEvents) BroadcastTaskReassigned(uuid.UUID, uuid.UUID)                    {}
func (NoopEvents) BroadcastTeamDeleted(uuid.UUID)                                  {}
