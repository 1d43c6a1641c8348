package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/dimitrije/taskdeck-api/internal/access"
	"github.com/dimitrije/taskdeck-api/internal/models"
	"github.com/dimitrije/taskdeck-api/internal/sse"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	FindOrCreateFromClaims(ctx context.Context, id uuid.UUID, email, name string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// TeamServiceInterface defines the methods used by handlers from TeamService
type TeamServiceInterface interface {
	Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error)
	GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error)
	Update(ctx context.Context, teamID uuid.UUID, name string, description *string, actingID uuid.UUID) (*models.Team, error)
	GetMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error)
	IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
	InviteMember(ctx context.Context, teamID, targetID uuid.UUID, role string, actingID uuid.UUID) (*models.TeamMember, error)
	ChangeRole(ctx context.Context, teamID, targetID uuid.UUID, newRole string, actingID uuid.UUID) error
	RemoveMember(ctx context.Context, teamID, targetID, actingID uuid.UUID) error
	Leave(ctx context.Context, teamID, actingID uuid.UUID) error
	Delete(ctx context.Context, teamID, actingID uuid.UUID) error
}

// TaskServiceInterface defines the methods used by handlers from TaskService
type TaskServiceInterface interface {
	Create(ctx context.Context, title string, description *string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Task, error)
	GetByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, taskID uuid.UUID, title *string, description *string, completed *bool) (*models.Task, error)
	Delete(ctx context.Context, taskID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
}

// ShareServiceInterface defines the methods used by handlers from ShareService
type ShareServiceInterface interface {
	Share(ctx context.Context, taskID, targetID uuid.UUID, permission string, actingID uuid.UUID) (*models.TaskShare, error)
	UpdatePermission(ctx context.Context, taskID, targetID uuid.UUID, newPermission string, actingID uuid.UUID) (*models.TaskShare, error)
	Revoke(ctx context.Context, taskID, targetID, actingID uuid.UUID) error
	ListShares(ctx context.Context, taskID, requestingID uuid.UUID) ([]models.TaskShare, error)
	ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error)
}

// AccessServiceInterface defines the methods used by handlers from the resolver
type AccessServiceInterface interface {
	Resolve(ctx context.Context, actorID uuid.UUID, task access.TaskRef) access.Capability
	Require(ctx context.Context, actorID uuid.UUID, task access.TaskRef, required access.Capability, action string) (access.Capability, bool)
}

// HubInterface defines the methods used by handlers from the Hub
type HubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
	SubscribeToTeam(clientID string, teamID uuid.UUID)
	UnsubscribeFromTeam(clientID string, teamID uuid.UUID)
}
