package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dimitrije/taskdeck-api/internal/access"
	"github.com/dimitrije/taskdeck-api/internal/models"
	"github.com/dimitrije/taskdeck-api/internal/sse"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindOrCreateFromClaims(ctx context.Context, id uuid.UUID, email, name string) (*models.User, error) {
	args := m.Called(ctx, id, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockTeamService mocks the TeamService
type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, name, description, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Team), args.Get(1).([]string), args.Error(2)
}

func (m *MockTeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string, actingID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, teamID, name, description, actingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, teamID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTeamService) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.TeamMember), args.Error(1)
}

func (m *MockTeamService) InviteMember(ctx context.Context, teamID, targetID uuid.UUID, role string, actingID uuid.UUID) (*models.TeamMember, error) {
	args := m.Called(ctx, teamID, targetID, role, actingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamMember), args.Error(1)
}

func (m *MockTeamService) ChangeRole(ctx context.Context, teamID, targetID uuid.UUID, newRole string, actingID uuid.UUID) error {
	args := m.Called(ctx, teamID, targetID, newRole, actingID)
	return args.Error(0)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, teamID, targetID, actingID uuid.UUID) error {
	args := m.Called(ctx, teamID, targetID, actingID)
	return args.Error(0)
}

func (m *MockTeamService) Leave(ctx context.Context, teamID, actingID uuid.UUID) error {
	args := m.Called(ctx, teamID, actingID)
	return args.Error(0)
}

func (m *MockTeamService) Delete(ctx context.Context, teamID, actingID uuid.UUID) error {
	args := m.Called(ctx, teamID, actingID)
	return args.Error(0)
}

// MockTaskService mocks the TaskService
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Create(ctx context.Context, title string, description *string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, title, description, teamID, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) GetByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, taskID uuid.UUID, title *string, description *string, completed *bool) (*models.Task, error) {
	args := m.Called(ctx, taskID, title, description, completed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockTaskService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Task), args.Error(1)
}

// MockShareService mocks the ShareService
type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Share(ctx context.Context, taskID, targetID uuid.UUID, permission string, actingID uuid.UUID) (*models.TaskShare, error) {
	args := m.Called(ctx, taskID, targetID, permission, actingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskShare), args.Error(1)
}

func (m *MockShareService) UpdatePermission(ctx context.Context, taskID, targetID uuid.UUID, newPermission string, actingID uuid.UUID) (*models.TaskShare, error) {
	args := m.Called(ctx, taskID, targetID, newPermission, actingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskShare), args.Error(1)
}

func (m *MockShareService) Revoke(ctx context.Context, taskID, targetID, actingID uuid.UUID) error {
	args := m.Called(ctx, taskID, targetID, actingID)
	return args.Error(0)
}

func (m *MockShareService) ListShares(ctx context.Context, taskID, requestingID uuid.UUID) ([]models.TaskShare, error) {
	args := m.Called(ctx, taskID, requestingID)
	return args.Get(0).([]models.TaskShare), args.Error(1)
}

func (m *MockShareService) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.SharedTask), args.Error(1)
}

// MockAccessService mocks the capability resolver
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Resolve(ctx context.Context, actorID uuid.UUID, task access.TaskRef) access.Capability {
	args := m.Called(ctx, actorID, task)
	return args.Get(0).(access.Capability)
}

func (m *MockAccessService) Require(ctx context.Context, actorID uuid.UUID, task access.TaskRef, required access.Capability, action string) (access.Capability, bool) {
	args := m.Called(ctx, actorID, task, required, action)
	return args.Get(0).(access.Capability), args.Bool(1)
}

// MockHub mocks the SSE hub
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) Unregister(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) SubscribeToTeam(clientID string, teamID uuid.UUID) {
	m.Called(clientID, teamID)
}

func (m *MockHub) UnsubscribeFromTeam(clientID string, teamID uuid.UUID) {
	m.Called(clientID, teamID)
}
