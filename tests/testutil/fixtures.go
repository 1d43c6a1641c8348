package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/dimitrije/taskdeck-api/internal/database"
	"github.com/dimitrije/taskdeck-api/internal/models"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, avatar_url, created_at, updated_at
	`, user.Email, user.Name, user.AvatarURL).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// CreateTeam creates a test team with the given owner
func (f *Fixtures) CreateTeam(t *testing.T, owner *models.User, opts ...TeamOption) *models.Team {
	t.Helper()
	f.counter++

	team := &models.Team{
		Name:    fmt.Sprintf("Test Team %d", f.counter),
		OwnerID: owner.ID,
	}

	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, owner_id, created_at, updated_at
	`, team.Name, team.Description, team.OwnerID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, owner.ID, models.RoleOwner)
	if err != nil {
		t.Fatalf("failed to add owner as member: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return team
}

// TeamOption configures a test team
type TeamOption func(*models.Team)

// WithTeamName sets the team's name
func WithTeamName(name string) TeamOption {
	return func(tm *models.Team) {
		tm.Name = name
	}
}

// AddMember adds a user to a team with the given role
func (f *Fixtures) AddMember(t *testing.T, team *models.Team, user *models.User, role string) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, user.ID, role)
	if err != nil {
		t.Fatalf("failed to add team member: %v", err)
	}
}

// CreateTask creates a test task owned by the given user. Pass a team to
// attach it as a team task.
func (f *Fixtures) CreateTask(t *testing.T, owner *models.User, team *models.Team, opts ...TaskOption) *models.Task {
	t.Helper()
	f.counter++

	task := &models.Task{
		Title:     fmt.Sprintf("Test Task %d", f.counter),
		OwnerID:   owner.ID,
		CreatedBy: owner.ID,
	}
	if team != nil {
		task.TeamID = &team.ID
	}

	for _, opt := range opts {
		opt(task)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, completed, owner_id, team_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, title, description, completed, owner_id, team_id, created_by, created_at, updated_at
	`, task.Title, task.Description, task.Completed, task.OwnerID, task.TeamID, task.CreatedBy).Scan(
		&task.ID, &task.Title, &task.Description, &task.Completed,
		&task.OwnerID, &task.TeamID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	return task
}

// TaskOption configures a test task
type TaskOption func(*models.Task)

// WithTitle sets the task's title
func WithTitle(title string) TaskOption {
	return func(task *models.Task) {
		task.Title = title
	}
}

// WithCreatedBy sets the task's creator, for team tasks created by a
// member other than the owner
func WithCreatedBy(userID uuid.UUID) TaskOption {
	return func(task *models.Task) {
		task.CreatedBy = userID
	}
}

// CreateShare grants a user direct access to a task
func (f *Fixtures) CreateShare(t *testing.T, task *models.Task, user *models.User, permission string) *models.TaskShare {
	t.Helper()
	ctx := context.Background()

	share := &models.TaskShare{}
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO task_shares (task_id, user_id, permission, granted_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, task_id, user_id, permission, granted_by, granted_at
	`, task.ID, user.ID, permission, task.OwnerID).Scan(
		&share.ID, &share.TaskID, &share.UserID, &share.Permission, &share.GrantedBy, &share.GrantedAt,
	)
	if err != nil {
		t.Fatalf("failed to create share: %v", err)
	}

	return share
}
