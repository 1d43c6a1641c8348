package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dimitrije/taskdeck-api/internal/database"
	"github.com/dimitrije/taskdeck-api/internal/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTeamReadOnly = errors.New("viewers cannot create team tasks")
	ErrNoTaskFields = errors.New("no fields to update")
)

// TaskService owns task rows: content plus the owner/team association the
// resolver reads. Capability checks happen in the handlers via the resolver;
// this service only enforces creation-side membership.
type TaskService struct {
	db *database.DB
}

func NewTaskService(db *database.DB) *TaskService {
	return &TaskService{db: db}
}

// Create inserts a task owned and created by creatorID. When teamID is set
// the creator must hold a writing role on that team.
func (s *TaskService) Create(ctx context.Context, title string, description *string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Task, error) {
	if teamID != nil {
		var role string
		err := s.db.Pool.QueryRow(ctx, `
			SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2
		`, *teamID, creatorID).Scan(&role)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTeamNotFound
			}
			return nil, err
		}
		if role == models.RoleViewer {
			return nil, ErrTeamReadOnly
		}
	}

	var task models.Task
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, owner_id, team_id, created_by)
		VALUES ($1, $2, $3, $4, $3)
		RETURNING id, title, description, completed, owner_id, team_id, created_by, created_at, updated_at
	`, title, description, creatorID, teamID).Scan(
		&task.ID, &task.Title, &task.Description, &task.Completed,
		&task.OwnerID, &task.TeamID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) GetByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, title, description, completed, owner_id, team_id, created_by, created_at, updated_at
		FROM tasks WHERE id = $1
	`, taskID).Scan(
		&task.ID, &task.Title, &task.Description, &task.Completed,
		&task.OwnerID, &task.TeamID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, taskID uuid.UUID, title *string, description *string, completed *bool) (*models.Task, error) {
	if title == nil && description == nil && completed == nil {
		return nil, ErrNoTaskFields
	}

	var task models.Task
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE tasks SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			completed = COALESCE($3, completed),
			updated_at = NOW()
		WHERE id = $4
		RETURNING id, title, description, completed, owner_id, team_id, created_by, created_at, updated_at
	`, title, description, completed, taskID).Scan(
		&task.ID, &task.Title, &task.Description, &task.Completed,
		&task.OwnerID, &task.TeamID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Delete removes the task; its share rows go with it via the store cascade.
func (s *TaskService) Delete(ctx context.Context, taskID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListForUser returns tasks the user owns plus tasks on teams they belong to.
func (s *TaskService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT DISTINCT t.id, t.title, t.description, t.completed, t.owner_id, t.team_id,
		       t.created_by, t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN team_members tm ON t.team_id = tm.team_id AND tm.user_id = $1
		WHERE t.owner_id = $1 OR tm.user_id IS NOT NULL
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(
			&task.ID, &task.Title, &task.Description, &task.Completed,
			&task.OwnerID, &task.TeamID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
