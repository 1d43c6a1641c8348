package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dimitrije/taskdeck-api/internal/audit"
	"github.com/dimitrije/taskdeck-api/internal/database"
	"github.com/dimitrije/taskdeck-api/internal/models"
)

var (
	ErrShareNotFound     = errors.New("share not found")
	ErrShareExists       = errors.New("task already shared with this user")
	ErrSelfShare         = errors.New("cannot share a task with its owner")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrNotTaskOwner      = errors.New("only the task owner can manage shares")
)

// ShareService owns direct per-user task grants, independent of teams.
// Every mutation is owner-only; grant visibility is owner-only too.
type ShareService struct {
	db     *database.DB
	events Events
	audit  audit.Recorder
}

func NewShareService(db *database.DB, events Events, recorder audit.Recorder) *ShareService {
	return &ShareService{db: db, events: events, audit: recorder}
}

func (s *ShareService) taskOwner(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `SELECT owner_id FROM tasks WHERE id = $1`, taskID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrTaskNotFound
		}
		return uuid.Nil, err
	}
	return ownerID, nil
}

// Share grants targetID direct access to the task. No implicit upgrade: an
// existing grant for the pair is a conflict, callers use UpdatePermission.
func (s *ShareService) Share(ctx context.Context, taskID, targetID uuid.UUID, permission string, actingID uuid.UUID) (*models.TaskShare, error) {
	if !models.IsValidPermission(permission) {
		return nil, ErrInvalidPermission
	}

	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if ownerID != actingID {
		s.audit.RecordRoleDenial(ctx, actingID, "share.create", taskID, "owner", "")
		return nil, ErrNotTaskOwner
	}
	if targetID == ownerID {
		return nil, ErrSelfShare
	}

	var share models.TaskShare
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO task_shares (task_id, user_id, permission, granted_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, task_id, user_id, permission, granted_by, granted_at
	`, taskID, targetID, permission, actingID).Scan(
		&share.ID, &share.TaskID, &share.UserID, &share.Permission, &share.GrantedBy, &share.GrantedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrShareExists
		}
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	s.events.BroadcastShareGranted(taskID, targetID, actingID, permission)
	return &share, nil
}

func (s *ShareService) UpdatePermission(ctx context.Context, taskID, targetID uuid.UUID, newPermission string, actingID uuid.UUID) (*models.TaskShare, error) {
	if !models.IsValidPermission(newPermission) {
		return nil, ErrInvalidPermission
	}

	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if ownerID != actingID {
		s.audit.RecordRoleDenial(ctx, actingID, "share.update", taskID, "owner", "")
		return nil, ErrNotTaskOwner
	}

	var share models.TaskShare
	err = s.db.Pool.QueryRow(ctx, `
		UPDATE task_shares SET permission = $1
		WHERE task_id = $2 AND user_id = $3
		RETURNING id, task_id, user_id, permission, granted_by, granted_at
	`, newPermission, taskID, targetID).Scan(
		&share.ID, &share.TaskID, &share.UserID, &share.Permission, &share.GrantedBy, &share.GrantedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	s.events.BroadcastShareGranted(taskID, targetID, actingID, newPermission)
	return &share, nil
}

// Revoke removes the grant. Revoking an absent grant is ErrShareNotFound,
// so calling it twice is safe.
func (s *ShareService) Revoke(ctx context.Context, taskID, targetID, actingID uuid.UUID) error {
	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return err
	}
	if ownerID != actingID {
		s.audit.RecordRoleDenial(ctx, actingID, "share.revoke", taskID, "owner", "")
		return ErrNotTaskOwner
	}

	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM task_shares WHERE task_id = $1 AND user_id = $2
	`, taskID, targetID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrShareNotFound
	}

	s.events.BroadcastShareRevoked(taskID, targetID, actingID)
	return nil
}

// ListShares returns the task's grants to its owner. Any other caller gets
// an empty list; sharing metadata is private to the owner.
func (s *ShareService) ListShares(ctx context.Context, taskID, requestingID uuid.UUID) ([]models.TaskShare, error) {
	ownerID, err := s.taskOwner(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if ownerID != requestingID {
		return []models.TaskShare{}, nil
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT ts.id, ts.task_id, ts.user_id, ts.permission, ts.granted_by, ts.granted_at,
		       u.id, u.email, u.name, u.avatar_url, u.created_at, u.updated_at
		FROM task_shares ts
		JOIN users u ON ts.user_id = u.id
		WHERE ts.task_id = $1
		ORDER BY ts.granted_at
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []models.TaskShare
	for rows.Next() {
		var share models.TaskShare
		var user models.User
		if err := rows.Scan(
			&share.ID, &share.TaskID, &share.UserID, &share.Permission, &share.GrantedBy, &share.GrantedAt,
			&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		share.User = &user
		shares = append(shares, share)
	}
	return shares, nil
}

// ListSharedWithMe returns every task granted to userID, with just enough
// owner metadata to render it, regardless of team membership.
func (s *ShareService) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.title, t.description, t.completed, t.owner_id, t.team_id, t.created_by,
		       t.created_at, t.updated_at, ts.permission, u.name, u.email
		FROM task_shares ts
		JOIN tasks t ON ts.task_id = t.id
		JOIN users u ON t.owner_id = u.id
		WHERE ts.user_id = $1
		ORDER BY ts.granted_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shared []models.SharedTask
	for rows.Next() {
		var st models.SharedTask
		if err := rows.Scan(
			&st.Task.ID, &st.Task.Title, &st.Task.Description, &st.Task.Completed,
			&st.Task.OwnerID, &st.Task.TeamID, &st.Task.CreatedBy,
			&st.Task.CreatedAt, &st.Task.UpdatedAt, &st.Permission, &st.OwnerName, &st.OwnerEmail,
		); err != nil {
			return nil, err
		}
		shared = append(shared, st)
	}
	return shared, nil
}
