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
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameTaken         = errors.New("team name already taken")
	ErrMemberNotFound        = errors.New("member not found")
	ErrAlreadyMember         = errors.New("user is already a team member")
	ErrInvalidRole           = errors.New("invalid role")
	ErrOwnerRoleViaInvite    = errors.New("cannot invite a member as owner")
	ErrNotTeamAdmin          = errors.New("requires team admin or owner")
	ErrNotTeamOwner          = errors.New("requires team owner")
	ErrCannotRemoveOwner     = errors.New("cannot remove team owner")
	ErrOwnerCannotLeave      = errors.New("owner cannot leave team")
	ErrCannotChangeAdminRole = errors.New("admins may only assign member or viewer roles")
	ErrCannotChangeOwnRole   = errors.New("cannot change your own role")
	ErrOwnershipChanged      = errors.New("team ownership changed concurrently")
)

type TeamService struct {
	db     *database.DB
	events Events
	audit  audit.Recorder
}

func NewTeamService(db *database.DB, events Events, recorder audit.Recorder) *TeamService {
	return &TeamService{db: db, events: events, audit: recorder}
}

// Create inserts the team and its owner membership as one transaction.
// Either both rows persist or neither does.
func (s *TeamService) Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var team models.Team
	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, owner_id, created_at, updated_at
	`, name, description, ownerID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrTeamNameTaken
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, ownerID, models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &team, nil
}

func (s *TeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM teams WHERE id = $1
	`, teamID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at, tm.role
		FROM teams t
		JOIN team_members tm ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var teams []models.Team
	var roles []string
	for rows.Next() {
		var team models.Team
		var role string
		if err := rows.Scan(
			&team.ID, &team.Name, &team.Description, &team.OwnerID,
			&team.CreatedAt, &team.UpdatedAt, &role,
		); err != nil {
			return nil, nil, err
		}
		teams = append(teams, team)
		roles = append(roles, role)
	}
	return teams, roles, nil
}

func (s *TeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string, actingID uuid.UUID) (*models.Team, error) {
	actingRole, err := s.GetMemberRole(ctx, teamID, actingID)
	if err != nil {
		return nil, ErrTeamNotFound
	}
	if actingRole != models.RoleOwner {
		s.audit.RecordRoleDenial(ctx, actingID, "team.update", teamID, models.RoleOwner, actingRole)
		return nil, ErrNotTeamOwner
	}

	var team models.Team
	err = s.db.Pool.QueryRow(ctx, `
		UPDATE teams SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, name, description, owner_id, created_at, updated_at
	`, name, description, teamID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrTeamNameTaken
		}
		return nil, err
	}
	return &team, nil
}

// GetMemberRole returns the actor's role on the team, or ErrMemberNotFound.
func (s *TeamService) GetMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	var role string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}
		return "", err
	}
	return role, nil
}

func (s *TeamService) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, teamID, userID).Scan(&exists)
	return exists, err
}

func (s *TeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
		       u.id, u.email, u.name, u.avatar_url, u.created_at, u.updated_at
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var member models.TeamMember
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.JoinedAt,
			&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, nil
}

// InviteMember adds targetID to the team. Only admins and owners may invite,
// and the owner role is never assignable this way; ownership moves only
// through ChangeRole with the owner role (transfer).
func (s *TeamService) InviteMember(ctx context.Context, teamID, targetID uuid.UUID, role string, actingID uuid.UUID) (*models.TeamMember, error) {
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	if role == models.RoleOwner {
		return nil, ErrOwnerRoleViaInvite
	}

	actingRole, err := s.GetMemberRole(ctx, teamID, actingID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if actingRole != models.RoleOwner && actingRole != models.RoleAdmin {
		s.audit.RecordRoleDenial(ctx, actingID, "team.invite_member", teamID, models.RoleAdmin, actingRole)
		return nil, ErrNotTeamAdmin
	}

	var member models.TeamMember
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, team_id, user_id, role, joined_at
	`, teamID, targetID, role).Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.JoinedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.events.BroadcastMembershipChanged(teamID, targetID, role, "invited")
	return &member, nil
}

// ChangeRole applies the role-change validation matrix. Setting the owner
// role triggers an ownership transfer: the current owner is demoted to admin
// and the target promoted in one transaction, so no committed state ever
// holds zero or two owners.
func (s *TeamService) ChangeRole(ctx context.Context, teamID, targetID uuid.UUID, newRole string, actingID uuid.UUID) error {
	if !models.IsValidRole(newRole) {
		return ErrInvalidRole
	}

	actingRole, err := s.GetMemberRole(ctx, teamID, actingID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return ErrTeamNotFound
		}
		return err
	}

	if actingID == targetID {
		s.audit.RecordRoleDenial(ctx, actingID, "team.change_role", teamID, models.RoleOwner, actingRole)
		return ErrCannotChangeOwnRole
	}

	targetRole, err := s.GetMemberRole(ctx, teamID, targetID)
	if err != nil {
		return err
	}

	switch actingRole {
	case models.RoleOwner:
		// may set any role; owner grants go through the transfer path
	case models.RoleAdmin:
		if targetRole == models.RoleOwner || targetRole == models.RoleAdmin ||
			newRole == models.RoleOwner || newRole == models.RoleAdmin {
			s.audit.RecordRoleDenial(ctx, actingID, "team.change_role", teamID, models.RoleOwner, actingRole)
			return ErrCannotChangeAdminRole
		}
	default:
		s.audit.RecordRoleDenial(ctx, actingID, "team.change_role", teamID, models.RoleAdmin, actingRole)
		return ErrNotTeamAdmin
	}

	if newRole == models.RoleOwner {
		return s.transferOwnership(ctx, teamID, actingID, targetID)
	}

	result, err := s.db.Pool.Exec(ctx, `
		UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3
	`, newRole, teamID, targetID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	s.events.BroadcastMembershipChanged(teamID, targetID, newRole, "role_changed")
	return nil
}

func (s *TeamService) transferOwnership(ctx context.Context, teamID, currentOwnerID, newOwnerID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT owner_id FROM teams WHERE id = $1 FOR UPDATE
	`, teamID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTeamNotFound
		}
		return err
	}
	if ownerID != currentOwnerID {
		return ErrOwnershipChanged
	}

	// Demote before promote so the single-owner index never sees two owners.
	result, err := tx.Exec(ctx, `
		UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3
	`, models.RoleAdmin, teamID, currentOwnerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	result, err = tx.Exec(ctx, `
		UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3
	`, models.RoleOwner, teamID, newOwnerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE teams SET owner_id = $1, updated_at = NOW() WHERE id = $2
	`, newOwnerID, teamID)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.events.BroadcastMembershipChanged(teamID, currentOwnerID, models.RoleAdmin, "role_changed")
	s.events.BroadcastMembershipChanged(teamID, newOwnerID, models.RoleOwner, "role_changed")
	return nil
}

// RemoveMember removes targetID from the team. The owner can never be
// removed; ownership must be transferred first.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, targetID, actingID uuid.UUID) error {
	actingRole, err := s.GetMemberRole(ctx, teamID, actingID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if actingRole != models.RoleOwner && actingRole != models.RoleAdmin {
		s.audit.RecordRoleDenial(ctx, actingID, "team.remove_member", teamID, models.RoleAdmin, actingRole)
		return ErrNotTeamAdmin
	}

	targetRole, err := s.GetMemberRole(ctx, teamID, targetID)
	if err != nil {
		return err
	}
	if targetRole == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	_, err = s.db.Pool.Exec(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, targetID)
	if err != nil {
		return err
	}

	s.events.BroadcastMembershipChanged(teamID, targetID, "", "removed")
	return nil
}

// Leave is self-removal. Owners must transfer ownership or delete the team.
func (s *TeamService) Leave(ctx context.Context, teamID, actingID uuid.UUID) error {
	role, err := s.GetMemberRole(ctx, teamID, actingID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}

	_, err = s.db.Pool.Exec(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, actingID)
	if err != nil {
		return err
	}

	s.events.BroadcastMembershipChanged(teamID, actingID, "", "left")
	return nil
}

// Delete removes the team as one cascade: every team task becomes personal
// (team_id cleared, owner untouched), all memberships go, then the team row.
// Events for each detached task are emitted only after the commit.
func (s *TeamService) Delete(ctx context.Context, teamID, actingID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the team row so a concurrent ownership transfer cannot land
	// between the owner check and the cascade.
	var ownerID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT owner_id FROM teams WHERE id = $1 FOR UPDATE
	`, teamID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTeamNotFound
		}
		return err
	}
	if ownerID != actingID {
		var actingRole string
		_ = tx.QueryRow(ctx, `
			SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2
		`, teamID, actingID).Scan(&actingRole)
		s.audit.RecordRoleDenial(ctx, actingID, "team.delete", teamID, models.RoleOwner, actingRole)
		return ErrNotTeamOwner
	}

	rows, err := tx.Query(ctx, `SELECT id FROM tasks WHERE team_id = $1`, teamID)
	if err != nil {
		return err
	}
	var taskIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		taskIDs = append(taskIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE tasks SET team_id = NULL, updated_at = NOW() WHERE team_id = $1
	`, teamID)
	if err != nil {
		return fmt.Errorf("failed to detach team tasks: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team members: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, taskID := range taskIDs {
		s.events.BroadcastTaskReassigned(teamID, taskID)
	}
	s.events.BroadcastTeamDeleted(teamID)
	return nil
}
