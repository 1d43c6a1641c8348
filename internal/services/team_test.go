package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/taskdeck-api/internal/audit"
	"github.com/dimitrije/taskdeck-api/internal/database"
	"github.com/dimitrije/taskdeck-api/internal/models"
)

func setupTeamService(t *testing.T) (*TeamService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewTeamService(db, NoopEvents{}, audit.Noop{}), mock
}

func teamRows(teamID uuid.UUID, name string, ownerID uuid.UUID, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "description", "owner_id", "created_at", "updated_at"}).
		AddRow(teamID, name, (*string)(nil), ownerID, now, now)
}

func TestTeamService_Create(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	teamID := uuid.New()
	name := "Platform"
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams \(name, description, owner_id\)`).
		WithArgs(name, (*string)(nil), ownerID).
		WillReturnRows(teamRows(teamID, name, ownerID, now))
	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs(teamID, ownerID, models.RoleOwner).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	team, err := svc.Create(ctx, name, nil, ownerID)

	require.NoError(t, err)
	assert.Equal(t, teamID, team.ID)
	assert.Equal(t, name, team.Name)
	assert.Equal(t, ownerID, team.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Create_NameTaken(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams \(name, description, owner_id\)`).
		WithArgs("Platform", (*string)(nil), ownerID).
		WillReturnError(errUniqueViolation)
	mock.ExpectRollback()

	_, err := svc.Create(ctx, "Platform", nil, ownerID)

	assert.ErrorIs(t, err, ErrTeamNameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Create_MembershipInsertFailureRollsBack(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	teamID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams \(name, description, owner_id\)`).
		WithArgs("Platform", (*string)(nil), ownerID).
		WillReturnRows(teamRows(teamID, "Platform", ownerID, now))
	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs(teamID, ownerID, models.RoleOwner).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.Create(ctx, "Platform", nil, ownerID)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM teams WHERE id`).
		WithArgs(teamID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(ctx, teamID)

	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_GetUserTeams(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "name", "description", "owner_id", "created_at", "updated_at", "role"}).
		AddRow(uuid.New(), "Team A", (*string)(nil), userID, now, now, "owner").
		AddRow(uuid.New(), "Team B", (*string)(nil), uuid.New(), now, now, "viewer")

	mock.ExpectQuery(`SELECT .+ FROM teams t\s+JOIN team_members`).
		WithArgs(userID).
		WillReturnRows(rows)

	teams, roles, err := svc.GetUserTeams(ctx, userID)

	require.NoError(t, err)
	assert.Len(t, teams, 2)
	assert.Equal(t, []string{"owner", "viewer"}, roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Update_NotOwner(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))

	_, err := svc.Update(ctx, teamID, "Renamed", nil, actingID)

	assert.ErrorIs(t, err, ErrNotTeamOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_InviteMember(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))

	rows := pgxmock.NewRows([]string{"id", "team_id", "user_id", "role", "joined_at"}).
		AddRow(uuid.New(), teamID, targetID, "member", now)
	mock.ExpectQuery(`INSERT INTO team_members`).
		WithArgs(teamID, targetID, "member").
		WillReturnRows(rows)

	member, err := svc.InviteMember(ctx, teamID, targetID, "member", actingID)

	require.NoError(t, err)
	assert.Equal(t, targetID, member.UserID)
	assert.Equal(t, "member", member.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_InviteMember_OwnerRoleRejected(t *testing.T) {
	svc, _ := setupTeamService(t)

	_, err := svc.InviteMember(context.Background(), uuid.New(), uuid.New(), models.RoleOwner, uuid.New())

	assert.ErrorIs(t, err, ErrOwnerRoleViaInvite)
}

func TestTeamService_InviteMember_InvalidRole(t *testing.T) {
	svc, _ := setupTeamService(t)

	_, err := svc.InviteMember(context.Background(), uuid.New(), uuid.New(), "superuser", uuid.New())

	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestTeamService_InviteMember_ActingMemberForbidden(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))

	_, err := svc.InviteMember(ctx, teamID, uuid.New(), "viewer", actingID)

	assert.ErrorIs(t, err, ErrNotTeamAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_InviteMember_Duplicate(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))
	mock.ExpectQuery(`INSERT INTO team_members`).
		WithArgs(teamID, targetID, "member").
		WillReturnError(errUniqueViolation)

	_, err := svc.InviteMember(ctx, teamID, targetID, "member", actingID)

	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_SelfRejected(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))

	err := svc.ChangeRole(ctx, teamID, actingID, "admin", actingID)

	assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_AdminCannotPromoteToAdmin(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))

	err := svc.ChangeRole(ctx, teamID, targetID, "admin", actingID)

	assert.ErrorIs(t, err, ErrCannotChangeAdminRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_AdminCannotTouchAdmin(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))

	err := svc.ChangeRole(ctx, teamID, targetID, "viewer", actingID)

	assert.ErrorIs(t, err, ErrCannotChangeAdminRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_MemberForbidden(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("viewer"))

	err := svc.ChangeRole(ctx, teamID, targetID, "member", actingID)

	assert.ErrorIs(t, err, ErrNotTeamAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_Demote(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))
	mock.ExpectExec(`UPDATE team_members SET role`).
		WithArgs("viewer", teamID, targetID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := svc.ChangeRole(ctx, teamID, targetID, "viewer", actingID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_OwnershipTransfer(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	ownerID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM teams WHERE id = \$1 FOR UPDATE`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(ownerID))
	// Demote the current owner before promoting the target.
	mock.ExpectExec(`UPDATE team_members SET role`).
		WithArgs(models.RoleAdmin, teamID, ownerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE team_members SET role`).
		WithArgs(models.RoleOwner, teamID, targetID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE teams SET owner_id`).
		WithArgs(targetID, teamID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := svc.ChangeRole(ctx, teamID, targetID, models.RoleOwner, ownerID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_ChangeRole_OwnershipTransfer_ConcurrentChange(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	ownerID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))

	mock.ExpectBegin()
	// The row lock reveals a different owner, so the transfer aborts.
	mock.ExpectQuery(`SELECT owner_id FROM teams WHERE id = \$1 FOR UPDATE`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	err := svc.ChangeRole(ctx, teamID, targetID, models.RoleOwner, ownerID)

	assert.ErrorIs(t, err, ErrOwnershipChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_RemoveMember_OwnerProtected(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, targetID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))

	err := svc.RemoveMember(ctx, teamID, targetID, actingID)

	assert.ErrorIs(t, err, ErrCannotRemoveOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Leave_OwnerRejected(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("owner"))

	err := svc.Leave(ctx, teamID, actingID)

	assert.ErrorIs(t, err, ErrOwnerCannotLeave)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Leave(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectExec(`DELETE FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := svc.Leave(ctx, teamID, actingID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Delete_Cascade(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	ownerID := uuid.New()
	task1 := uuid.New()
	task2 := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM teams WHERE id = \$1 FOR UPDATE`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(ownerID))
	mock.ExpectQuery(`SELECT id FROM tasks WHERE team_id`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(task1).AddRow(task2))
	mock.ExpectExec(`UPDATE tasks SET team_id = NULL`).
		WithArgs(teamID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`DELETE FROM team_members WHERE team_id`).
		WithArgs(teamID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM teams WHERE id`).
		WithArgs(teamID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := svc.Delete(ctx, teamID, ownerID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamService_Delete_NotOwner(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actingID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM teams WHERE id = \$1 FOR UPDATE`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(uuid.New()))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, actingID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(models.RoleMember))
	mock.ExpectRollback()

	err := svc.Delete(ctx, teamID, actingID)

	assert.ErrorIs(t, err, ErrNotTeamOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The owner check holds the team row lock for the whole cascade, so an
// actor demoted by a concurrent ownership transfer sees the new owner_id
// and is turned away instead of deleting a team they no longer own.
func TestTeamService_Delete_OwnerDemotedConcurrently(t *testing.T) {
	svc, mock := setupTeamService(t)
	ctx := context.Background()
	teamID := uuid.New()
	formerOwner := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM teams WHERE id = \$1 FOR UPDATE`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(uuid.New()))
	mock.ExpectQuery(`SELECT role FROM team_members`).
		WithArgs(teamID, formerOwner).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(models.RoleAdmin))
	mock.ExpectRollback()

	err := svc.Delete(ctx, teamID, formerOwner)

	assert.ErrorIs(t, err, ErrNotTeamOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
