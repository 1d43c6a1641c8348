package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/taskdeck-api/internal/models"
	"github.com/dimitrije/taskdeck-api/internal/services"
	"github.com/dimitrije/taskdeck-api/tests/testutil"
)

func TestTask_Integration_CreatePersonal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)

	task, err := svc.Create(ctx, "Write minutes", nil, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, task.OwnerID)
	assert.Equal(t, user.ID, task.CreatedBy)
	assert.Nil(t, task.TeamID)
	assert.True(t, task.IsPersonal())
}

func TestTask_Integration_CreateTeamTask(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	member := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)
	fixtures.AddMember(t, team, member, models.RoleMember)

	task, err := svc.Create(ctx, "Sprint notes", nil, &team.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, task.TeamID)
	assert.Equal(t, team.ID, *task.TeamID)
	assert.Equal(t, member.ID, task.OwnerID)
	assert.Equal(t, member.ID, task.CreatedBy)
}

func TestTask_Integration_ViewerCannotCreateTeamTask(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	viewer := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)
	fixtures.AddMember(t, team, viewer, models.RoleViewer)

	_, err := svc.Create(ctx, "Nope", nil, &team.ID, viewer.ID)
	assert.ErrorIs(t, err, services.ErrTeamReadOnly)
}

func TestTask_Integration_NonMemberCannotCreateTeamTask(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	outsider := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)

	_, err := svc.Create(ctx, "Nope", nil, &team.ID, outsider.ID)
	assert.ErrorIs(t, err, services.ErrTeamNotFound)
}

func TestTask_Integration_UpdateAndComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	task := fixtures.CreateTask(t, user, nil, testutil.WithTitle("Draft"))

	title := "Final"
	completed := true
	updated, err := svc.Update(ctx, task.ID, &title, nil, &completed)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.True(t, updated.Completed)
}

func TestTask_Integration_DeleteRemovesShares(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	guest := fixtures.CreateUser(t)
	task := fixtures.CreateTask(t, owner, nil)
	fixtures.CreateShare(t, task, guest, models.PermissionView)

	require.NoError(t, svc.Delete(ctx, task.ID))

	_, err := svc.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	var count int
	err = tdb.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM task_shares WHERE task_id = $1`, task.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTask_Integration_ListForUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTaskService(tdb.DB)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	teammate := fixtures.CreateUser(t)
	guest := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)
	fixtures.AddMember(t, team, teammate, models.RoleMember)

	personal := fixtures.CreateTask(t, teammate, nil, testutil.WithTitle("mine"))
	teamTask := fixtures.CreateTask(t, owner, team, testutil.WithTitle("ours"))
	shared := fixtures.CreateTask(t, guest, nil, testutil.WithTitle("lent"))
	fixtures.CreateShare(t, shared, teammate, models.PermissionView)
	fixtures.CreateTask(t, guest, nil, testutil.WithTitle("hidden"))

	tasks, err := svc.ListForUser(ctx, teammate.ID)
	require.NoError(t, err)

	ids := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		ids[task.ID.String()] = true
	}
	assert.Len(t, tasks, 3)
	assert.True(t, ids[personal.ID.String()])
	assert.True(t, ids[teamTask.ID.String()])
	assert.True(t, ids[shared.ID.String()])
}
