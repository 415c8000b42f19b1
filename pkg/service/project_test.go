package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/permission"
)

func TestCreateProjectOwnerIsMember(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	project := createProject(t, svc, owner, "demo")
	assert.Equal(t, owner, project.OwnerID)
	assert.Equal(t, model.ProjectActive, project.Status)

	loaded, err := svc.Project.Get(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.True(t, permission.IsMember(loaded, owner))

	role, ok := permission.GetMemberRole(loaded, owner)
	require.True(t, ok)
	assert.Equal(t, model.ProjectRoleOwner, role)

	assert.EqualValues(t, 1, countActivities(t, db, project.ID, model.ActionProjectCreate))
}

func TestGetDeniesStrangers(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	stranger := createUser(t, db, "mallory")

	project := createProject(t, svc, owner, "demo")

	_, err := svc.Project.Get(ctx, stranger, project.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Project.Get(ctx, owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetInternalVisibility(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	stranger := createUser(t, db, "bob")

	project := createProject(t, svc, owner, "demo")
	settings := project.Settings.Data()
	settings.Visibility = model.VisibilityInternal
	_, err := svc.Project.UpdateSettings(ctx, owner, activity.Meta{}, project.ID, &settings)
	require.NoError(t, err)

	_, err = svc.Project.Get(ctx, stranger, project.ID)
	assert.NoError(t, err, "internal projects are readable by any signed-in user")
}

func TestMemberLifecycle(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	project := createProject(t, svc, owner, "demo")

	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleMember))

	// Idempotent: a second add keeps a single row and overwrites the role.
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleAdmin))
	members, err := svc.Project.ListMembers(ctx, owner, project.ID)
	require.NoError(t, err)
	require.Len(t, members, 2) // owner row + bob
	bobRow, found := findMember(members, bob)
	require.True(t, found)
	assert.Equal(t, model.ProjectRoleAdmin, bobRow.Role)

	// Role change in place.
	require.NoError(t, svc.Project.UpdateMemberRole(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleViewer))
	loaded, err := svc.Project.Get(ctx, owner, project.ID)
	require.NoError(t, err)
	role, ok := permission.GetMemberRole(loaded, bob)
	require.True(t, ok)
	assert.Equal(t, model.ProjectRoleViewer, role)

	// Removal, then membership is gone.
	require.NoError(t, svc.Project.RemoveMember(ctx, owner, activity.Meta{}, project.ID, bob))
	loaded, err = svc.Project.Get(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.False(t, permission.IsMember(loaded, bob))

	// Removing again is a no-op, not an error.
	require.NoError(t, svc.Project.RemoveMember(ctx, owner, activity.Meta{}, project.ID, bob))

	// The owner cannot lose their implicit membership.
	require.NoError(t, svc.Project.RemoveMember(ctx, owner, activity.Meta{}, project.ID, owner))
	loaded, err = svc.Project.Get(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.True(t, permission.IsMember(loaded, owner))
}

func TestUpdateMemberRoleNonMemberIsNoop(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	carol := createUser(t, db, "carol")

	project := createProject(t, svc, owner, "demo")

	require.NoError(t, svc.Project.UpdateMemberRole(ctx, owner, activity.Meta{}, project.ID, carol, model.ProjectRoleAdmin))
	members, err := svc.Project.ListMembers(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1, "no entry is created for a non-member")
}

func TestAddMemberRequiresInvite(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	stranger := createUser(t, db, "mallory")

	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleMember))

	// A plain member lacks canInvite.
	err := svc.Project.AddMember(ctx, bob, activity.Meta{}, project.ID, carol, model.ProjectRoleMember)
	assert.ErrorIs(t, err, ErrInsufficientPermissions)

	// A stranger is rejected before any capability check.
	err = svc.Project.AddMember(ctx, stranger, activity.Meta{}, project.ID, carol, model.ProjectRoleMember)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Unknown target user.
	err = svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, 9999, model.ProjectRoleMember)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectUpdatePermissions(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleMember))

	_, err := svc.Project.Update(ctx, bob, activity.Meta{}, project.ID, &UpdateProjectInput{Name: ptr.To("renamed")})
	assert.ErrorIs(t, err, ErrInsufficientPermissions, "member lacks canEdit")

	updated, err := svc.Project.Update(ctx, owner, activity.Meta{}, project.ID,
		&UpdateProjectInput{Name: ptr.To("renamed"), Status: ptr.To(model.ProjectCompleted)})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, model.ProjectCompleted, updated.Status)
}

func TestProjectDeleteScenario(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleMember))

	// A member can create tasks but not delete the project.
	task, err := svc.Task.Create(ctx, bob, activity.Meta{}, project.ID, &CreateTaskInput{Title: "todo"})
	require.NoError(t, err)
	_, err = svc.Comment.Create(ctx, bob, activity.Meta{}, task.ID, &CreateCommentInput{Content: "hi"})
	require.NoError(t, err)

	err = svc.Project.Delete(ctx, bob, activity.Meta{}, project.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermissions)

	// Owner delete cascades to tasks, comments and memberships.
	require.NoError(t, svc.Project.Delete(ctx, owner, activity.Meta{}, project.ID))
	_, err = svc.Project.Get(ctx, owner, project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var taskCount, commentCount, memberCount int64
	require.NoError(t, db.Model(&model.Task{}).Where("project_id = ?", project.ID).Count(&taskCount).Error)
	require.NoError(t, db.Model(&model.Comment{}).Where("task_id = ?", task.ID).Count(&commentCount).Error)
	require.NoError(t, db.Model(&model.Member{}).Where("project_id = ?", project.ID).Count(&memberCount).Error)
	assert.Zero(t, taskCount)
	assert.Zero(t, commentCount)
	assert.Zero(t, memberCount)

	// The audit trail survives the project.
	assert.EqualValues(t, 1, countActivities(t, db, project.ID, model.ActionProjectDelete))
}

func TestListForUser(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	owned := createProject(t, svc, owner, "owned")
	joined := createProject(t, svc, bob, "joined")
	require.NoError(t, svc.Project.AddMember(ctx, bob, activity.Meta{}, joined.ID, owner, model.ProjectRoleViewer))
	createProject(t, svc, bob, "other")

	projects, count, err := svc.Project.ListForUser(ctx, owner, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	ids := []uint{projects[0].ID, projects[1].ID}
	assert.ElementsMatch(t, []uint{owned.ID, joined.ID}, ids)
}

func findMember(members []model.Member, userID uint) (model.Member, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return model.Member{}, false
}
