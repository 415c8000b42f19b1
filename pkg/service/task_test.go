package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
)

func TestTaskCreationAppendsPosition(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	// Positions are a project-global counter at creation time, regardless
	// of the status column the task lands in.
	statuses := []model.TaskStatus{model.TaskPending, model.TaskInProgress, model.TaskPending}
	for i, status := range statuses {
		task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
			&CreateTaskInput{Title: "t", Status: status})
		require.NoError(t, err)
		assert.Equal(t, i, task.Position)
	}

	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "t", Status: model.TaskCompleted})
	require.NoError(t, err)
	assert.Equal(t, 3, task.Position, "a fresh task sorts last across all statuses")
}

func TestMoveStoresPositionVerbatim(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	a, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "b"})
	require.NoError(t, err)
	require.Equal(t, 1, b.Position)

	// Moving A onto B's position stores the value verbatim without
	// shifting B; duplicates are allowed.
	moved, err := svc.Task.Move(ctx, owner, activity.Meta{}, a.ID, model.TaskInProgress, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Position)
	assert.Equal(t, model.TaskInProgress, moved.Status)

	var bRow model.Task
	require.NoError(t, db.First(&bRow, b.ID).Error)
	assert.Equal(t, 1, bRow.Position, "sibling positions are untouched")

	// The board tiebreaks equal positions by creation order.
	board, err := svc.Task.Board(ctx, owner, project.ID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, a.ID, board[0].ID)
	assert.Equal(t, b.ID, board[1].ID)
}

func TestTaskAssigneeMustBeMember(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	walter := createUser(t, db, "walter")
	project := createProject(t, svc, owner, "demo")

	_, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "t", AssigneeID: &walter})
	assert.ErrorIs(t, err, ErrInvalidAssignee)

	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, walter, model.ProjectRoleMember))
	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "t", AssigneeID: &walter})
	require.NoError(t, err)

	// Removing the assignee from the project does not retroactively clear
	// the assignment.
	require.NoError(t, svc.Project.RemoveMember(ctx, owner, activity.Meta{}, project.ID, walter))
	var row model.Task
	require.NoError(t, db.First(&row, task.ID).Error)
	require.NotNil(t, row.AssigneeID)
	assert.Equal(t, walter, *row.AssigneeID)
}

func TestTaskPermissions(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	viewer := createUser(t, db, "vera")
	stranger := createUser(t, db, "mallory")
	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, viewer, model.ProjectRoleViewer))

	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "t"})
	require.NoError(t, err)

	// A stranger fails with AccessDenied before any capability check.
	_, err = svc.Task.Get(ctx, stranger, task.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// A viewer may read but not mutate.
	_, err = svc.Task.Get(ctx, viewer, task.ID)
	assert.NoError(t, err)
	_, err = svc.Task.Create(ctx, viewer, activity.Meta{}, project.ID, &CreateTaskInput{Title: "x"})
	assert.ErrorIs(t, err, ErrInsufficientPermissions)
	_, err = svc.Task.Update(ctx, viewer, activity.Meta{}, task.ID, &UpdateTaskInput{Title: ptr.To("y")})
	assert.ErrorIs(t, err, ErrInsufficientPermissions)
	err = svc.Task.Delete(ctx, viewer, activity.Meta{}, task.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermissions)

	_, err = svc.Task.Get(ctx, owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskUpdateFields(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, task.Status, "default status from project settings")
	assert.Equal(t, model.PriorityMedium, task.Priority)

	updated, err := svc.Task.Update(ctx, owner, activity.Meta{}, task.ID, &UpdateTaskInput{
		Title:    ptr.To("renamed"),
		Status:   ptr.To(model.TaskCancelled), // any transition is legal
		Priority: ptr.To(model.PriorityUrgent),
		Position: ptr.To(41),
		Labels:   []string{"backend"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, model.TaskCancelled, updated.Status)
	assert.Equal(t, 41, updated.Position)
	assert.Equal(t, []string{"backend"}, []string(updated.Labels))

	_, err = svc.Task.Update(ctx, owner, activity.Meta{}, task.ID, &UpdateTaskInput{Title: ptr.To("")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskLabelValidation(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	settings := project.Settings.Data()
	settings.AllowedLabels = []string{"bug", "feature"}
	_, err := svc.Project.UpdateSettings(ctx, owner, activity.Meta{}, project.ID, &settings)
	require.NoError(t, err)

	_, err = svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "t", Labels: []string{"bug", "nope"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 1)

	_, err = svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "t", Labels: []string{"bug"}})
	assert.NoError(t, err)
}

func TestSubtasks(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "t"})
	require.NoError(t, err)

	task, err = svc.Task.AddSubtask(ctx, owner, activity.Meta{}, task.ID, "step one")
	require.NoError(t, err)
	task, err = svc.Task.AddSubtask(ctx, owner, activity.Meta{}, task.ID, "step two")
	require.NoError(t, err)
	require.Len(t, task.Subtasks.Data(), 2)

	task, err = svc.Task.ToggleSubtask(ctx, owner, activity.Meta{}, task.ID, 0)
	require.NoError(t, err)
	assert.True(t, task.Subtasks.Data()[0].Completed)

	task, err = svc.Task.RemoveSubtask(ctx, owner, activity.Meta{}, task.ID, 0)
	require.NoError(t, err)
	require.Len(t, task.Subtasks.Data(), 1)
	assert.Equal(t, "step two", task.Subtasks.Data()[0].Title)

	_, err = svc.Task.ToggleSubtask(ctx, owner, activity.Meta{}, task.ID, 5)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWatchers(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	viewer := createUser(t, db, "vera")
	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, viewer, model.ProjectRoleViewer))

	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "t"})
	require.NoError(t, err)

	task, err = svc.Task.SetWatching(ctx, viewer, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []uint{viewer}, []uint(task.Watchers))

	// Watching twice keeps a single entry.
	task, err = svc.Task.SetWatching(ctx, viewer, task.ID, true)
	require.NoError(t, err)
	assert.Len(t, []uint(task.Watchers), 1)

	task, err = svc.Task.SetWatching(ctx, viewer, task.ID, false)
	require.NoError(t, err)
	assert.Empty(t, []uint(task.Watchers))
}

func TestListFiltersAndArchive(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	project := createProject(t, svc, owner, "demo")

	t1, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "fix login bug", Priority: model.PriorityHigh, Labels: []string{"bug"}})
	require.NoError(t, err)
	_, err = svc.Task.Create(ctx, owner, activity.Meta{}, project.ID,
		&CreateTaskInput{Title: "write docs", Priority: model.PriorityLow})
	require.NoError(t, err)

	tasks, count, err := svc.Task.List(ctx, owner, project.ID,
		&TaskFilter{Priority: ptr.To(model.PriorityHigh)}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, tasks, 1)
	assert.Equal(t, t1.ID, tasks[0].ID)

	tasks, _, err = svc.Task.List(ctx, owner, project.ID, &TaskFilter{Label: ptr.To("bug")}, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, t1.ID, tasks[0].ID)

	tasks, _, err = svc.Task.List(ctx, owner, project.ID, &TaskFilter{Search: ptr.To("docs")}, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	// Archived tasks disappear from the board but not from a filtered list.
	_, err = svc.Task.SetArchived(ctx, owner, activity.Meta{}, t1.ID, true)
	require.NoError(t, err)
	board, err := svc.Task.Board(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.Len(t, board, 1)

	tasks, _, err = svc.Task.List(ctx, owner, project.ID, &TaskFilter{Archived: ptr.To(true)}, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, t1.ID, tasks[0].ID)
}

func TestListAssigned(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	p1 := createProject(t, svc, owner, "one")
	p2 := createProject(t, svc, owner, "two")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, p1.ID, bob, model.ProjectRoleMember))
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, p2.ID, bob, model.ProjectRoleMember))

	_, err := svc.Task.Create(ctx, owner, activity.Meta{}, p1.ID, &CreateTaskInput{Title: "a", AssigneeID: &bob})
	require.NoError(t, err)
	_, err = svc.Task.Create(ctx, owner, activity.Meta{}, p2.ID, &CreateTaskInput{Title: "b", AssigneeID: &bob})
	require.NoError(t, err)
	_, err = svc.Task.Create(ctx, owner, activity.Meta{}, p1.ID, &CreateTaskInput{Title: "unassigned"})
	require.NoError(t, err)

	tasks, count, err := svc.Task.ListAssigned(ctx, bob, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, tasks, 2)
}
