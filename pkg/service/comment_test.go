package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
)

func commentFixture(t *testing.T) (*Services, context.Context, uint, uint, *model.Task) {
	t.Helper()
	svc, db := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, svc, owner, "demo")
	require.NoError(t, svc.Project.AddMember(ctx, owner, activity.Meta{}, project.ID, bob, model.ProjectRoleMember))
	task, err := svc.Task.Create(ctx, owner, activity.Meta{}, project.ID, &CreateTaskInput{Title: "t"})
	require.NoError(t, err)
	return svc, ctx, owner, bob, task
}

func TestCommentThreading(t *testing.T) {
	svc, ctx, owner, bob, task := commentFixture(t)

	top, err := svc.Comment.Create(ctx, owner, activity.Meta{}, task.ID, &CreateCommentInput{Content: "first"})
	require.NoError(t, err)

	reply, err := svc.Comment.Create(ctx, bob, activity.Meta{}, task.ID,
		&CreateCommentInput{Content: "reply", ParentID: &top.ID})
	require.NoError(t, err)

	// A reply to a reply is rejected: threading is single level.
	_, err = svc.Comment.Create(ctx, owner, activity.Meta{}, task.ID,
		&CreateCommentInput{Content: "nested", ParentID: &reply.ID})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	comments, count, err := svc.Comment.List(ctx, bob, task.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, comments, 2)
}

func TestCommentAuthorOnlyEdit(t *testing.T) {
	svc, ctx, owner, bob, task := commentFixture(t)

	comment, err := svc.Comment.Create(ctx, bob, activity.Meta{}, task.ID, &CreateCommentInput{Content: "mine"})
	require.NoError(t, err)

	// Even the project owner cannot edit someone else's comment.
	_, err = svc.Comment.Update(ctx, owner, activity.Meta{}, comment.ID, "hijacked")
	assert.ErrorIs(t, err, ErrInsufficientPermissions)
	err = svc.Comment.Delete(ctx, owner, activity.Meta{}, comment.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermissions)

	updated, err := svc.Comment.Update(ctx, bob, activity.Meta{}, comment.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.True(t, updated.IsEdited)

	require.NoError(t, svc.Comment.Delete(ctx, bob, activity.Meta{}, comment.ID))
	comments, _, err := svc.Comment.List(ctx, bob, task.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].IsDeleted, "deletion is soft")
}

func TestCommentMentionsFilteredToMembers(t *testing.T) {
	svc, ctx, owner, bob, task := commentFixture(t)

	comment, err := svc.Comment.Create(ctx, owner, activity.Meta{}, task.ID,
		&CreateCommentInput{Content: "ping", Mentions: []uint{bob, 9999, bob}})
	require.NoError(t, err)
	assert.Equal(t, []uint{bob}, []uint(comment.Mentions), "non-members and duplicates are dropped")
}

func TestReactions(t *testing.T) {
	svc, ctx, owner, bob, task := commentFixture(t)

	comment, err := svc.Comment.Create(ctx, owner, activity.Meta{}, task.ID, &CreateCommentInput{Content: "hi"})
	require.NoError(t, err)

	comment, err = svc.Comment.React(ctx, bob, comment.ID, "👍")
	require.NoError(t, err)
	comment, err = svc.Comment.React(ctx, owner, comment.ID, "👍")
	require.NoError(t, err)

	// Reacting twice with the same emoji is a no-op.
	comment, err = svc.Comment.React(ctx, bob, comment.ID, "👍")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{owner, bob}, comment.Reactions.Data()["👍"])

	comment, err = svc.Comment.Unreact(ctx, bob, comment.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, []uint{owner}, comment.Reactions.Data()["👍"])

	comment, err = svc.Comment.Unreact(ctx, owner, comment.ID, "👍")
	require.NoError(t, err)
	_, hasEmoji := comment.Reactions.Data()["👍"]
	assert.False(t, hasEmoji, "empty reactor sets are dropped")
}

func TestCommentStrangerDenied(t *testing.T) {
	svc, ctx, _, _, task := commentFixture(t)
	stranger := uint(424242)

	_, err := svc.Comment.Create(ctx, stranger, activity.Meta{}, task.ID, &CreateCommentInput{Content: "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, _, err = svc.Comment.List(ctx, stranger, task.ID, 0, 10)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
