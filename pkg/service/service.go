// Package service orchestrates every state-changing operation on projects,
// tasks and comments. Each mutation follows the same protocol: load the
// entity (ErrNotFound), resolve membership (ErrAccessDenied), check the
// required capability (ErrInsufficientPermissions), mutate, then append an
// activity entry (best-effort). Concurrent mutations of the same row are
// last-write-wins; there is no version token.
package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/permission"
)

// loadProject fetches a project with its member list.
func loadProject(ctx context.Context, db *gorm.DB, projectID uint) (*model.Project, error) {
	var project model.Project
	err := db.WithContext(ctx).Preload("Members").First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// requireMember resolves the caller's role, failing closed for strangers.
func requireMember(project *model.Project, userID uint) (model.ProjectRole, error) {
	role, ok := permission.GetMemberRole(project, userID)
	if !ok {
		return 0, ErrAccessDenied
	}
	return role, nil
}

// requireCapability runs the membership check before the capability check,
// so a stranger always sees ErrAccessDenied rather than
// ErrInsufficientPermissions.
func requireCapability(project *model.Project, userID uint, c permission.Capability) error {
	if _, err := requireMember(project, userID); err != nil {
		return err
	}
	if !permission.HasPermission(project, userID, c) {
		return ErrInsufficientPermissions
	}
	return nil
}

// Services bundles the three entity services over one DB handle.
type Services struct {
	Project *ProjectService
	Task    *TaskService
	Comment *CommentService
}

func New(db *gorm.DB, recorder *activity.Recorder, invites InviteNotifier) *Services {
	return &Services{
		Project: NewProjectService(db, recorder, invites),
		Task:    NewTaskService(db, recorder),
		Comment: NewCommentService(db, recorder),
	}
}
