package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/permission"
)

// InviteNotifier is told about new memberships so it can send an
// invitation mail. Implementations must be best-effort and non-blocking.
type InviteNotifier interface {
	MemberAdded(project *model.Project, user *model.User, role model.ProjectRole)
}

type ProjectService struct {
	db       *gorm.DB
	recorder *activity.Recorder
	invites  InviteNotifier
}

func NewProjectService(db *gorm.DB, recorder *activity.Recorder, invites InviteNotifier) *ProjectService {
	return &ProjectService{db: db, recorder: recorder, invites: invites}
}

type CreateProjectInput struct {
	Name        string
	Description *string
	Color       string
}

// Create makes the actor the immutable owner and writes an explicit
// owner-role member row alongside, so member listings include the owner
// without a special case.
func (s *ProjectService) Create(ctx context.Context, actorID uint, meta activity.Meta, input *CreateProjectInput) (*model.Project, error) {
	if input.Name == "" {
		return nil, newValidationError("name", "must not be empty")
	}

	project := model.Project{
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Status:      model.ProjectActive,
		OwnerID:     actorID,
		Settings:    datatypes.NewJSONType(model.DefaultProjectSettings()),
		Members: []model.Member{
			{UserID: actorID, Role: model.ProjectRoleOwner, JoinedAt: time.Now()},
		},
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionProjectCreate,
		EntityType: model.EntityProject,
		EntityID:   project.ID,
		After:      &project,
		Meta:       meta,
	})
	return &project, nil
}

// Get returns the project if the caller may read it: members always,
// strangers only when the project is internally visible.
func (s *ProjectService) Get(ctx context.Context, actorID, projectID uint) (*model.Project, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if !permission.IsMember(project, actorID) &&
		project.Settings.Data().Visibility != model.VisibilityInternal {
		return nil, ErrAccessDenied
	}
	return project, nil
}

// ListForUser pages through the projects in which the user is the owner or
// holds a member row, newest first.
func (s *ProjectService) ListForUser(ctx context.Context, userID uint, offset, limit int) ([]model.Project, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Project{}).
		Where("owner_id = ? OR id IN (?)", userID,
			s.db.Model(&model.Member{}).Select("project_id").Where("user_id = ?", userID))

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var projects []model.Project
	err := q.Preload("Members").Order("id DESC").Offset(offset).Limit(limit).Find(&projects).Error
	return projects, count, err
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	Color       *string
	Status      *model.ProjectStatus
}

// Update mutates basic project fields. Requires canEdit.
func (s *ProjectService) Update(ctx context.Context, actorID uint, meta activity.Meta, projectID uint, input *UpdateProjectInput) (*model.Project, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanEdit); err != nil {
		return nil, err
	}

	before := *project
	if input.Name != nil {
		if *input.Name == "" {
			return nil, newValidationError("name", "must not be empty")
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.Color != nil {
		project.Color = *input.Color
	}
	if input.Status != nil {
		project.Status = *input.Status
	}

	if err := s.db.WithContext(ctx).Omit("Members", "Owner").Save(project).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionProjectUpdate,
		EntityType: model.EntityProject,
		EntityID:   project.ID,
		Before:     &before,
		After:      project,
		Meta:       meta,
	})
	return project, nil
}

// UpdateSettings replaces the settings block. Requires canEdit.
func (s *ProjectService) UpdateSettings(ctx context.Context, actorID uint, meta activity.Meta, projectID uint, settings *model.ProjectSettings) (*model.Project, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanEdit); err != nil {
		return nil, err
	}

	before := project.Settings.Data()
	project.Settings = datatypes.NewJSONType(*settings)
	if err := s.db.WithContext(ctx).Model(project).Update("settings", project.Settings).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionProjectUpdate,
		EntityType: model.EntityProject,
		EntityID:   project.ID,
		Before:     &before,
		After:      settings,
		Meta:       meta,
	})
	return project, nil
}

// Delete removes the project and everything it owns in one transaction.
// The activity trail is kept. Requires canDelete.
func (s *ProjectService) Delete(ctx context.Context, actorID uint, meta activity.Meta, projectID uint) error {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if err := requireCapability(project, actorID, permission.CanDelete); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint
		if err := tx.Model(&model.Task{}).Where("project_id = ?", projectID).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", projectID).Delete(&model.Task{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.Member{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, projectID).Error
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     model.ActionProjectDelete,
		EntityType: model.EntityProject,
		EntityID:   projectID,
		Before:     project,
		Meta:       meta,
	})
	return nil
}

// AddMember upserts a membership. Requires canInvite. Adding the owner is a
// no-op since their implicit role already tops any explicit one.
func (s *ProjectService) AddMember(ctx context.Context, actorID uint, meta activity.Meta, projectID, userID uint, role model.ProjectRole) error {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if err := requireCapability(project, actorID, permission.CanInvite); err != nil {
		return err
	}
	if userID == project.OwnerID {
		return nil
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	existing, existed := permission.GetMemberRole(project, userID)
	permission.AddMember(project, userID, role)

	if existed {
		err = s.db.WithContext(ctx).Model(&model.Member{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Update("role", role).Error
	} else {
		row := project.Members[len(project.Members)-1]
		err = s.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return err
	}

	action := model.ActionMemberAdd
	var before any
	if existed {
		action = model.ActionMemberRoleChange
		before = existing
	}
	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     action,
		EntityType: model.EntityProject,
		EntityID:   projectID,
		Before:     before,
		After:      map[string]any{"userId": userID, "role": role},
		Meta:       meta,
	})

	if !existed && s.invites != nil {
		s.invites.MemberAdded(project, &user, role)
	}
	return nil
}

// RemoveMember deletes the membership row if present; absence is a no-op.
// The owner's implicit membership cannot be removed. Requires canInvite.
func (s *ProjectService) RemoveMember(ctx context.Context, actorID uint, meta activity.Meta, projectID, userID uint) error {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if err := requireCapability(project, actorID, permission.CanInvite); err != nil {
		return err
	}
	if userID == project.OwnerID {
		return nil
	}

	_, existed := permission.GetMemberRole(project, userID)
	if !existed {
		return nil
	}
	permission.RemoveMember(project, userID)

	if err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.Member{}).Error; err != nil {
		return err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     model.ActionMemberRemove,
		EntityType: model.EntityProject,
		EntityID:   projectID,
		Before:     map[string]any{"userId": userID},
		Meta:       meta,
	})
	return nil
}

// UpdateMemberRole changes a stored role in place. A non-member target is a
// silent no-op, matching the membership model; callers that must report
// absence check membership first. Requires canInvite.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, actorID uint, meta activity.Meta, projectID, userID uint, newRole model.ProjectRole) error {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if err := requireCapability(project, actorID, permission.CanInvite); err != nil {
		return err
	}
	if userID == project.OwnerID {
		return nil
	}

	oldRole, existed := permission.GetMemberRole(project, userID)
	if !existed {
		return nil
	}
	permission.UpdateMemberRole(project, userID, newRole)

	if err := s.db.WithContext(ctx).Model(&model.Member{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", newRole).Error; err != nil {
		return err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     model.ActionMemberRoleChange,
		EntityType: model.EntityProject,
		EntityID:   projectID,
		Before:     map[string]any{"userId": userID, "role": oldRole},
		After:      map[string]any{"userId": userID, "role": newRole},
		Meta:       meta,
	})
	return nil
}

// ListMembers returns the explicit member rows with user info preloaded.
// Any member may read the list.
func (s *ProjectService) ListMembers(ctx context.Context, actorID, projectID uint) ([]model.Member, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}

	var members []model.Member
	err = s.db.WithContext(ctx).Preload("User").
		Where("project_id = ?", projectID).Order("joined_at ASC").Find(&members).Error
	return members, err
}
