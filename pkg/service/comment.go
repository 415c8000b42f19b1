package service

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/permission"
)

type CommentService struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

func NewCommentService(db *gorm.DB, recorder *activity.Recorder) *CommentService {
	return &CommentService{db: db, recorder: recorder}
}

func (s *CommentService) loadComment(ctx context.Context, commentID uint) (*model.Comment, *model.Project, error) {
	var comment model.Comment
	err := s.db.WithContext(ctx).First(&comment, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	var task model.Task
	if err := s.db.WithContext(ctx).First(&task, comment.TaskID).Error; err != nil {
		return nil, nil, err
	}
	project, err := loadProject(ctx, s.db, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return &comment, project, nil
}

type CreateCommentInput struct {
	Content  string
	ParentID *uint
	Mentions []uint
}

// Create posts a comment on a task. Any project member may comment.
// Threading is single level: the parent must be a top-level comment on the
// same task.
func (s *CommentService) Create(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, input *CreateCommentInput) (*model.Comment, error) {
	var task model.Task
	err := s.db.WithContext(ctx).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, s.db, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}
	if input.Content == "" {
		return nil, newValidationError("content", "must not be empty")
	}
	if input.ParentID != nil {
		var parent model.Comment
		if err := s.db.WithContext(ctx).First(&parent, *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, newValidationError("parentId", "parent comment not found")
			}
			return nil, err
		}
		if parent.TaskID != taskID {
			return nil, newValidationError("parentId", "parent belongs to another task")
		}
		if parent.ParentID != nil {
			return nil, newValidationError("parentId", "replies cannot be nested")
		}
	}
	mentions := lo.Filter(lo.Uniq(input.Mentions), func(id uint, _ int) bool {
		return permission.IsMember(project, id)
	})

	comment := model.Comment{
		TaskID:   taskID,
		AuthorID: actorID,
		ParentID: input.ParentID,
		Content:  input.Content,
		Mentions: datatypes.NewJSONSlice(mentions),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionCommentCreate,
		EntityType: model.EntityComment,
		EntityID:   comment.ID,
		After:      &comment,
		Meta:       meta,
	})
	return &comment, nil
}

// List pages through a task's comments, oldest first, replies included.
// Any member may read.
func (s *CommentService) List(ctx context.Context, actorID, taskID uint, offset, limit int) ([]model.Comment, int64, error) {
	var task model.Task
	err := s.db.WithContext(ctx).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	project, err := loadProject(ctx, s.db, task.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Model(&model.Comment{}).Where("task_id = ?", taskID)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var comments []model.Comment
	err = q.Preload("Author").Order("id ASC").Offset(offset).Limit(limit).Find(&comments).Error
	return comments, count, err
}

// Update edits the comment body. Only the author may edit, regardless of
// project role.
func (s *CommentService) Update(ctx context.Context, actorID uint, meta activity.Meta, commentID uint, content string) (*model.Comment, error) {
	comment, project, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, ErrInsufficientPermissions
	}
	if content == "" {
		return nil, newValidationError("content", "must not be empty")
	}

	before := comment.Content
	comment.Content = content
	comment.IsEdited = true
	err = s.db.WithContext(ctx).Model(comment).
		Updates(map[string]any{"content": content, "is_edited": true}).Error
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionCommentUpdate,
		EntityType: model.EntityComment,
		EntityID:   comment.ID,
		Before:     before,
		After:      content,
		Meta:       meta,
	})
	return comment, nil
}

// Delete soft-deletes the comment so replies keep their anchor. Only the
// author may delete.
func (s *CommentService) Delete(ctx context.Context, actorID uint, meta activity.Meta, commentID uint) error {
	comment, project, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return ErrInsufficientPermissions
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("is_deleted", true).Error; err != nil {
		return err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  project.ID,
		ActorID:    actorID,
		Action:     model.ActionCommentDelete,
		EntityType: model.EntityComment,
		EntityID:   comment.ID,
		Before:     comment,
		Meta:       meta,
	})
	return nil
}

// React adds the caller to the emoji's reactor set. Any member may react;
// reacting twice with the same emoji is a no-op.
func (s *CommentService) React(ctx context.Context, actorID uint, commentID uint, emoji string) (*model.Comment, error) {
	if emoji == "" {
		return nil, newValidationError("emoji", "must not be empty")
	}
	return s.mutateReactions(ctx, actorID, commentID, func(reactions map[string][]uint) map[string][]uint {
		if !lo.Contains(reactions[emoji], actorID) {
			reactions[emoji] = append(reactions[emoji], actorID)
		}
		return reactions
	})
}

// Unreact removes the caller from the emoji's reactor set; empty sets are
// dropped.
func (s *CommentService) Unreact(ctx context.Context, actorID uint, commentID uint, emoji string) (*model.Comment, error) {
	return s.mutateReactions(ctx, actorID, commentID, func(reactions map[string][]uint) map[string][]uint {
		reactions[emoji] = lo.Without(reactions[emoji], actorID)
		if len(reactions[emoji]) == 0 {
			delete(reactions, emoji)
		}
		return reactions
	})
}

func (s *CommentService) mutateReactions(ctx context.Context, actorID, commentID uint,
	mutate func(map[string][]uint) map[string][]uint) (*model.Comment, error) {
	comment, project, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}

	reactions := comment.Reactions.Data()
	if reactions == nil {
		reactions = map[string][]uint{}
	}
	comment.Reactions = datatypes.NewJSONType(mutate(reactions))
	if err := s.db.WithContext(ctx).Model(comment).Update("reactions", comment.Reactions).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
