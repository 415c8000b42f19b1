package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/permission"
)

type TaskService struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

func NewTaskService(db *gorm.DB, recorder *activity.Recorder) *TaskService {
	return &TaskService{db: db, recorder: recorder}
}

func (s *TaskService) loadTask(ctx context.Context, taskID uint) (*model.Task, *model.Project, error) {
	var task model.Task
	err := s.db.WithContext(ctx).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	project, err := loadProject(ctx, s.db, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return &task, project, nil
}

type CreateTaskInput struct {
	Title          string
	Description    string
	Status         model.TaskStatus
	Priority       model.TaskPriority
	AssigneeID     *uint
	DueDate        *time.Time
	Labels         []string
	EstimatedHours float64
	Subtasks       []model.Subtask
}

func (s *TaskService) validate(project *model.Project, title string, labels []string) error {
	verr := &ValidationError{}
	if title == "" {
		verr.add("title", "must not be empty")
	}
	allowed := project.Settings.Data().AllowedLabels
	if len(allowed) > 0 {
		for _, l := range labels {
			if !lo.Contains(allowed, l) {
				verr.add("labels", "label not allowed: "+l)
			}
		}
	}
	return verr.orNil()
}

// Create appends a task to the project's board. The position is the
// project-global max plus one, regardless of which status column the task
// lands in, so a fresh task always sorts last. Requires canManageTasks.
func (s *TaskService) Create(ctx context.Context, actorID uint, meta activity.Meta, projectID uint, input *CreateTaskInput) (*model.Task, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}
	if err := s.validate(project, input.Title, input.Labels); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil && !permission.IsMember(project, *input.AssigneeID) {
		return nil, ErrInvalidAssignee
	}

	status := input.Status
	if status == "" {
		status = project.Settings.Data().DefaultTaskStatus
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	// Position is the project-global max plus one; an empty board starts
	// at zero.
	var maxPos sql.NullInt64
	row := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ?", projectID).
		Select("MAX(position)").Row()
	if err := row.Scan(&maxPos); err != nil {
		return nil, err
	}
	position := 0
	if maxPos.Valid {
		position = int(maxPos.Int64) + 1
	}

	task := model.Task{
		ProjectID:      projectID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         status,
		Priority:       priority,
		Position:       position,
		CreatorID:      actorID,
		AssigneeID:     input.AssigneeID,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		Labels:         datatypes.NewJSONSlice(input.Labels),
		Subtasks:       datatypes.NewJSONType(input.Subtasks),
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     model.ActionTaskCreate,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		After:      &task,
		Meta:       meta,
	})
	return &task, nil
}

// Get returns a task readable by any project member.
func (s *TaskService) Get(ctx context.Context, actorID, taskID uint) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Creator").Preload("Assignee").First(task, taskID).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// TaskFilter narrows List results. Nil / zero values mean "no filter".
type TaskFilter struct {
	Status     *model.TaskStatus
	Priority   *model.TaskPriority
	AssigneeID *uint
	Label      *string
	Archived   *bool
	Search     *string
}

// List pages through a project's tasks. Any member may read.
func (s *TaskService) List(ctx context.Context, actorID, projectID uint, filter *TaskFilter, offset, limit int) ([]model.Task, int64, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Model(&model.Task{}).Where("project_id = ?", projectID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Label != nil {
		// Labels are a JSON array of strings; match the quoted element.
		q = q.Where("labels LIKE ?", `%"`+*filter.Label+`"%`)
	}
	if filter.Archived != nil {
		q = q.Where("is_archived = ?", *filter.Archived)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err = q.Preload("Assignee").Order("position ASC, created_at ASC").
		Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, count, err
}

// Board returns all live tasks of a project in rendering order: position
// ascending, ties broken by creation order. Duplicate positions are legal
// (moves store the caller's value verbatim), so the tiebreak keeps the
// board stable. Handlers group the slice into status columns.
func (s *TaskService) Board(ctx context.Context, actorID, projectID uint) ([]model.Task, error) {
	project, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}

	var tasks []model.Task
	err = s.db.WithContext(ctx).Preload("Assignee").
		Where("project_id = ? AND is_archived = ?", projectID, false).
		Order("position ASC, created_at ASC").Find(&tasks).Error
	return tasks, err
}

type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *model.TaskStatus
	Priority       *model.TaskPriority
	Position       *int
	AssigneeID     *uint
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	Labels         []string
	EstimatedHours *float64
	ActualHours    *float64
}

// Update mutates task fields. Requires canManageTasks. Status and position
// are independent fields written together without any transition rule or
// renormalization. A new assignee must be a member at write time; existing
// assignments are never retroactively cleared.
func (s *TaskService) Update(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, input *UpdateTaskInput) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	before := *task
	if input.Title != nil {
		if *input.Title == "" {
			return nil, newValidationError("title", "must not be empty")
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.Position != nil {
		task.Position = *input.Position
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if !permission.IsMember(project, *input.AssigneeID) {
			return nil, ErrInvalidAssignee
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Labels != nil {
		if err := s.validate(project, task.Title, input.Labels); err != nil {
			return nil, err
		}
		task.Labels = datatypes.NewJSONSlice(input.Labels)
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		task.ActualHours = *input.ActualHours
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskUpdate,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		Before:     &before,
		After:      task,
		Meta:       meta,
	})
	return task, nil
}

// Move stores the caller-supplied position verbatim: no renormalization and
// no shifting of sibling positions, so collisions are possible and the
// board's tiebreak resolves them. Requires canManageTasks.
func (s *TaskService) Move(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, status model.TaskStatus, position int) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	before := *task
	task.Status = status
	task.Position = position
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskMove,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		Before:     map[string]any{"status": before.Status, "position": before.Position},
		After:      map[string]any{"status": status, "position": position},
		Meta:       meta,
	})
	return task, nil
}

// SetArchived flips the soft archive flag. Requires canManageTasks.
func (s *TaskService) SetArchived(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, archived bool) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	task.IsArchived = archived
	if err := s.db.WithContext(ctx).Model(task).Update("is_archived", archived).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskArchive,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		After:      map[string]any{"isArchived": archived},
		Meta:       meta,
	})
	return task, nil
}

// Delete removes a task and its comments. Requires canManageTasks.
func (s *TaskService) Delete(ctx context.Context, actorID uint, meta activity.Meta, taskID uint) error {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, taskID).Error
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskDelete,
		EntityType: model.EntityTask,
		EntityID:   taskID,
		Before:     task,
		Meta:       meta,
	})
	return nil
}

// AddSubtask appends a checklist item. Requires canManageTasks.
func (s *TaskService) AddSubtask(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, title string) (*model.Task, error) {
	if title == "" {
		return nil, newValidationError("title", "must not be empty")
	}
	return s.mutateSubtasks(ctx, actorID, meta, taskID, func(subtasks []model.Subtask) ([]model.Subtask, error) {
		return append(subtasks, model.Subtask{Title: title}), nil
	})
}

// ToggleSubtask flips the completed flag of the item at index.
func (s *TaskService) ToggleSubtask(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, index int) (*model.Task, error) {
	return s.mutateSubtasks(ctx, actorID, meta, taskID, func(subtasks []model.Subtask) ([]model.Subtask, error) {
		if index < 0 || index >= len(subtasks) {
			return nil, newValidationError("index", "out of range")
		}
		subtasks[index].Completed = !subtasks[index].Completed
		return subtasks, nil
	})
}

// RemoveSubtask deletes the item at index.
func (s *TaskService) RemoveSubtask(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, index int) (*model.Task, error) {
	return s.mutateSubtasks(ctx, actorID, meta, taskID, func(subtasks []model.Subtask) ([]model.Subtask, error) {
		if index < 0 || index >= len(subtasks) {
			return nil, newValidationError("index", "out of range")
		}
		return append(subtasks[:index], subtasks[index+1:]...), nil
	})
}

func (s *TaskService) mutateSubtasks(ctx context.Context, actorID uint, meta activity.Meta, taskID uint,
	mutate func([]model.Subtask) ([]model.Subtask, error)) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	before := task.Subtasks.Data()
	after, err := mutate(task.Subtasks.Data())
	if err != nil {
		return nil, err
	}
	task.Subtasks = datatypes.NewJSONType(after)
	if err := s.db.WithContext(ctx).Model(task).Update("subtasks", task.Subtasks).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskUpdate,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		Before:     before,
		After:      after,
		Meta:       meta,
	})
	return task, nil
}

// SetWatching adds or removes the caller from the watcher list. Any member
// may watch, viewers included.
func (s *TaskService) SetWatching(ctx context.Context, actorID uint, taskID uint, watching bool) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(project, actorID); err != nil {
		return nil, err
	}

	watchers := []uint(task.Watchers)
	if watching {
		if !lo.Contains(watchers, actorID) {
			watchers = append(watchers, actorID)
		}
	} else {
		watchers = lo.Without(watchers, actorID)
	}
	task.Watchers = datatypes.NewJSONSlice(watchers)
	if err := s.db.WithContext(ctx).Model(task).Update("watchers", task.Watchers).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// AddAttachment appends attachment metadata. Requires canManageTasks.
func (s *TaskService) AddAttachment(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, att *model.Attachment) (*model.Task, error) {
	if att.Name == "" || att.URL == "" {
		return nil, newValidationError("attachment", "name and url are required")
	}
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	att.UploaderID = actorID
	att.UploadedAt = time.Now()
	attachments := append(task.Attachments.Data(), *att)
	task.Attachments = datatypes.NewJSONType(attachments)
	if err := s.db.WithContext(ctx).Model(task).Update("attachments", task.Attachments).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskUpdate,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		After:      att,
		Meta:       meta,
	})
	return task, nil
}

// RemoveAttachment deletes the metadata entry at index. Requires
// canManageTasks.
func (s *TaskService) RemoveAttachment(ctx context.Context, actorID uint, meta activity.Meta, taskID uint, index int) (*model.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(project, actorID, permission.CanManageTasks); err != nil {
		return nil, err
	}

	attachments := task.Attachments.Data()
	if index < 0 || index >= len(attachments) {
		return nil, newValidationError("index", "out of range")
	}
	removed := attachments[index]
	attachments = append(attachments[:index], attachments[index+1:]...)
	task.Attachments = datatypes.NewJSONType(attachments)
	if err := s.db.WithContext(ctx).Model(task).Update("attachments", task.Attachments).Error; err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &activity.Entry{
		ProjectID:  task.ProjectID,
		ActorID:    actorID,
		Action:     model.ActionTaskUpdate,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		Before:     &removed,
		Meta:       meta,
	})
	return task, nil
}

// ListAssigned pages through the caller's open assignments across all
// projects, soonest due date first.
func (s *TaskService) ListAssigned(ctx context.Context, userID uint, offset, limit int) ([]model.Task, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("assignee_id = ? AND is_archived = ?", userID, false)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := q.Preload("Project").
		Order("due_date ASC NULLS LAST, id DESC").
		Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, count, err
}

// saveTask writes the full row; concurrent writers are last-write-wins.
func (s *TaskService) saveTask(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Omit("Project", "Creator", "Assignee", "Comments").Save(task).Error
}
