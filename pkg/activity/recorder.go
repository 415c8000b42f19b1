// Package activity maintains the append-only audit trail. Writes are
// best-effort: a mutation must never fail because its audit entry could
// not be written, so Record logs and swallows storage errors.
package activity

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/dao/model"
)

type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Meta carries request metadata into the audit entry.
type Meta struct {
	ClientIP  string
	UserAgent string
}

// Entry describes one state-changing action. Before and After are optional
// snapshots of the mutated entity.
type Entry struct {
	ProjectID  uint
	ActorID    uint
	Action     model.ActivityAction
	EntityType model.EntityType
	EntityID   uint
	Before     any
	After      any
	Meta       Meta
}

// Record appends one audit entry. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e *Entry) {
	row := model.ActivityLog{
		ProjectID:  e.ProjectID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Before:     marshalSnapshot(e.Before),
		After:      marshalSnapshot(e.After),
		ClientIP:   e.Meta.ClientIP,
		UserAgent:  e.Meta.UserAgent,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		klog.Errorf("record activity %s on %s/%d failed: %v", e.Action, e.EntityType, e.EntityID, err)
	}
}

func marshalSnapshot(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("marshal activity snapshot failed: %v", err)
		return nil
	}
	return datatypes.JSON(data)
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	EntityType model.EntityType
	EntityID   uint
	Action     model.ActivityAction
}

// List returns a page of a project's activity, newest first.
func (r *Recorder) List(ctx context.Context, projectID uint, filter ListFilter, offset, limit int) ([]model.ActivityLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("project_id = ?", projectID)
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.ActivityLog
	err := q.Preload("Actor").Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, count, err
}
