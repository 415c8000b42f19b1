package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityAction tags a state-changing operation for the audit trail.
type ActivityAction string

const (
	ActionProjectCreate    ActivityAction = "project.create"
	ActionProjectUpdate    ActivityAction = "project.update"
	ActionProjectDelete    ActivityAction = "project.delete"
	ActionMemberAdd        ActivityAction = "member.add"
	ActionMemberRemove     ActivityAction = "member.remove"
	ActionMemberRoleChange ActivityAction = "member.role_change"
	ActionTaskCreate       ActivityAction = "task.create"
	ActionTaskUpdate       ActivityAction = "task.update"
	ActionTaskMove         ActivityAction = "task.move"
	ActionTaskArchive      ActivityAction = "task.archive"
	ActionTaskDelete       ActivityAction = "task.delete"
	ActionCommentCreate    ActivityAction = "comment.create"
	ActionCommentUpdate    ActivityAction = "comment.update"
	ActionCommentDelete    ActivityAction = "comment.delete"
)

// EntityType identifies which aggregate an activity entry refers to.
type EntityType string

const (
	EntityProject EntityType = "project"
	EntityTask    EntityType = "task"
	EntityComment EntityType = "comment"
)

// ActivityLog is an append-only audit record. Rows are never updated or
// deleted by the service layer; retention is handled by the cron sweeper.
type ActivityLog struct {
	gorm.Model
	ProjectID  uint           `gorm:"index;not null;comment:项目范围"`
	ActorID    uint           `gorm:"index;not null;comment:操作者"`
	Actor      User           `gorm:"foreignKey:ActorID"`
	Action     ActivityAction `gorm:"index;type:varchar(32);not null;comment:操作类型"`
	EntityType EntityType     `gorm:"type:varchar(16);not null;comment:实体类型"`
	EntityID   uint           `gorm:"not null;comment:实体 ID"`

	Before datatypes.JSON `gorm:"comment:变更前快照"`
	After  datatypes.JSON `gorm:"comment:变更后快照"`

	ClientIP  string `gorm:"type:varchar(64);comment:请求来源 IP"`
	UserAgent string `gorm:"type:varchar(256);comment:请求 UA"`
}
