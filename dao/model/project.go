package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a named workspace that owns its member list.
// The owner is always an implicit member with the highest privilege,
// even if no Member row exists for them.
type Project struct {
	gorm.Model
	Name        string        `gorm:"type:varchar(64);not null;comment:项目名"`
	Description *string       `gorm:"type:varchar(512);comment:项目描述"`
	Color       string        `gorm:"type:varchar(16);comment:颜色标签"`
	Status      ProjectStatus `gorm:"index:project_status;type:varchar(16);not null;comment:项目状态 (active, archived, completed)"`
	OwnerID     uint          `gorm:"not null;comment:创建者，创建后不可变更"`
	Owner       User          `gorm:"foreignKey:OwnerID"`

	Settings datatypes.JSONType[ProjectSettings] `gorm:"comment:项目设置"`

	Members []Member
	Tasks   []Task
}

// ProjectSettings is the per-project configuration block.
type ProjectSettings struct {
	Visibility        Visibility `json:"visibility"`
	InviteOnly        bool       `json:"inviteOnly"`
	DefaultTaskStatus TaskStatus `json:"defaultTaskStatus"`
	AllowedLabels     []string   `json:"allowedLabels,omitempty"`
	WebhookURL        string     `json:"webhookUrl,omitempty"`
}

// DefaultProjectSettings returns the settings a freshly created project gets.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		Visibility:        VisibilityPrivate,
		InviteOnly:        true,
		DefaultTaskStatus: TaskPending,
	}
}

// Member is a (user, role) pairing owned by a project.
// At most one row per (project, user).
type Member struct {
	gorm.Model
	ProjectID uint        `gorm:"uniqueIndex:idx_project_user;not null"`
	UserID    uint        `gorm:"uniqueIndex:idx_project_user;not null"`
	User      User        `gorm:"foreignKey:UserID"`
	Role      ProjectRole `gorm:"not null;comment:项目内角色 (viewer, member, admin, owner)"`
	JoinedAt  time.Time   `gorm:"not null;comment:加入时间"`
}
