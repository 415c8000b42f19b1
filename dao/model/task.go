package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task belongs to exactly one project; the parent reference never changes.
// Position is a project-global ordering key: creation appends max+1 across
// all statuses, explicit moves store the caller-supplied value verbatim.
// Board queries sort by (position, created_at) so rendering stays
// deterministic even when positions collide.
type Task struct {
	gorm.Model
	ProjectID   uint         `gorm:"index;not null;comment:所属项目，创建后不可变更"`
	Project     Project      `gorm:"foreignKey:ProjectID"`
	Title       string       `gorm:"type:varchar(256);not null;comment:标题"`
	Description string       `gorm:"type:text;comment:描述"`
	Status      TaskStatus   `gorm:"index:task_status;type:varchar(32);not null;comment:任务状态"`
	Priority    TaskPriority `gorm:"type:varchar(16);not null;comment:优先级 (low, medium, high, urgent)"`
	Position    int          `gorm:"not null;comment:看板排序键"`

	CreatorID  uint  `gorm:"not null;comment:创建者，创建后不可变更"`
	Creator    User  `gorm:"foreignKey:CreatorID"`
	AssigneeID *uint `gorm:"index;comment:经办人，必须是项目成员"`
	Assignee   *User `gorm:"foreignKey:AssigneeID"`

	DueDate        *time.Time `gorm:"comment:截止时间"`
	EstimatedHours float64    `gorm:"comment:预估工时"`
	ActualHours    float64    `gorm:"comment:实际工时"`
	IsArchived     bool       `gorm:"index;not null;default:false;comment:是否归档"`

	Labels      datatypes.JSONSlice[string]     `gorm:"comment:标签"`
	Subtasks    datatypes.JSONType[[]Subtask]   `gorm:"comment:子任务列表"`
	Watchers    datatypes.JSONSlice[uint]       `gorm:"comment:关注者"`
	Attachments datatypes.JSONType[[]Attachment] `gorm:"comment:附件元信息"`

	Comments []Comment
}

// Subtask is a checklist item without independent identity.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment stores file metadata only; blob storage is external.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploaderID uint      `json:"uploaderId"`
	UploadedAt time.Time `json:"uploadedAt"`
}
