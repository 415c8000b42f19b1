package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Comment belongs to a task. Threading is single level: a reply's parent
// must itself be a top-level comment. Deletion is soft so replies keep a
// valid anchor.
type Comment struct {
	gorm.Model
	TaskID   uint  `gorm:"index;not null;comment:所属任务"`
	Task     Task  `gorm:"foreignKey:TaskID"`
	AuthorID uint  `gorm:"not null;comment:作者，仅作者可编辑或删除"`
	Author   User  `gorm:"foreignKey:AuthorID"`
	ParentID *uint `gorm:"index;comment:父评论（单层回复）"`

	Content   string `gorm:"type:text;not null;comment:内容"`
	IsEdited  bool   `gorm:"not null;default:false;comment:是否编辑过"`
	IsDeleted bool   `gorm:"index;not null;default:false;comment:软删除标记"`

	Mentions  datatypes.JSONSlice[uint]           `gorm:"comment:提及的用户"`
	Reactions datatypes.JSONType[map[string][]uint] `gorm:"comment:表情回应 emoji -> 用户集合"`
}
