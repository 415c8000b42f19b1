package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the basic identity entity of the system
type User struct {
	gorm.Model
	Email    string  `gorm:"uniqueIndex;type:varchar(128);not null;comment:邮箱"`
	Name     string  `gorm:"type:varchar(64);not null;comment:显示名称"`
	Password string  `gorm:"type:varchar(128);not null;comment:密码哈希"`
	Role     Role    `gorm:"not null;comment:平台角色 (user, admin)"`
	Status   Status  `gorm:"index:user_status;not null;comment:用户状态 (active, inactive)"`
	Avatar   *string `gorm:"type:varchar(256);comment:头像"`

	Attributes datatypes.JSONType[UserAttribute] `gorm:"comment:用户额外属性"`

	Members []Member
}

// UserAttribute holds profile fields that do not need their own columns.
type UserAttribute struct {
	Bio      string `json:"bio,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Locale   string `json:"locale,omitempty"`
}
