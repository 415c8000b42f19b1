// 定义与数据库表字段对应的常量
// 由于 Gin 框架在进行参数校验时，如果给了 required 标签，则不能传入零值
// 所以在定义常量时，最好将零值排除在外，请使用 iota + 1 定义第一个常量
package model

// Role is the user role in the platform
type Role uint8

const (
	RoleUser  Role = iota + 1 // Regular user
	RoleAdmin                 // Platform administrator
)

// ProjectRole is the user role within a single project.
// Order matters: a larger value always implies a superset of capabilities.
type ProjectRole uint8

const (
	ProjectRoleViewer ProjectRole = iota + 1 // Read-only access
	ProjectRoleMember                        // Can manage tasks
	ProjectRoleAdmin                         // Can edit project and invite members
	ProjectRoleOwner                         // Full control, implicit for the project creator
)

func (r ProjectRole) String() string {
	switch r {
	case ProjectRoleViewer:
		return "viewer"
	case ProjectRoleMember:
		return "member"
	case ProjectRoleAdmin:
		return "admin"
	case ProjectRoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseProjectRole maps the wire name back to its role; the second
// return reports whether the name was recognized.
func ParseProjectRole(s string) (ProjectRole, bool) {
	switch s {
	case "viewer":
		return ProjectRoleViewer, true
	case "member":
		return ProjectRoleMember, true
	case "admin":
		return ProjectRoleAdmin, true
	case "owner":
		return ProjectRoleOwner, true
	default:
		return 0, false
	}
}

// User status
type Status uint8

const (
	StatusActive   Status = iota + 1 // Active status
	StatusInactive                   // Deactivated by an admin, login rejected
)

// Project status
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

// Task status. Stored as a free-form workflow key so a board can define
// extra columns; the constants below are the defaults every board gets.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task priority
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Project visibility
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"  // Members only
	VisibilityInternal Visibility = "internal" // Any signed-in user can read
)
