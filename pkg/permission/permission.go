// Package permission answers, for a given (project, user), whether the user
// may perform a class of action, and provides the primitives that mutate the
// member list. Everything here is pure: callers load the project (with its
// member list) first and persist whatever comes back.
package permission

import (
	"time"

	"github.com/samber/lo"

	"github.com/raids-lab/taskboard/dao/model"
)

// Capability is a named permission checked against a project role.
type Capability uint8

const (
	CanEdit Capability = iota + 1
	CanDelete
	CanInvite
	CanManageTasks
)

// capabilities is the fixed role -> capability table. It is intentionally
// data-driven so a per-tenant table could replace it without touching any
// call site.
var capabilities = map[model.ProjectRole]map[Capability]bool{
	model.ProjectRoleOwner: {
		CanEdit:        true,
		CanDelete:      true,
		CanInvite:      true,
		CanManageTasks: true,
	},
	model.ProjectRoleAdmin: {
		CanEdit:        true,
		CanInvite:      true,
		CanManageTasks: true,
	},
	model.ProjectRoleMember: {
		CanManageTasks: true,
	},
	model.ProjectRoleViewer: {},
}

// IsMember reports whether the user is the project owner or appears in the
// member list.
func IsMember(project *model.Project, userID uint) bool {
	if project.OwnerID == userID {
		return true
	}
	return lo.ContainsBy(project.Members, func(m model.Member) bool {
		return m.UserID == userID
	})
}

// GetMemberRole returns the user's role in the project. The owner gets
// ProjectRoleOwner even without an explicit member row. The second return
// is false when the user is not a member at all.
func GetMemberRole(project *model.Project, userID uint) (model.ProjectRole, bool) {
	if project.OwnerID == userID {
		return model.ProjectRoleOwner, true
	}
	m, ok := lo.Find(project.Members, func(m model.Member) bool {
		return m.UserID == userID
	})
	if !ok {
		return 0, false
	}
	return m.Role, true
}

// HasPermission consults the capability table for the user's role.
// Unknown users and unknown roles are denied.
func HasPermission(project *model.Project, userID uint, capability Capability) bool {
	role, ok := GetMemberRole(project, userID)
	if !ok {
		return false
	}
	return capabilities[role][capability]
}

// AddMember upserts a member entry. If the user is already present the role
// is overwritten in place, otherwise a new entry is appended with JoinedAt
// set to now. Whether the caller is allowed to invite is checked one level
// up, not here.
func AddMember(project *model.Project, userID uint, role model.ProjectRole) {
	for i := range project.Members {
		if project.Members[i].UserID == userID {
			project.Members[i].Role = role
			return
		}
	}
	project.Members = append(project.Members, model.Member{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	})
}

// RemoveMember removes the entry for the user if present; absent users are
// a no-op. Note the owner's implicit membership cannot be removed here.
func RemoveMember(project *model.Project, userID uint) {
	project.Members = lo.Reject(project.Members, func(m model.Member, _ int) bool {
		return m.UserID == userID
	})
}

// UpdateMemberRole replaces the role in place. A missing user is a silent
// no-op; callers that must report absence should check GetMemberRole first.
func UpdateMemberRole(project *model.Project, userID uint, newRole model.ProjectRole) {
	for i := range project.Members {
		if project.Members[i].UserID == userID {
			project.Members[i].Role = newRole
			return
		}
	}
}
