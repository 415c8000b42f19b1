package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
)

func newProject(ownerID uint, members ...model.Member) *model.Project {
	return &model.Project{
		Model:   gorm.Model{ID: 1},
		Name:    "demo",
		OwnerID: ownerID,
		Members: members,
	}
}

func TestIsMember(t *testing.T) {
	p := newProject(1, model.Member{UserID: 2, Role: model.ProjectRoleMember})

	assert.True(t, IsMember(p, 1), "owner is implicitly a member")
	assert.True(t, IsMember(p, 2))
	assert.False(t, IsMember(p, 3))
}

func TestGetMemberRole(t *testing.T) {
	p := newProject(1,
		model.Member{UserID: 2, Role: model.ProjectRoleAdmin},
		model.Member{UserID: 3, Role: model.ProjectRoleViewer},
	)

	role, ok := GetMemberRole(p, 1)
	require.True(t, ok)
	assert.Equal(t, model.ProjectRoleOwner, role, "owner role is implicit")

	role, ok = GetMemberRole(p, 2)
	require.True(t, ok)
	assert.Equal(t, model.ProjectRoleAdmin, role)

	_, ok = GetMemberRole(p, 99)
	assert.False(t, ok)
}

// TestCapabilityTable pins the full role x capability matrix.
func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role           model.ProjectRole
		canEdit        bool
		canDelete      bool
		canInvite      bool
		canManageTasks bool
	}{
		{model.ProjectRoleOwner, true, true, true, true},
		{model.ProjectRoleAdmin, true, false, true, true},
		{model.ProjectRoleMember, false, false, false, true},
		{model.ProjectRoleViewer, false, false, false, false},
	}

	for _, tc := range cases {
		p := newProject(1, model.Member{UserID: 2, Role: tc.role})
		if tc.role == model.ProjectRoleOwner {
			p = newProject(2)
		}
		assert.Equal(t, tc.canEdit, HasPermission(p, 2, CanEdit), "role %d canEdit", tc.role)
		assert.Equal(t, tc.canDelete, HasPermission(p, 2, CanDelete), "role %d canDelete", tc.role)
		assert.Equal(t, tc.canInvite, HasPermission(p, 2, CanInvite), "role %d canInvite", tc.role)
		assert.Equal(t, tc.canManageTasks, HasPermission(p, 2, CanManageTasks), "role %d canManageTasks", tc.role)
	}
}

func TestHasPermissionFailClosed(t *testing.T) {
	p := newProject(1)
	assert.False(t, HasPermission(p, 42, CanManageTasks), "non-member is denied")

	// Unknown role value in a member row is denied too.
	p = newProject(1, model.Member{UserID: 2, Role: model.ProjectRole(200)})
	assert.False(t, HasPermission(p, 2, CanManageTasks))
}

func TestAddMemberIdempotent(t *testing.T) {
	p := newProject(1)

	AddMember(p, 2, model.ProjectRoleMember)
	require.Len(t, p.Members, 1)
	assert.False(t, p.Members[0].JoinedAt.IsZero())

	AddMember(p, 2, model.ProjectRoleMember)
	require.Len(t, p.Members, 1, "adding twice keeps a single entry")

	AddMember(p, 2, model.ProjectRoleAdmin)
	require.Len(t, p.Members, 1)
	assert.Equal(t, model.ProjectRoleAdmin, p.Members[0].Role, "re-add overwrites the role")
}

func TestRemoveMember(t *testing.T) {
	p := newProject(1, model.Member{UserID: 2, Role: model.ProjectRoleMember})

	RemoveMember(p, 2)
	assert.Empty(t, p.Members)
	assert.False(t, IsMember(p, 2))

	// Absent user is a no-op.
	RemoveMember(p, 2)
	assert.Empty(t, p.Members)

	// The owner stays a member regardless of the explicit list.
	RemoveMember(p, 1)
	assert.True(t, IsMember(p, 1))
}

func TestUpdateMemberRoleNoopOnNonMember(t *testing.T) {
	p := newProject(1, model.Member{UserID: 2, Role: model.ProjectRoleMember})

	UpdateMemberRole(p, 99, model.ProjectRoleAdmin)
	require.Len(t, p.Members, 1, "no entry is created for a non-member")
	assert.Equal(t, model.ProjectRoleMember, p.Members[0].Role)

	UpdateMemberRole(p, 2, model.ProjectRoleViewer)
	assert.Equal(t, model.ProjectRoleViewer, p.Members[0].Role)
}
