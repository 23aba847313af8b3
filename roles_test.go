package squeeze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	squeeze "github.com/rungchan2/squeeze-backend"
)

func TestRoleHierarchy(t *testing.T) {
	tests := []struct {
		role     squeeze.RoleLevel
		min      squeeze.RoleLevel
		expected bool
	}{
		{squeeze.RoleUser, squeeze.RoleUser, true},
		{squeeze.RoleUser, squeeze.RoleTeacher, false},
		{squeeze.RoleUser, squeeze.RoleAdmin, false},
		{squeeze.RoleTeacher, squeeze.RoleUser, true},
		{squeeze.RoleTeacher, squeeze.RoleTeacher, true},
		{squeeze.RoleTeacher, squeeze.RoleAdmin, false},
		{squeeze.RoleAdmin, squeeze.RoleUser, true},
		{squeeze.RoleAdmin, squeeze.RoleTeacher, true},
		{squeeze.RoleAdmin, squeeze.RoleAdmin, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.role.IsAtLeast(tt.min),
			"%s.IsAtLeast(%s)", tt.role, tt.min)
	}
}

func TestRoleIsAtLeastUnknownRoles(t *testing.T) {
	// Unknown subject role compares as level zero.
	assert.False(t, squeeze.RoleLevel("superuser").IsAtLeast(squeeze.RoleUser))
	// Unknown required role never passes, even for admin.
	assert.False(t, squeeze.RoleAdmin.IsAtLeast(squeeze.RoleLevel("owner")))
	assert.False(t, squeeze.RoleAdmin.IsAtLeast(squeeze.RoleLevel("")))
}

func TestRoleLevels(t *testing.T) {
	assert.Equal(t, 1, squeeze.RoleUser.Level())
	assert.Equal(t, 2, squeeze.RoleTeacher.Level())
	assert.Equal(t, 3, squeeze.RoleAdmin.Level())
	assert.Equal(t, 0, squeeze.RoleLevel("other").Level())
}

func TestParseRole(t *testing.T) {
	role, ok := squeeze.ParseRole("teacher")
	assert.True(t, ok)
	assert.Equal(t, squeeze.RoleTeacher, role)

	_, ok = squeeze.ParseRole("TEACHER")
	assert.False(t, ok)

	_, ok = squeeze.ParseRole("")
	assert.False(t, ok)
}

func TestAllRoles(t *testing.T) {
	roles := squeeze.AllRoles()
	assert.Equal(t, []squeeze.RoleLevel{squeeze.RoleUser, squeeze.RoleTeacher, squeeze.RoleAdmin}, roles)
}
