package squeeze

// RoleLevel is the hierarchical role carried in a token's app_metadata.
type RoleLevel string

const (
	// RoleUser is the minimal authenticated role.
	RoleUser RoleLevel = "user"
	// RoleTeacher grants access to analysis-producing endpoints.
	RoleTeacher RoleLevel = "teacher"
	// RoleAdmin is the highest role.
	RoleAdmin RoleLevel = "admin"
)

// roleHierarchy assigns each role its integer level. Comparison is always
// done on these levels, never on the role strings.
var roleHierarchy = map[RoleLevel]int{
	RoleUser:    1,
	RoleTeacher: 2,
	RoleAdmin:   3,
}

// IsValid checks if the role is one of the predefined valid roles.
func (r RoleLevel) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// Level returns the role's integer level, or 0 for unknown roles.
func (r RoleLevel) Level() int {
	return roleHierarchy[r]
}

// IsAtLeast checks if this role meets the minimum required level. An unknown
// required role never passes; an unknown subject role compares as level 0.
func (r RoleLevel) IsAtLeast(minRole RoleLevel) bool {
	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return roleHierarchy[r] >= minLevel
}

// AllRoles returns the predefined roles in hierarchical order.
func AllRoles() []RoleLevel {
	return []RoleLevel{RoleUser, RoleTeacher, RoleAdmin}
}

// ParseRole safely parses a string into a RoleLevel.
func ParseRole(roleStr string) (RoleLevel, bool) {
	role := RoleLevel(roleStr)
	return role, role.IsValid()
}
