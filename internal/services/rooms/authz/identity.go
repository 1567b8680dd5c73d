package authz

import (
	"strings"

	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
)

// Role is the caller's role in the surrounding identity system.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleAdmin     Role = "admin"
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes an identity role label. Unknown labels are reported
// as not ok.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTeacher:
		return RoleTeacher, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleAssistant:
		return RoleAssistant, true
	default:
		return "", false
	}
}

// CallerIdentity is the authenticated caller of a room operation.
type CallerIdentity struct {
	ID   string
	Name string
	Role Role
}

// Authenticated reports whether the identity names a user.
func (c CallerIdentity) Authenticated() bool {
	return strings.TrimSpace(c.ID) != ""
}

// IsStaff reports whether the caller holds teacher or admin in the identity
// system.
func (c CallerIdentity) IsStaff() bool {
	return c.Role == RoleTeacher || c.Role == RoleAdmin
}

// DisplayName returns the caller name, falling back to the id.
func (c CallerIdentity) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.ID
}

// FromContext returns the caller identity stored by the transport boundary.
// Unknown roles resolve to student, the least privileged role.
func FromContext(identity requestctx.Identity) CallerIdentity {
	role, ok := ParseRole(identity.Role)
	if !ok {
		role = RoleStudent
	}
	return CallerIdentity{ID: identity.UserID, Name: identity.Name, Role: role}
}
