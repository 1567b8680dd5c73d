package authz

import (
	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

// Capability names one guarded room action.
type Capability string

const (
	// CapabilityRead covers list rooms, history and groups reads.
	CapabilityRead Capability = "read"
	// CapabilityCreateRoom covers room creation.
	CapabilityCreateRoom Capability = "create_room"
	// CapabilityManageRoom covers join approval, membership and breakout
	// changes and closing a room.
	CapabilityManageRoom Capability = "manage_room"
	// CapabilityEditNotes covers adding and removing room notes.
	CapabilityEditNotes Capability = "edit_notes"
	// CapabilityPostMessage covers appending to the chat log.
	CapabilityPostMessage Capability = "post_message"
	// CapabilityShareScreen covers screen share registration.
	CapabilityShareScreen Capability = "share_screen"
)

// Reason codes explain a decision.
const (
	ReasonAllowOwner             = "AUTHZ_ALLOW_OWNER"
	ReasonAllowStaffRole         = "AUTHZ_ALLOW_STAFF_ROLE"
	ReasonAllowTeacherMember     = "AUTHZ_ALLOW_TEACHER_MEMBER"
	ReasonAllowApprovedMember    = "AUTHZ_ALLOW_APPROVED_MEMBER"
	ReasonAllowAssistant         = "AUTHZ_ALLOW_ASSISTANT"
	ReasonAllowAuthenticated     = "AUTHZ_ALLOW_AUTHENTICATED"
	ReasonDenyUnauthenticated    = "AUTHZ_DENY_UNAUTHENTICATED"
	ReasonDenyRoleRequired       = "AUTHZ_DENY_ROLE_REQUIRED"
	ReasonDenyMembershipRequired = "AUTHZ_DENY_MEMBERSHIP_REQUIRED"
	ReasonDenyUnknownCapability  = "AUTHZ_DENY_UNKNOWN_CAPABILITY"
)

// Subject is the room-side context a decision is evaluated against.
type Subject struct {
	// OwnerID is the room owner identity; empty for room creation.
	OwnerID string
	// Member is the caller's membership row in the room, when one exists.
	Member *domain.Member
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed    bool
	ReasonCode string
}

func allow(reason string) Decision { return Decision{Allowed: true, ReasonCode: reason} }
func deny(reason string) Decision  { return Decision{ReasonCode: reason} }

// Can evaluates capability for caller against subject.
func Can(caller CallerIdentity, capability Capability, subject Subject) Decision {
	if !caller.Authenticated() {
		return deny(ReasonDenyUnauthenticated)
	}
	isOwner := subject.OwnerID != "" && subject.OwnerID == caller.ID
	approved := subject.Member != nil && subject.Member.Approved && subject.Member.UserID == caller.ID

	switch capability {
	case CapabilityRead, CapabilityShareScreen:
		return allow(ReasonAllowAuthenticated)
	case CapabilityCreateRoom:
		if caller.IsStaff() {
			return allow(ReasonAllowStaffRole)
		}
		return deny(ReasonDenyRoleRequired)
	case CapabilityManageRoom:
		if isOwner {
			return allow(ReasonAllowOwner)
		}
		if caller.IsStaff() {
			return allow(ReasonAllowStaffRole)
		}
		return deny(ReasonDenyRoleRequired)
	case CapabilityEditNotes:
		if isOwner {
			return allow(ReasonAllowOwner)
		}
		if approved && subject.Member.Role == domain.MemberRoleTeacher {
			return allow(ReasonAllowTeacherMember)
		}
		return deny(ReasonDenyRoleRequired)
	case CapabilityPostMessage:
		if caller.Role == RoleAssistant {
			return allow(ReasonAllowAssistant)
		}
		if approved {
			return allow(ReasonAllowApprovedMember)
		}
		return deny(ReasonDenyMembershipRequired)
	default:
		return deny(ReasonDenyUnknownCapability)
	}
}

// Require returns nil when caller may use capability, or a platform error
// whose code matches the denial.
func Require(caller CallerIdentity, capability Capability, subject Subject) error {
	decision := Can(caller, capability, subject)
	if decision.Allowed {
		return nil
	}
	switch decision.ReasonCode {
	case ReasonDenyUnauthenticated:
		return apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	case ReasonDenyMembershipRequired:
		return apperrors.WithMetadata(apperrors.CodeMembershipRequired, "approved membership required",
			map[string]string{"Capability": string(capability), "Reason": decision.ReasonCode})
	default:
		return apperrors.WithMetadata(apperrors.CodeForbidden, "caller lacks "+string(capability),
			map[string]string{"Capability": string(capability), "Reason": decision.ReasonCode})
	}
}
