package authz

import (
	"testing"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

func TestCan(t *testing.T) {
	owner := CallerIdentity{ID: "t-owner", Role: RoleTeacher}
	otherTeacher := CallerIdentity{ID: "t-2", Role: RoleTeacher}
	admin := CallerIdentity{ID: "a-1", Role: RoleAdmin}
	student := CallerIdentity{ID: "s-1", Role: RoleStudent}
	assistant := CallerIdentity{ID: "bot", Role: RoleAssistant}
	anonymous := CallerIdentity{}

	approvedStudent := &domain.Member{UserID: "s-1", Role: domain.MemberRoleStudent, Approved: true}
	pendingStudent := &domain.Member{UserID: "s-1", Role: domain.MemberRoleStudent}
	teacherMember := &domain.Member{UserID: "s-1", Role: domain.MemberRoleTeacher, Approved: true}

	tests := []struct {
		name       string
		caller     CallerIdentity
		capability Capability
		subject    Subject
		allowed    bool
		reasonCode string
	}{
		{"anonymous cannot read", anonymous, CapabilityRead, Subject{}, false, ReasonDenyUnauthenticated},
		{"student can read", student, CapabilityRead, Subject{}, true, ReasonAllowAuthenticated},
		{"student can share", student, CapabilityShareScreen, Subject{OwnerID: "t-owner"}, true, ReasonAllowAuthenticated},
		{"teacher creates room", otherTeacher, CapabilityCreateRoom, Subject{}, true, ReasonAllowStaffRole},
		{"admin creates room", admin, CapabilityCreateRoom, Subject{}, true, ReasonAllowStaffRole},
		{"student cannot create room", student, CapabilityCreateRoom, Subject{}, false, ReasonDenyRoleRequired},
		{"owner manages", owner, CapabilityManageRoom, Subject{OwnerID: "t-owner"}, true, ReasonAllowOwner},
		{"teacher manages other room", otherTeacher, CapabilityManageRoom, Subject{OwnerID: "t-owner"}, true, ReasonAllowStaffRole},
		{"student cannot manage", student, CapabilityManageRoom, Subject{OwnerID: "t-owner", Member: approvedStudent}, false, ReasonDenyRoleRequired},
		{"student owner manages", CallerIdentity{ID: "s-1", Role: RoleStudent}, CapabilityManageRoom, Subject{OwnerID: "s-1"}, true, ReasonAllowOwner},
		{"owner edits notes", owner, CapabilityEditNotes, Subject{OwnerID: "t-owner"}, true, ReasonAllowOwner},
		{"teacher member edits notes", student, CapabilityEditNotes, Subject{OwnerID: "t-owner", Member: teacherMember}, true, ReasonAllowTeacherMember},
		{"non-member teacher cannot edit notes", otherTeacher, CapabilityEditNotes, Subject{OwnerID: "t-owner"}, false, ReasonDenyRoleRequired},
		{"student member cannot edit notes", student, CapabilityEditNotes, Subject{OwnerID: "t-owner", Member: approvedStudent}, false, ReasonDenyRoleRequired},
		{"approved member posts", student, CapabilityPostMessage, Subject{Member: approvedStudent}, true, ReasonAllowApprovedMember},
		{"unapproved member cannot post", student, CapabilityPostMessage, Subject{Member: pendingStudent}, false, ReasonDenyMembershipRequired},
		{"non-member cannot post", student, CapabilityPostMessage, Subject{}, false, ReasonDenyMembershipRequired},
		{"assistant posts", assistant, CapabilityPostMessage, Subject{}, true, ReasonAllowAssistant},
		{"unknown capability", owner, Capability("launch"), Subject{OwnerID: "t-owner"}, false, ReasonDenyUnknownCapability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Can(tt.caller, tt.capability, tt.subject)
			if decision.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", decision.Allowed, tt.allowed)
			}
			if decision.ReasonCode != tt.reasonCode {
				t.Fatalf("reason = %q, want %q", decision.ReasonCode, tt.reasonCode)
			}
		})
	}
}

func TestMemberOfAnotherUserDoesNotGrantAccess(t *testing.T) {
	caller := CallerIdentity{ID: "s-2", Role: RoleStudent}
	someoneElse := &domain.Member{UserID: "s-1", Role: domain.MemberRoleTeacher, Approved: true}
	if Can(caller, CapabilityPostMessage, Subject{Member: someoneElse}).Allowed {
		t.Fatal("membership row of another user must not authorize posting")
	}
	if Can(caller, CapabilityEditNotes, Subject{Member: someoneElse}).Allowed {
		t.Fatal("membership row of another user must not authorize notes")
	}
}

func TestRequireErrorCodes(t *testing.T) {
	if err := Require(CallerIdentity{}, CapabilityRead, Subject{}); apperrors.GetCode(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeUnauthenticated)
	}
	student := CallerIdentity{ID: "s-1", Role: RoleStudent}
	if err := Require(student, CapabilityManageRoom, Subject{OwnerID: "t-1"}); apperrors.GetCode(err) != apperrors.CodeForbidden {
		t.Fatalf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeForbidden)
	}
	if err := Require(student, CapabilityPostMessage, Subject{}); apperrors.GetCode(err) != apperrors.CodeMembershipRequired {
		t.Fatalf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeMembershipRequired)
	}
	if err := Require(student, CapabilityRead, Subject{}); err != nil {
		t.Fatalf("read should be allowed: %v", err)
	}
}

func TestFromContext(t *testing.T) {
	caller := FromContext(requestctx.Identity{UserID: "u-1", Name: "Grace", Role: "ADMIN"})
	if caller.Role != RoleAdmin || !caller.IsStaff() {
		t.Fatalf("caller = %+v, want admin staff", caller)
	}
	unknown := FromContext(requestctx.Identity{UserID: "u-2", Role: "principal"})
	if unknown.Role != RoleStudent {
		t.Fatalf("unknown role = %q, want %q", unknown.Role, RoleStudent)
	}
	if unknown.DisplayName() != "u-2" {
		t.Fatalf("display name = %q, want id fallback", unknown.DisplayName())
	}
}
