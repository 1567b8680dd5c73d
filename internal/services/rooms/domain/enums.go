package domain

import (
	"strings"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
)

// MemberRole is the role a member holds inside one room.
type MemberRole string

const (
	MemberRoleTeacher MemberRole = "teacher"
	MemberRoleStudent MemberRole = "student"
)

// MemberStatus is the presence label shown next to a member.
type MemberStatus string

const (
	MemberStatusOnline  MemberStatus = "online"
	MemberStatusOffline MemberStatus = "offline"
	MemberStatusInSim   MemberStatus = "in-sim"
)

// RequestStatus is the lifecycle phase of a join request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// AuthorRole labels who wrote a chat message.
type AuthorRole string

const (
	AuthorRoleTeacher   AuthorRole = "teacher"
	AuthorRoleStudent   AuthorRole = "student"
	AuthorRoleAssistant AuthorRole = "assistant"
)

// ShareKind is the type of content behind a screen share.
type ShareKind string

const (
	ShareKindSimulation ShareKind = "simulation"
	ShareKindBoard      ShareKind = "board"
	ShareKindResults    ShareKind = "results"
)

// JoinOutcome reports what a join request call did.
type JoinOutcome string

const (
	// JoinOutcomeJoined means the caller became an approved member directly.
	JoinOutcomeJoined JoinOutcome = "JOINED"
	// JoinOutcomePendingRequest means a pending request already existed.
	JoinOutcomePendingRequest JoinOutcome = "PENDING_REQUEST"
	// JoinOutcomeAlreadyMember means the caller was already approved.
	JoinOutcomeAlreadyMember JoinOutcome = "ALREADY_MEMBER"
	// JoinOutcomeRequestCreated means a new pending request was stored.
	JoinOutcomeRequestCreated JoinOutcome = "REQUEST_CREATED"
)

// ParseMemberRole normalizes a member role label.
func ParseMemberRole(value string) (MemberRole, error) {
	switch MemberRole(strings.ToLower(strings.TrimSpace(value))) {
	case MemberRoleTeacher:
		return MemberRoleTeacher, nil
	case MemberRoleStudent:
		return MemberRoleStudent, nil
	default:
		return "", invalidEnum("role", "teacher, student")
	}
}

// ParseMemberStatus normalizes a presence label.
func ParseMemberStatus(value string) (MemberStatus, error) {
	switch MemberStatus(strings.ToLower(strings.TrimSpace(value))) {
	case MemberStatusOnline:
		return MemberStatusOnline, nil
	case MemberStatusOffline:
		return MemberStatusOffline, nil
	case MemberStatusInSim:
		return MemberStatusInSim, nil
	default:
		return "", invalidEnum("status", "online, offline, in-sim")
	}
}

// ParseAuthorRole normalizes a message author role label.
func ParseAuthorRole(value string) (AuthorRole, error) {
	switch AuthorRole(strings.ToLower(strings.TrimSpace(value))) {
	case AuthorRoleTeacher:
		return AuthorRoleTeacher, nil
	case AuthorRoleStudent:
		return AuthorRoleStudent, nil
	case AuthorRoleAssistant:
		return AuthorRoleAssistant, nil
	default:
		return "", invalidEnum("role", "teacher, student, assistant")
	}
}

// ParseShareKind normalizes a screen share kind.
func ParseShareKind(value string) (ShareKind, error) {
	switch ShareKind(strings.ToLower(strings.TrimSpace(value))) {
	case ShareKindSimulation:
		return ShareKindSimulation, nil
	case ShareKindBoard:
		return ShareKindBoard, nil
	case ShareKindResults:
		return ShareKindResults, nil
	default:
		return "", invalidEnum("kind", "simulation, board, results")
	}
}

// AuthorRoleFor maps a member role onto the message author label.
func AuthorRoleFor(role MemberRole) AuthorRole {
	if role == MemberRoleTeacher {
		return AuthorRoleTeacher
	}
	return AuthorRoleStudent
}

func invalidEnum(field, allowed string) error {
	return apperrors.WithMetadata(
		apperrors.CodeValidationInvalidEnum,
		field+" must be one of "+allowed,
		map[string]string{"Field": field, "Allowed": allowed},
	)
}
