// Package storage defines persistence contracts for collaboration room state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

var (
	// ErrNotFound indicates a requested room record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrAlreadyResolved indicates a join request left the pending state.
	ErrAlreadyResolved = errors.New("join request already resolved")
	// ErrLastTeacher indicates a write would leave a room without an approved
	// teacher member.
	ErrLastTeacher = errors.New("room requires an approved teacher member")
)

// RoomStore persists rooms and their ordered notes.
type RoomStore interface {
	// CreateRoomWithOwner writes the room and its owner member together.
	CreateRoomWithOwner(ctx context.Context, room domain.Room, owner domain.Member) error
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	// ListRooms returns every room, newest first.
	ListRooms(ctx context.Context) ([]domain.Room, error)
	CountRooms(ctx context.Context) (int, error)
	SetRoomActive(ctx context.Context, roomID string, active bool, updatedAt time.Time) error
	AddNote(ctx context.Context, roomID string, note domain.Note) error
	// RemoveNoteAt deletes the note at a zero-based position in one statement.
	RemoveNoteAt(ctx context.Context, roomID string, index int, updatedAt time.Time) error
	RemoveNote(ctx context.Context, roomID, noteID string, updatedAt time.Time) error
}

// MemberStore persists room members.
type MemberStore interface {
	// EnsureApprovedMember inserts an approved member or upgrades an
	// unapproved row for the same user. It reports whether a row changed and
	// returns the stored member.
	EnsureApprovedMember(ctx context.Context, member domain.Member) (domain.Member, bool, error)
	GetMember(ctx context.Context, roomID, memberID string) (domain.Member, error)
	GetMemberByUser(ctx context.Context, roomID, userID string) (domain.Member, error)
	ListMembers(ctx context.Context, roomID string) ([]domain.Member, error)
	// DeleteMember returns ErrLastTeacher instead of removing the final
	// approved teacher.
	DeleteMember(ctx context.Context, roomID, memberID string, updatedAt time.Time) error
	// UpdateMemberRole returns ErrLastTeacher instead of demoting the final
	// approved teacher.
	UpdateMemberRole(ctx context.Context, roomID, memberID string, role domain.MemberRole, updatedAt time.Time) (domain.Member, error)
}

// JoinRequestStore persists join requests and their resolution.
type JoinRequestStore interface {
	// InsertJoinRequest returns ErrAlreadyExists when the user already has a
	// pending request for the room.
	InsertJoinRequest(ctx context.Context, request domain.JoinRequest) error
	GetJoinRequest(ctx context.Context, roomID, requestID string) (domain.JoinRequest, error)
	FindPendingJoinRequest(ctx context.Context, roomID, userID string) (domain.JoinRequest, error)
	ListPendingJoinRequests(ctx context.Context, roomID string) ([]domain.JoinRequest, error)
	// ListJoinRequests returns pending and resolved requests in request order.
	ListJoinRequests(ctx context.Context, roomID string) ([]domain.JoinRequest, error)
	// ApproveJoinRequest marks a pending request approved and upserts the
	// member in one transaction. newMemberID is used only when no member row
	// exists for the user.
	ApproveJoinRequest(ctx context.Context, roomID, requestID, reviewerID, newMemberID string, reviewedAt time.Time) (domain.JoinRequest, domain.Member, error)
	RejectJoinRequest(ctx context.Context, roomID, requestID, reviewerID string, reviewedAt time.Time) (domain.JoinRequest, error)
}

// MessageStore persists the append-only chat log.
type MessageStore interface {
	AppendMessage(ctx context.Context, message domain.Message) error
	// ListMessages returns the most recent limit messages in ascending order.
	// A limit of zero or less returns the full log.
	ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
}

// ShareStore persists screen share registrations.
type ShareStore interface {
	InsertShare(ctx context.Context, share domain.ScreenShare) error
	GetShare(ctx context.Context, shareID string) (domain.ScreenShare, error)
	ListShares(ctx context.Context, roomID string) ([]domain.ScreenShare, error)
	DeactivateShare(ctx context.Context, shareID string) (domain.ScreenShare, error)
}

// GroupPatch lists the group fields a write changes. Nil fields keep the
// stored value.
type GroupPatch struct {
	Name         *string
	Participants []string
	Active       *bool
	VoiceChannel *bool
	UpdatedAt    time.Time
}

// GroupStore persists breakout groups.
type GroupStore interface {
	InsertGroup(ctx context.Context, group domain.BreakoutGroup) error
	GetGroup(ctx context.Context, groupID string) (domain.BreakoutGroup, error)
	ListGroups(ctx context.Context, roomID string) ([]domain.BreakoutGroup, error)
	UpdateGroup(ctx context.Context, groupID string, patch GroupPatch) (domain.BreakoutGroup, error)
	DeleteGroup(ctx context.Context, groupID string, updatedAt time.Time) error
}

// FixtureStore bootstraps sample data.
type FixtureStore interface {
	// SeedIfEmpty writes fixtures only when no room exists. The emptiness
	// check and all inserts share one transaction.
	SeedIfEmpty(ctx context.Context, fixtures []domain.RoomView) (bool, error)
}

// Store is the full persistence surface of the rooms service.
type Store interface {
	RoomStore
	MemberStore
	JoinRequestStore
	MessageStore
	ShareStore
	GroupStore
	FixtureStore
}
