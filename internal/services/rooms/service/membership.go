package service

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
	"go.opentelemetry.io/otel/attribute"
)

// Membership owns the join request state machine and member changes.
//
// A user moves NOT_MEMBER -> PENDING -> APPROVED or REJECTED. Callers with
// teacher or admin identity skip PENDING and join directly. Uniqueness of
// members and pending requests is enforced by the store, so retries and
// concurrent calls settle on one row.
type Membership struct {
	*deps
}

// JoinResult reports the outcome of RequestJoin with the row it refers to.
type JoinResult struct {
	Outcome   domain.JoinOutcome
	RequestID string
	MemberID  string
}

// RequestJoin asks for the caller to join a room. role may be empty, in
// which case staff join as teacher and everyone else as student. Repeated
// calls are safe and report PENDING_REQUEST or ALREADY_MEMBER.
func (m *Membership) RequestJoin(ctx context.Context, caller authz.CallerIdentity, roomID, userName, role string) (result JoinResult, err error) {
	ctx, span := m.start(ctx, "RequestJoin", attribute.String("room.id", roomID))
	defer func() {
		span.SetAttributes(attribute.String("join.outcome", string(result.Outcome)))
		endSpan(span, err)
	}()

	if err := requireAuthenticated(caller); err != nil {
		return JoinResult{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return JoinResult{}, err
	}
	name, err := domain.OptionalText("name", userName, domain.MaxNameRunes)
	if err != nil {
		return JoinResult{}, err
	}
	if name == "" {
		name = caller.DisplayName()
	}
	requested, err := m.requestedRole(caller, role)
	if err != nil {
		return JoinResult{}, err
	}
	if _, err := m.loadRoom(ctx, roomID); err != nil {
		return JoinResult{}, err
	}

	existing, err := m.callerMember(ctx, roomID, caller)
	if err != nil {
		return JoinResult{}, err
	}
	if existing != nil {
		if existing.Approved {
			return JoinResult{Outcome: domain.JoinOutcomeAlreadyMember, MemberID: existing.ID}, nil
		}
		if pending, ok, err := m.findPending(ctx, roomID, caller.ID); err != nil {
			return JoinResult{}, err
		} else if ok {
			return JoinResult{Outcome: domain.JoinOutcomePendingRequest, RequestID: pending.ID}, nil
		}
	}

	if caller.IsStaff() {
		return m.joinDirectly(ctx, caller, roomID, name, requested)
	}

	if pending, ok, err := m.findPending(ctx, roomID, caller.ID); err != nil {
		return JoinResult{}, err
	} else if ok {
		return JoinResult{Outcome: domain.JoinOutcomePendingRequest, RequestID: pending.ID}, nil
	}

	requestID, err := m.id()
	if err != nil {
		return JoinResult{}, err
	}
	request := domain.JoinRequest{
		ID:          requestID,
		RoomID:      roomID,
		UserID:      caller.ID,
		UserName:    name,
		Role:        requested,
		Status:      domain.RequestStatusPending,
		RequestedAt: m.now(),
	}
	err = m.store.InsertJoinRequest(ctx, request)
	if err == nil {
		return JoinResult{Outcome: domain.JoinOutcomeRequestCreated, RequestID: requestID}, nil
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		return JoinResult{}, storeError("room", "insert join request", err)
	}
	// A concurrent call won the pending slot.
	if pending, ok, err := m.findPending(ctx, roomID, caller.ID); err != nil {
		return JoinResult{}, err
	} else if ok {
		return JoinResult{Outcome: domain.JoinOutcomePendingRequest, RequestID: pending.ID}, nil
	}
	if member, err := m.callerMember(ctx, roomID, caller); err != nil {
		return JoinResult{}, err
	} else if member != nil && member.Approved {
		return JoinResult{Outcome: domain.JoinOutcomeAlreadyMember, MemberID: member.ID}, nil
	}
	return JoinResult{Outcome: domain.JoinOutcomePendingRequest}, nil
}

func (m *Membership) requestedRole(caller authz.CallerIdentity, role string) (domain.MemberRole, error) {
	if role == "" {
		if caller.IsStaff() {
			return domain.MemberRoleTeacher, nil
		}
		return domain.MemberRoleStudent, nil
	}
	requested, err := domain.ParseMemberRole(role)
	if err != nil {
		return "", err
	}
	if requested == domain.MemberRoleTeacher && !caller.IsStaff() {
		return "", apperrors.WithMetadata(apperrors.CodeForbidden, "teacher role requires staff identity",
			map[string]string{"Capability": "join_as_teacher"})
	}
	return requested, nil
}

func (m *Membership) joinDirectly(ctx context.Context, caller authz.CallerIdentity, roomID, name string, role domain.MemberRole) (JoinResult, error) {
	memberID, err := m.id()
	if err != nil {
		return JoinResult{}, err
	}
	now := m.now()
	member, changed, err := m.store.EnsureApprovedMember(ctx, domain.Member{
		ID:        memberID,
		RoomID:    roomID,
		UserID:    caller.ID,
		Name:      name,
		Role:      role,
		Status:    domain.MemberStatusOnline,
		Approved:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return JoinResult{}, storeError("room", "ensure member", err)
	}
	if !changed {
		return JoinResult{Outcome: domain.JoinOutcomeAlreadyMember, MemberID: member.ID}, nil
	}
	return JoinResult{Outcome: domain.JoinOutcomeJoined, MemberID: member.ID}, nil
}

func (m *Membership) findPending(ctx context.Context, roomID, userID string) (domain.JoinRequest, bool, error) {
	pending, err := m.store.FindPendingJoinRequest(ctx, roomID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.JoinRequest{}, false, nil
	}
	if err != nil {
		return domain.JoinRequest{}, false, storeError("join request", "find pending join request", err)
	}
	return pending, true, nil
}

// ApproveJoinRequest approves a pending request and upserts the member in
// one step. A request that is no longer pending fails with
// JOIN_REQUEST_ALREADY_RESOLVED.
func (m *Membership) ApproveJoinRequest(ctx context.Context, caller authz.CallerIdentity, roomID, requestID string) (request domain.JoinRequest, member domain.Member, err error) {
	ctx, span := m.start(ctx, "ApproveJoinRequest", attribute.String("room.id", roomID), attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	roomID, requestID, err = m.authorizeReview(ctx, caller, roomID, requestID)
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}
	memberID, err := m.id()
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}
	request, member, err = m.store.ApproveJoinRequest(ctx, roomID, requestID, caller.ID, memberID, m.now())
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, m.reviewError(ctx, roomID, requestID, err)
	}
	return request, member, nil
}

// RejectJoinRequest rejects a pending request. No member row is written.
func (m *Membership) RejectJoinRequest(ctx context.Context, caller authz.CallerIdentity, roomID, requestID string) (request domain.JoinRequest, err error) {
	ctx, span := m.start(ctx, "RejectJoinRequest", attribute.String("room.id", roomID), attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	roomID, requestID, err = m.authorizeReview(ctx, caller, roomID, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	request, err = m.store.RejectJoinRequest(ctx, roomID, requestID, caller.ID, m.now())
	if err != nil {
		return domain.JoinRequest{}, m.reviewError(ctx, roomID, requestID, err)
	}
	return request, nil
}

func (m *Membership) authorizeReview(ctx context.Context, caller authz.CallerIdentity, roomID, requestID string) (string, string, error) {
	if err := requireAuthenticated(caller); err != nil {
		return "", "", err
	}
	roomID, err := requireID("room_id", roomID)
	if err != nil {
		return "", "", err
	}
	requestID, err = requireID("request_id", requestID)
	if err != nil {
		return "", "", err
	}
	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return "", "", err
	}
	if err := requireManage(caller, room); err != nil {
		return "", "", err
	}
	return roomID, requestID, nil
}

// reviewError names the status a resolved request already holds.
func (m *Membership) reviewError(ctx context.Context, roomID, requestID string, err error) error {
	if !errors.Is(err, storage.ErrAlreadyResolved) {
		return storeError("join request", "review join request", err)
	}
	status := "resolved"
	if current, getErr := m.store.GetJoinRequest(ctx, roomID, requestID); getErr == nil {
		status = string(current.Status)
	}
	return apperrors.WithMetadata(apperrors.CodeJoinRequestAlreadyResolved,
		"join request already "+status,
		map[string]string{"Status": status})
}

// RemoveMember deletes a member row. Historical join requests are left as
// they are. The last approved teacher cannot be removed.
func (m *Membership) RemoveMember(ctx context.Context, caller authz.CallerIdentity, roomID, memberID string) (err error) {
	ctx, span := m.start(ctx, "RemoveMember", attribute.String("room.id", roomID), attribute.String("member.id", memberID))
	defer func() { endSpan(span, err) }()

	roomID, memberID, err = m.authorizeMemberChange(ctx, caller, roomID, memberID)
	if err != nil {
		return err
	}
	return storeError("member", "remove member", m.store.DeleteMember(ctx, roomID, memberID, m.now()))
}

// ChangeRole updates a member role. Demoting the last approved teacher
// fails with LAST_TEACHER_REQUIRED.
func (m *Membership) ChangeRole(ctx context.Context, caller authz.CallerIdentity, roomID, memberID, role string) (member domain.Member, err error) {
	ctx, span := m.start(ctx, "ChangeRole", attribute.String("room.id", roomID), attribute.String("member.id", memberID))
	defer func() { endSpan(span, err) }()

	newRole, err := domain.ParseMemberRole(role)
	if err != nil {
		return domain.Member{}, err
	}
	roomID, memberID, err = m.authorizeMemberChange(ctx, caller, roomID, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	member, err = m.store.UpdateMemberRole(ctx, roomID, memberID, newRole, m.now())
	if err != nil {
		return domain.Member{}, storeError("member", "change role", err)
	}
	return member, nil
}

func (m *Membership) authorizeMemberChange(ctx context.Context, caller authz.CallerIdentity, roomID, memberID string) (string, string, error) {
	if err := requireAuthenticated(caller); err != nil {
		return "", "", err
	}
	roomID, err := requireID("room_id", roomID)
	if err != nil {
		return "", "", err
	}
	memberID, err = requireID("member_id", memberID)
	if err != nil {
		return "", "", err
	}
	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return "", "", err
	}
	if err := requireManage(caller, room); err != nil {
		return "", "", err
	}
	return roomID, memberID, nil
}
