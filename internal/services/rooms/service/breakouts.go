package service

import (
	"context"

	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
	"go.opentelemetry.io/otel/attribute"
)

// Breakouts owns breakout group management.
type Breakouts struct {
	*deps
}

// GroupInput describes a new breakout group. Active defaults to true.
type GroupInput struct {
	Name         string
	Participants []string
	Active       *bool
	VoiceChannel bool
}

// GroupPatch holds the fields to change on a group. Nil fields are kept.
type GroupPatch struct {
	Name         *string
	Participants *[]string
	Active       *bool
	VoiceChannel *bool
}

// CreateGroup adds a breakout group to a room.
func (b *Breakouts) CreateGroup(ctx context.Context, caller authz.CallerIdentity, roomID string, in GroupInput) (group domain.BreakoutGroup, err error) {
	ctx, span := b.start(ctx, "CreateGroup", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.BreakoutGroup{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	name, err := domain.RequireText("name", in.Name, domain.MaxNameRunes)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	participants, err := domain.NormalizeParticipants(in.Participants)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	room, err := b.loadRoom(ctx, roomID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	if err := requireManage(caller, room); err != nil {
		return domain.BreakoutGroup{}, err
	}

	groupID, err := b.id()
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := b.now()
	group = domain.BreakoutGroup{
		ID:           groupID,
		RoomID:       roomID,
		Name:         name,
		Participants: participants,
		Active:       active,
		VoiceChannel: in.VoiceChannel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.store.InsertGroup(ctx, group); err != nil {
		return domain.BreakoutGroup{}, storeError("room", "create group", err)
	}
	return group, nil
}

// ListGroups returns the groups of a room in creation order.
func (b *Breakouts) ListGroups(ctx context.Context, caller authz.CallerIdentity, roomID string) (groups []domain.BreakoutGroup, err error) {
	ctx, span := b.start(ctx, "ListGroups", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return nil, err
	}
	if _, err := b.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}
	groups, err = b.store.ListGroups(ctx, roomID)
	if err != nil {
		return nil, storeError("room", "list groups", err)
	}
	return groups, nil
}

// UpdateGroup applies patch to a group and bumps its updated time. Only the
// fields present in patch are written, so concurrent patches to different
// fields both land.
func (b *Breakouts) UpdateGroup(ctx context.Context, caller authz.CallerIdentity, groupID string, patch GroupPatch) (group domain.BreakoutGroup, err error) {
	ctx, span := b.start(ctx, "UpdateGroup", attribute.String("group.id", groupID))
	defer func() { endSpan(span, err) }()

	if _, err := b.authorizeGroup(ctx, caller, groupID); err != nil {
		return domain.BreakoutGroup{}, err
	}
	write := storage.GroupPatch{
		Active:       patch.Active,
		VoiceChannel: patch.VoiceChannel,
		UpdatedAt:    b.now(),
	}
	if patch.Name != nil {
		name, err := domain.RequireText("name", *patch.Name, domain.MaxNameRunes)
		if err != nil {
			return domain.BreakoutGroup{}, err
		}
		write.Name = &name
	}
	if patch.Participants != nil {
		participants, err := domain.NormalizeParticipants(*patch.Participants)
		if err != nil {
			return domain.BreakoutGroup{}, err
		}
		write.Participants = participants
	}
	group, err = b.store.UpdateGroup(ctx, groupID, write)
	if err != nil {
		return domain.BreakoutGroup{}, storeError("group", "update group", err)
	}
	return group, nil
}

// DeleteGroup removes a group. A group that is already gone fails with
// NOT_FOUND.
func (b *Breakouts) DeleteGroup(ctx context.Context, caller authz.CallerIdentity, groupID string) (err error) {
	ctx, span := b.start(ctx, "DeleteGroup", attribute.String("group.id", groupID))
	defer func() { endSpan(span, err) }()

	group, err := b.authorizeGroup(ctx, caller, groupID)
	if err != nil {
		return err
	}
	return storeError("group", "delete group", b.store.DeleteGroup(ctx, group.ID, b.now()))
}

// authorizeGroup loads a group and checks manage permission on its room.
func (b *Breakouts) authorizeGroup(ctx context.Context, caller authz.CallerIdentity, groupID string) (domain.BreakoutGroup, error) {
	if err := requireAuthenticated(caller); err != nil {
		return domain.BreakoutGroup{}, err
	}
	groupID, err := requireID("group_id", groupID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	group, err := b.store.GetGroup(ctx, groupID)
	if err != nil {
		return domain.BreakoutGroup{}, storeError("group", "get group", err)
	}
	room, err := b.loadRoom(ctx, group.RoomID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}
	if err := requireManage(caller, room); err != nil {
		return domain.BreakoutGroup{}, err
	}
	return group, nil
}
