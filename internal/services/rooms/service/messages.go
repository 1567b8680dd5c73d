package service

import (
	"context"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"go.opentelemetry.io/otel/attribute"
)

// Messages owns the append-only room chat log.
type Messages struct {
	*deps
}

// PostMessage appends a message to an active room. The caller must be an
// approved member, or the assistant identity.
func (m *Messages) PostMessage(ctx context.Context, caller authz.CallerIdentity, roomID, body string) (message domain.Message, err error) {
	ctx, span := m.start(ctx, "PostMessage", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.Message{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return domain.Message{}, err
	}
	body, err = domain.RequireText("body", body, domain.MaxMessageBodyRunes)
	if err != nil {
		return domain.Message{}, err
	}
	room, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return domain.Message{}, err
	}
	member, err := m.callerMember(ctx, roomID, caller)
	if err != nil {
		return domain.Message{}, err
	}
	if err := authz.Require(caller, authz.CapabilityPostMessage, authz.Subject{OwnerID: room.OwnerID, Member: member}); err != nil {
		return domain.Message{}, err
	}
	if !room.Active {
		return domain.Message{}, apperrors.New(apperrors.CodeRoomInactive, "room is not active")
	}

	authorName := caller.DisplayName()
	authorRole := domain.AuthorRoleAssistant
	if caller.Role != authz.RoleAssistant {
		authorRole = domain.AuthorRoleFor(member.Role)
		if member.Name != "" {
			authorName = member.Name
		}
	}
	messageID, err := m.id()
	if err != nil {
		return domain.Message{}, err
	}
	message = domain.Message{
		ID:         messageID,
		RoomID:     roomID,
		AuthorID:   caller.ID,
		AuthorName: authorName,
		AuthorRole: authorRole,
		Body:       body,
		CreatedAt:  m.now(),
	}
	if err := m.store.AppendMessage(ctx, message); err != nil {
		return domain.Message{}, storeError("room", "append message", err)
	}
	return message, nil
}

// ListMessages returns the most recent messages of a room in ascending
// order. limit falls back to DefaultMessageLimit and is capped at
// MaxMessageLimit.
func (m *Messages) ListMessages(ctx context.Context, caller authz.CallerIdentity, roomID string, limit int) (messages []domain.Message, err error) {
	ctx, span := m.start(ctx, "ListMessages", attribute.String("room.id", roomID), attribute.Int("messages.limit", limit))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return nil, err
	}
	if _, err := m.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}
	messages, err = m.store.ListMessages(ctx, roomID, ClampMessageLimit(limit))
	if err != nil {
		return nil, storeError("room", "list messages", err)
	}
	return messages, nil
}

// ClampMessageLimit applies the default and maximum history page size.
func ClampMessageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultMessageLimit
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	default:
		return limit
	}
}
