package service

import (
	"context"

	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"go.opentelemetry.io/otel/attribute"
)

// Shares owns screen share registration.
type Shares struct {
	*deps
}

// ShareInput describes a screen share. Active defaults to true.
type ShareInput struct {
	Kind   string
	Title  string
	URL    string
	Active *bool
}

// CreateShare registers a share owned by the caller. Several shares may be
// live in one room at once.
func (s *Shares) CreateShare(ctx context.Context, caller authz.CallerIdentity, roomID string, in ShareInput) (share domain.ScreenShare, err error) {
	ctx, span := s.start(ctx, "CreateShare", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.ScreenShare{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	kind, err := domain.ParseShareKind(in.Kind)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	title, err := domain.RequireText("title", in.Title, domain.MaxTitleRunes)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	target, err := domain.NormalizeShareURL(in.URL)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	if err := authz.Require(caller, authz.CapabilityShareScreen, authz.Subject{OwnerID: room.OwnerID}); err != nil {
		return domain.ScreenShare{}, err
	}

	shareID, err := s.id()
	if err != nil {
		return domain.ScreenShare{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	share = domain.ScreenShare{
		ID:        shareID,
		RoomID:    roomID,
		OwnerID:   caller.ID,
		OwnerName: caller.DisplayName(),
		Kind:      kind,
		Title:     title,
		URL:       target,
		Active:    active,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertShare(ctx, share); err != nil {
		return domain.ScreenShare{}, storeError("room", "create share", err)
	}
	return share, nil
}

// DeactivateShare marks a share inactive. Only the share owner or a room
// manager may do so, and a share is never reactivated.
func (s *Shares) DeactivateShare(ctx context.Context, caller authz.CallerIdentity, shareID string) (share domain.ScreenShare, err error) {
	ctx, span := s.start(ctx, "DeactivateShare", attribute.String("share.id", shareID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.ScreenShare{}, err
	}
	shareID, err = requireID("share_id", shareID)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	share, err = s.store.GetShare(ctx, shareID)
	if err != nil {
		return domain.ScreenShare{}, storeError("share", "get share", err)
	}
	if share.OwnerID != caller.ID {
		room, err := s.loadRoom(ctx, share.RoomID)
		if err != nil {
			return domain.ScreenShare{}, err
		}
		if err := requireManage(caller, room); err != nil {
			return domain.ScreenShare{}, err
		}
	}
	share, err = s.store.DeactivateShare(ctx, shareID)
	if err != nil {
		return domain.ScreenShare{}, storeError("share", "deactivate share", err)
	}
	return share, nil
}
