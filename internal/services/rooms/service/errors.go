package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

// notFound builds the lookup error for one resource kind.
func notFound(resource string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, resource+" not found",
		map[string]string{"Resource": resource})
}

// storeError maps storage failures to platform errors. Unknown failures are
// treated as an unavailable store.
func storeError(resource, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFound(resource)
	case errors.Is(err, storage.ErrAlreadyResolved):
		return apperrors.WithMetadata(apperrors.CodeJoinRequestAlreadyResolved, "join request already resolved",
			map[string]string{"Status": "resolved"})
	case errors.Is(err, storage.ErrLastTeacher):
		return apperrors.New(apperrors.CodeLastTeacherRequired, "room must keep an approved teacher")
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.Wrap(apperrors.CodeConflict, op+": already exists", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeDependencyFailure, op+": "+err.Error(), err)
	default:
		return apperrors.Wrap(apperrors.CodeDependencyFailure, op, err)
	}
}

func requireAuthenticated(caller authz.CallerIdentity) error {
	return authz.Require(caller, authz.CapabilityRead, authz.Subject{})
}

func requireID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.Required(field)
	}
	return value, nil
}

// loadRoom reads a room and maps a missing row to NOT_FOUND.
func (d *deps) loadRoom(ctx context.Context, roomID string) (domain.Room, error) {
	room, err := d.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, storeError("room", "get room", err)
	}
	return room, nil
}

// callerMember returns the caller's membership row, or nil when the caller
// has none.
func (d *deps) callerMember(ctx context.Context, roomID string, caller authz.CallerIdentity) (*domain.Member, error) {
	member, err := d.store.GetMemberByUser(ctx, roomID, caller.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("member", "get caller member", err)
	}
	return &member, nil
}

// requireManage authorizes room management for caller.
func requireManage(caller authz.CallerIdentity, room domain.Room) error {
	return authz.Require(caller, authz.CapabilityManageRoom, authz.Subject{OwnerID: room.OwnerID})
}
