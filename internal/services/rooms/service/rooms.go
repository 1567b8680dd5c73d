package service

import (
	"context"
	"strconv"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/authz"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"go.opentelemetry.io/otel/attribute"
)

// Rooms owns room creation, listing, notes and the active flag.
type Rooms struct {
	*deps
	aggregator *Aggregator
}

// CreateRoomInput describes a new room. Active defaults to true.
type CreateRoomInput struct {
	Title        string
	ExperienceID string
	Active       *bool
}

// CreateRoom stores a room together with its owner member. The caller must
// hold teacher or admin.
func (r *Rooms) CreateRoom(ctx context.Context, caller authz.CallerIdentity, in CreateRoomInput) (room domain.Room, err error) {
	ctx, span := r.start(ctx, "CreateRoom")
	defer func() { endSpan(span, err) }()

	if err := authz.Require(caller, authz.CapabilityCreateRoom, authz.Subject{}); err != nil {
		return domain.Room{}, err
	}
	title, err := domain.RequireText("title", in.Title, domain.MaxTitleRunes)
	if err != nil {
		return domain.Room{}, err
	}
	experienceID, err := domain.OptionalText("experience_id", in.ExperienceID, domain.MaxNameRunes)
	if err != nil {
		return domain.Room{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	roomID, err := r.id()
	if err != nil {
		return domain.Room{}, err
	}
	memberID, err := r.id()
	if err != nil {
		return domain.Room{}, err
	}
	now := r.now()
	room = domain.Room{
		ID:           roomID,
		Title:        title,
		ExperienceID: experienceID,
		OwnerID:      caller.ID,
		OwnerName:    caller.DisplayName(),
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if active {
		room.StartedAt = now
	}
	owner := domain.Member{
		ID:        memberID,
		RoomID:    roomID,
		UserID:    caller.ID,
		Name:      caller.DisplayName(),
		Role:      domain.MemberRoleTeacher,
		Status:    domain.MemberStatusInSim,
		Approved:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateRoomWithOwner(ctx, room, owner); err != nil {
		return domain.Room{}, storeError("room", "create room", err)
	}
	span.SetAttributes(attribute.String("room.id", roomID))
	return room, nil
}

// ListRooms returns a snapshot of every room. Any authenticated caller may
// list.
func (r *Rooms) ListRooms(ctx context.Context, caller authz.CallerIdentity) (views []domain.RoomView, err error) {
	ctx, span := r.start(ctx, "ListRooms")
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return nil, storeError("room", "list rooms", err)
	}
	span.SetAttributes(attribute.Int("rooms.count", len(rooms)))
	return r.aggregator.SnapshotAll(ctx, rooms)
}

// GetRoom returns the snapshot of one room.
func (r *Rooms) GetRoom(ctx context.Context, caller authz.CallerIdentity, roomID string) (view domain.RoomView, err error) {
	ctx, span := r.start(ctx, "GetRoom", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.RoomView{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return domain.RoomView{}, err
	}
	room, err := r.loadRoom(ctx, roomID)
	if err != nil {
		return domain.RoomView{}, err
	}
	return r.aggregator.Snapshot(ctx, room)
}

// SetRoomActive closes or reopens a room. Closed rooms refuse new messages.
func (r *Rooms) SetRoomActive(ctx context.Context, caller authz.CallerIdentity, roomID string, active bool) (err error) {
	ctx, span := r.start(ctx, "SetRoomActive", attribute.String("room.id", roomID), attribute.Bool("room.active", active))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return err
	}
	room, err := r.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := requireManage(caller, room); err != nil {
		return err
	}
	return storeError("room", "set room active", r.store.SetRoomActive(ctx, roomID, active, r.now()))
}

// AddNote appends a note to the room. The caller must own the room or be an
// approved teacher member.
func (r *Rooms) AddNote(ctx context.Context, caller authz.CallerIdentity, roomID, text string) (note domain.Note, err error) {
	ctx, span := r.start(ctx, "AddNote", attribute.String("room.id", roomID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return domain.Note{}, err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return domain.Note{}, err
	}
	text, err = domain.RequireText("note", text, domain.MaxNoteRunes)
	if err != nil {
		return domain.Note{}, err
	}
	room, err := r.requireNoteEditor(ctx, caller, roomID)
	if err != nil {
		return domain.Note{}, err
	}

	noteID, err := r.id()
	if err != nil {
		return domain.Note{}, err
	}
	note = domain.Note{ID: noteID, Text: text, CreatedAt: r.now()}
	if err := r.store.AddNote(ctx, room.ID, note); err != nil {
		return domain.Note{}, storeError("room", "add note", err)
	}
	return note, nil
}

// RemoveNote deletes the note at a zero-based index. The index is checked
// against the notes as they are stored right before the delete.
func (r *Rooms) RemoveNote(ctx context.Context, caller authz.CallerIdentity, roomID string, index int) (err error) {
	ctx, span := r.start(ctx, "RemoveNote", attribute.String("room.id", roomID), attribute.Int("note.index", index))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return err
	}
	room, err := r.requireNoteEditor(ctx, caller, roomID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(room.Notes) {
		return apperrors.WithMetadata(apperrors.CodeValidationOutOfRange,
			"note index "+strconv.Itoa(index)+" out of range",
			map[string]string{"Field": "index"})
	}
	return storeError("note", "remove note", r.store.RemoveNoteAt(ctx, roomID, index, r.now()))
}

// RemoveNoteByID deletes a note by its stable id.
func (r *Rooms) RemoveNoteByID(ctx context.Context, caller authz.CallerIdentity, roomID, noteID string) (err error) {
	ctx, span := r.start(ctx, "RemoveNoteByID", attribute.String("room.id", roomID), attribute.String("note.id", noteID))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	roomID, err = requireID("room_id", roomID)
	if err != nil {
		return err
	}
	noteID, err = requireID("note_id", noteID)
	if err != nil {
		return err
	}
	if _, err := r.requireNoteEditor(ctx, caller, roomID); err != nil {
		return err
	}
	return storeError("note", "remove note", r.store.RemoveNote(ctx, roomID, noteID, r.now()))
}

func (r *Rooms) requireNoteEditor(ctx context.Context, caller authz.CallerIdentity, roomID string) (domain.Room, error) {
	room, err := r.loadRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	member, err := r.callerMember(ctx, roomID, caller)
	if err != nil {
		return domain.Room{}, err
	}
	if err := authz.Require(caller, authz.CapabilityEditNotes, authz.Subject{OwnerID: room.OwnerID, Member: member}); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}
