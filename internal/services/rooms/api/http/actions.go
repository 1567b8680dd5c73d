package httpapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/louisbranch/classroom.space/internal/services/rooms/api/views"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/service"
)

// actionRequest is the POST body. Each action reads the fields it needs.
type actionRequest struct {
	Action string `json:"action"`

	RoomID    string `json:"room_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
	ShareID   string `json:"share_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	NoteID    string `json:"note_id,omitempty"`

	Title        string    `json:"title,omitempty"`
	ExperienceID string    `json:"experience_id,omitempty"`
	Active       *bool     `json:"active,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	Role         string    `json:"role,omitempty"`
	Body         string    `json:"body,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	URL          string    `json:"url,omitempty"`
	Name         *string   `json:"name,omitempty"`
	Participants *[]string `json:"participants,omitempty"`
	VoiceChannel *bool     `json:"voice_channel,omitempty"`
	Text         string    `json:"text,omitempty"`
	Index        *int      `json:"index,omitempty"`
}

type actionFunc func(h *handler, r *http.Request, req actionRequest) (int, any, error)

var actions = map[string]actionFunc{
	"create":           (*handler).createRoom,
	"join":             (*handler).join,
	"approve":          (*handler).approve,
	"reject":           (*handler).reject,
	"message":          (*handler).postMessage,
	"share":            (*handler).createShare,
	"share-deactivate": (*handler).deactivateShare,
	"group-create":     (*handler).createGroup,
	"group-update":     (*handler).updateGroup,
	"group-delete":     (*handler).deleteGroup,
	"member-remove":    (*handler).removeMember,
	"member-role":      (*handler).changeRole,
	"note-add":         (*handler).addNote,
	"note-remove":      (*handler).removeNote,
	"set-active":       (*handler).setActive,
}

func actionNames() string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (h *handler) createRoom(r *http.Request, req actionRequest) (int, any, error) {
	ctx, caller := r.Context(), callerFrom(r)
	room, err := h.svc.Rooms.CreateRoom(ctx, caller, service.CreateRoomInput{
		Title:        req.Title,
		ExperienceID: req.ExperienceID,
		Active:       req.Active,
	})
	if err != nil {
		return 0, nil, err
	}
	snapshots, err := h.svc.Rooms.ListRooms(ctx, caller)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, createRoomResponse{RoomID: room.ID, Rooms: views.FromRoomViews(snapshots)}, nil
}

func (h *handler) join(r *http.Request, req actionRequest) (int, any, error) {
	result, err := h.svc.Membership.RequestJoin(r.Context(), callerFrom(r), req.RoomID, req.UserName, req.Role)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, joinResponse{
		Outcome:   string(result.Outcome),
		RequestID: result.RequestID,
		MemberID:  result.MemberID,
	}, nil
}

func (h *handler) approve(r *http.Request, req actionRequest) (int, any, error) {
	request, member, err := h.svc.Membership.ApproveJoinRequest(r.Context(), callerFrom(r), req.RoomID, req.RequestID)
	if err != nil {
		return 0, nil, err
	}
	out := views.FromMember(member)
	return http.StatusOK, reviewResponse{Request: views.FromJoinRequest(request), Member: &out}, nil
}

func (h *handler) reject(r *http.Request, req actionRequest) (int, any, error) {
	request, err := h.svc.Membership.RejectJoinRequest(r.Context(), callerFrom(r), req.RoomID, req.RequestID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, reviewResponse{Request: views.FromJoinRequest(request)}, nil
}

func (h *handler) postMessage(r *http.Request, req actionRequest) (int, any, error) {
	message, err := h.svc.Messages.PostMessage(r.Context(), callerFrom(r), req.RoomID, req.Body)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, views.FromMessage(message), nil
}

func (h *handler) createShare(r *http.Request, req actionRequest) (int, any, error) {
	share, err := h.svc.Shares.CreateShare(r.Context(), callerFrom(r), req.RoomID, service.ShareInput{
		Kind:   req.Kind,
		Title:  req.Title,
		URL:    req.URL,
		Active: req.Active,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, views.FromShare(share), nil
}

func (h *handler) deactivateShare(r *http.Request, req actionRequest) (int, any, error) {
	share, err := h.svc.Shares.DeactivateShare(r.Context(), callerFrom(r), req.ShareID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, views.FromShare(share), nil
}

func (h *handler) createGroup(r *http.Request, req actionRequest) (int, any, error) {
	in := service.GroupInput{Active: req.Active}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Participants != nil {
		in.Participants = *req.Participants
	}
	if req.VoiceChannel != nil {
		in.VoiceChannel = *req.VoiceChannel
	}
	group, err := h.svc.Breakouts.CreateGroup(r.Context(), callerFrom(r), req.RoomID, in)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, views.FromGroup(group), nil
}

func (h *handler) updateGroup(r *http.Request, req actionRequest) (int, any, error) {
	group, err := h.svc.Breakouts.UpdateGroup(r.Context(), callerFrom(r), req.GroupID, service.GroupPatch{
		Name:         req.Name,
		Participants: req.Participants,
		Active:       req.Active,
		VoiceChannel: req.VoiceChannel,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, views.FromGroup(group), nil
}

func (h *handler) deleteGroup(r *http.Request, req actionRequest) (int, any, error) {
	if err := h.svc.Breakouts.DeleteGroup(r.Context(), callerFrom(r), req.GroupID); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, okResponse{OK: true}, nil
}

func (h *handler) removeMember(r *http.Request, req actionRequest) (int, any, error) {
	if err := h.svc.Membership.RemoveMember(r.Context(), callerFrom(r), req.RoomID, req.MemberID); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, okResponse{OK: true}, nil
}

func (h *handler) changeRole(r *http.Request, req actionRequest) (int, any, error) {
	member, err := h.svc.Membership.ChangeRole(r.Context(), callerFrom(r), req.RoomID, req.MemberID, req.Role)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, views.FromMember(member), nil
}

func (h *handler) addNote(r *http.Request, req actionRequest) (int, any, error) {
	note, err := h.svc.Rooms.AddNote(r.Context(), callerFrom(r), req.RoomID, req.Text)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, views.FromNote(note), nil
}

// removeNote deletes by note_id when given, by position otherwise.
func (h *handler) removeNote(r *http.Request, req actionRequest) (int, any, error) {
	ctx, caller := r.Context(), callerFrom(r)
	var err error
	switch {
	case strings.TrimSpace(req.NoteID) != "":
		err = h.svc.Rooms.RemoveNoteByID(ctx, caller, req.RoomID, req.NoteID)
	case req.Index != nil:
		err = h.svc.Rooms.RemoveNote(ctx, caller, req.RoomID, *req.Index)
	default:
		err = domain.Required("index")
	}
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, okResponse{OK: true}, nil
}

func (h *handler) setActive(r *http.Request, req actionRequest) (int, any, error) {
	if req.Active == nil {
		return 0, nil, domain.Required("active")
	}
	if err := h.svc.Rooms.SetRoomActive(r.Context(), callerFrom(r), req.RoomID, *req.Active); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, okResponse{OK: true}, nil
}
