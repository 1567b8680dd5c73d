// Package views holds the JSON shapes shared by the rooms HTTP and gRPC
// surfaces.
package views

import (
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

// Room is the JSON shape of a room snapshot.
type Room struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	ExperienceID    string        `json:"experience_id,omitempty"`
	OwnerID         string        `json:"owner_id"`
	OwnerName       string        `json:"owner_name,omitempty"`
	Active          bool          `json:"active"`
	StartedAt       string        `json:"started_at,omitempty"`
	Notes           []Note        `json:"notes"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
	Members         []Member      `json:"members"`
	PendingRequests []JoinRequest `json:"pending_requests"`
	Messages        []Message     `json:"messages"`
	Shares          []Share       `json:"shares"`
	Groups          []Group       `json:"groups"`
}

// Note is the JSON shape of a room note.
type Note struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// Member is the JSON shape of a room member.
type Member struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Approved bool   `json:"approved"`
}

// JoinRequest is the JSON shape of a join request.
type JoinRequest struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	ReviewedAt  string `json:"reviewed_at,omitempty"`
	ReviewedBy  string `json:"reviewed_by,omitempty"`
}

// Message is the JSON shape of a chat message.
type Message struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name,omitempty"`
	AuthorRole string `json:"author_role"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
}

// Share is the JSON shape of a screen share.
type Share struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name,omitempty"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// Group is the JSON shape of a breakout group.
type Group struct {
	ID           string   `json:"id"`
	RoomID       string   `json:"room_id"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	Active       bool     `json:"active"`
	VoiceChannel bool     `json:"voice_channel"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// formatTime renders RFC 3339 with nanoseconds. Zero times encode as "".
func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

// FromRoomViews converts snapshots, keeping their order.
func FromRoomViews(views []domain.RoomView) []Room {
	out := make([]Room, 0, len(views))
	for _, view := range views {
		out = append(out, FromRoomView(view))
	}
	return out
}

// FromRoomView converts one snapshot. Empty collections encode as [].
func FromRoomView(view domain.RoomView) Room {
	room := view.Room
	out := Room{
		ID:              room.ID,
		Title:           room.Title,
		ExperienceID:    room.ExperienceID,
		OwnerID:         room.OwnerID,
		OwnerName:       room.OwnerName,
		Active:          room.Active,
		StartedAt:       formatTime(room.StartedAt),
		Notes:           make([]Note, 0, len(room.Notes)),
		CreatedAt:       formatTime(room.CreatedAt),
		UpdatedAt:       formatTime(room.UpdatedAt),
		Members:         make([]Member, 0, len(view.Members)),
		PendingRequests: make([]JoinRequest, 0, len(view.PendingRequests)),
		Messages:        FromMessages(view.Messages),
		Shares:          make([]Share, 0, len(view.Shares)),
		Groups:          FromGroups(view.Groups),
	}
	for _, note := range room.Notes {
		out.Notes = append(out.Notes, FromNote(note))
	}
	for _, member := range view.Members {
		out.Members = append(out.Members, FromMember(member))
	}
	for _, request := range view.PendingRequests {
		out.PendingRequests = append(out.PendingRequests, FromJoinRequest(request))
	}
	for _, share := range view.Shares {
		out.Shares = append(out.Shares, FromShare(share))
	}
	return out
}

// FromNote converts a note.
func FromNote(note domain.Note) Note {
	return Note{ID: note.ID, Text: note.Text, CreatedAt: formatTime(note.CreatedAt)}
}

// FromMember converts a member.
func FromMember(member domain.Member) Member {
	return Member{
		ID:       member.ID,
		UserID:   member.UserID,
		Name:     member.Name,
		Role:     string(member.Role),
		Status:   string(member.Status),
		Approved: member.Approved,
	}
}

// FromJoinRequest converts a join request.
func FromJoinRequest(request domain.JoinRequest) JoinRequest {
	return JoinRequest{
		ID:          request.ID,
		RoomID:      request.RoomID,
		UserID:      request.UserID,
		UserName:    request.UserName,
		Role:        string(request.Role),
		Status:      string(request.Status),
		RequestedAt: formatTime(request.RequestedAt),
		ReviewedAt:  formatTime(request.ReviewedAt),
		ReviewedBy:  request.ReviewedBy,
	}
}

// FromMessages converts messages, keeping their order.
func FromMessages(messages []domain.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, message := range messages {
		out = append(out, FromMessage(message))
	}
	return out
}

// FromMessage converts a message.
func FromMessage(message domain.Message) Message {
	return Message{
		ID:         message.ID,
		RoomID:     message.RoomID,
		AuthorID:   message.AuthorID,
		AuthorName: message.AuthorName,
		AuthorRole: string(message.AuthorRole),
		Body:       message.Body,
		CreatedAt:  formatTime(message.CreatedAt),
	}
}

// FromShare converts a share.
func FromShare(share domain.ScreenShare) Share {
	return Share{
		ID:        share.ID,
		RoomID:    share.RoomID,
		OwnerID:   share.OwnerID,
		OwnerName: share.OwnerName,
		Kind:      string(share.Kind),
		Title:     share.Title,
		URL:       share.URL,
		Active:    share.Active,
		CreatedAt: formatTime(share.CreatedAt),
	}
}

// FromGroups converts groups, keeping their order.
func FromGroups(groups []domain.BreakoutGroup) []Group {
	out := make([]Group, 0, len(groups))
	for _, group := range groups {
		out = append(out, FromGroup(group))
	}
	return out
}

// FromGroup converts a group. A nil participant list encodes as [].
func FromGroup(group domain.BreakoutGroup) Group {
	participants := group.Participants
	if participants == nil {
		participants = []string{}
	}
	return Group{
		ID:           group.ID,
		RoomID:       group.RoomID,
		Name:         group.Name,
		Participants: participants,
		Active:       group.Active,
		VoiceChannel: group.VoiceChannel,
		CreatedAt:    formatTime(group.CreatedAt),
		UpdatedAt:    formatTime(group.UpdatedAt),
	}
}
