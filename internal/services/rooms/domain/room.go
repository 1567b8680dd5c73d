package domain

import "time"

// Room is a live collaboration session tied to one learning experience.
type Room struct {
	ID           string
	Title        string
	ExperienceID string
	// OwnerID always names an existing or historical teacher member.
	OwnerID   string
	OwnerName string
	Active    bool
	StartedAt time.Time
	// Notes is ordered by insertion.
	Notes     []Note
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is one free-text room note with a stable id.
type Note struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// NoteTexts returns the note bodies in order.
func (r Room) NoteTexts() []string {
	texts := make([]string, 0, len(r.Notes))
	for _, note := range r.Notes {
		texts = append(texts, note.Text)
	}
	return texts
}

// Member is an occupant of a room. Only approved members may post.
type Member struct {
	ID        string
	RoomID    string
	UserID    string
	Name      string
	Role      MemberRole
	Status    MemberStatus
	Approved  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JoinRequest is a pending or resolved ask to join a room. Resolved requests
// are immutable history.
type JoinRequest struct {
	ID          string
	RoomID      string
	UserID      string
	UserName    string
	Role        MemberRole
	Status      RequestStatus
	RequestedAt time.Time
	ReviewedAt  time.Time
	ReviewedBy  string
}

// Resolved reports whether the request left the pending state.
func (r JoinRequest) Resolved() bool {
	return r.Status != RequestStatusPending
}

// Message is one append-only chat entry.
type Message struct {
	ID         string
	RoomID     string
	AuthorID   string
	AuthorName string
	AuthorRole AuthorRole
	Body       string
	CreatedAt  time.Time
}

// ScreenShare is a registered pointer to shared visual content.
type ScreenShare struct {
	ID        string
	RoomID    string
	OwnerID   string
	OwnerName string
	Kind      ShareKind
	Title     string
	URL       string
	Active    bool
	CreatedAt time.Time
}

// BreakoutGroup is a named sub-team inside a room.
type BreakoutGroup struct {
	ID           string
	RoomID       string
	Name         string
	Participants []string
	Active       bool
	VoiceChannel bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoomView is the read-optimized composition of a room.
type RoomView struct {
	Room    Room
	Members []Member
	// PendingRequests never includes resolved requests.
	PendingRequests []JoinRequest
	Messages        []Message
	Shares          []ScreenShare
	Groups          []BreakoutGroup
}
