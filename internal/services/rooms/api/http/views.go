package httpapi

import "github.com/louisbranch/classroom.space/internal/services/rooms/api/views"

type roomsResponse struct {
	Rooms []views.Room `json:"rooms"`
}

type createRoomResponse struct {
	RoomID string       `json:"room_id"`
	Rooms  []views.Room `json:"rooms"`
}

type messagesResponse struct {
	Messages []views.Message `json:"messages"`
}

type groupsResponse struct {
	Groups []views.Group `json:"groups"`
}

type joinResponse struct {
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
}

type reviewResponse struct {
	Request views.JoinRequest `json:"request"`
	Member  *views.Member     `json:"member,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

