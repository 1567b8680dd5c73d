// Package seed bootstraps an empty rooms store with the embedded fixture
// rooms so local and demo environments start with something to show.
package seed

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Seeder writes fixtures into a store that has no rooms yet.
type Seeder struct {
	store    storage.FixtureStore
	fixtures []domain.RoomView
}

// New builds a seeder for fixtures.
func New(store storage.FixtureStore, fixtures []domain.RoomView) (*Seeder, error) {
	if store == nil {
		return nil, errors.New("fixture store is required")
	}
	return &Seeder{store: store, fixtures: fixtures}, nil
}

// SeedIfEmpty writes the fixtures when no room exists. It reports whether
// anything was written; a populated store is left untouched.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (bool, error) {
	if s == nil || s.store == nil {
		return false, errors.New("seeder is not configured")
	}
	seeded, err := s.store.SeedIfEmpty(ctx, s.fixtures)
	if err != nil {
		return false, fmt.Errorf("seed rooms: %w", err)
	}
	if seeded {
		log.Printf("seeded %d fixture rooms", len(s.fixtures))
	}
	return seeded, nil
}

// LoadFixtures reads every embedded fixture file in name order.
func LoadFixtures() ([]domain.RoomView, error) {
	return loadFixtures(fixtureFS, "fixtures")
}

func loadFixtures(fsys fs.FS, dir string) ([]domain.RoomView, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var views []domain.RoomView
	seen := map[string]struct{}{}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", name, err)
		}
		parsed, err := parseFixtureFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", name, err)
		}
		for _, view := range parsed {
			if _, ok := seen[view.Room.ID]; ok {
				return nil, fmt.Errorf("fixture %s: duplicate room %s", name, view.Room.ID)
			}
			seen[view.Room.ID] = struct{}{}
			views = append(views, view)
		}
	}
	return views, nil
}

type fixtureFile struct {
	Rooms []roomFixture `json:"rooms"`
}

type roomFixture struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	ExperienceID string               `json:"experience_id"`
	OwnerID      string               `json:"owner_id"`
	OwnerName    string               `json:"owner_name"`
	Active       bool                 `json:"active"`
	StartedAt    time.Time            `json:"started_at"`
	CreatedAt    time.Time            `json:"created_at"`
	Notes        []string             `json:"notes"`
	Members      []memberFixture      `json:"members"`
	JoinRequests []joinRequestFixture `json:"join_requests"`
	Messages     []messageFixture     `json:"messages"`
	Shares       []shareFixture       `json:"shares"`
	Groups       []groupFixture       `json:"groups"`
}

type memberFixture struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type joinRequestFixture struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Role        string    `json:"role"`
	RequestedAt time.Time `json:"requested_at"`
}

type messageFixture struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	AuthorRole string    `json:"author_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type shareFixture struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type groupFixture struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	Active       bool      `json:"active"`
	VoiceChannel bool      `json:"voice_channel"`
	CreatedAt    time.Time `json:"created_at"`
}

func parseFixtureFile(data []byte) ([]domain.RoomView, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var file fixtureFile
	if err := decoder.Decode(&file); err != nil {
		return nil, err
	}
	views := make([]domain.RoomView, 0, len(file.Rooms))
	for _, room := range file.Rooms {
		view, err := room.toView()
		if err != nil {
			return nil, fmt.Errorf("room %q: %w", room.ID, err)
		}
		views = append(views, view)
	}
	return views, nil
}

// toView validates a fixture room and fills in defaults. Children without a
// timestamp take the room creation time, and the room update time is the
// newest child timestamp.
func (f roomFixture) toView() (domain.RoomView, error) {
	if strings.TrimSpace(f.ID) == "" {
		return domain.RoomView{}, errors.New("id is required")
	}
	title, err := domain.RequireText("title", f.Title, domain.MaxTitleRunes)
	if err != nil {
		return domain.RoomView{}, err
	}
	if f.CreatedAt.IsZero() {
		return domain.RoomView{}, errors.New("created_at is required")
	}
	created := f.CreatedAt.UTC()
	updated := created
	touch := func(at time.Time) time.Time {
		if at.IsZero() {
			return created
		}
		at = at.UTC()
		if at.After(updated) {
			updated = at
		}
		return at
	}

	room := domain.Room{
		ID:           f.ID,
		Title:        title,
		ExperienceID: f.ExperienceID,
		OwnerID:      f.OwnerID,
		OwnerName:    f.OwnerName,
		Active:       f.Active,
		CreatedAt:    created,
	}
	if f.Active {
		room.StartedAt = touch(f.StartedAt)
	}
	for i, text := range f.Notes {
		text, err := domain.RequireText("note", text, domain.MaxNoteRunes)
		if err != nil {
			return domain.RoomView{}, err
		}
		room.Notes = append(room.Notes, domain.Note{ID: fmt.Sprintf("%s-note-%d", f.ID, i+1), Text: text, CreatedAt: created})
	}

	view := domain.RoomView{}
	ownerIsTeacher := false
	for _, m := range f.Members {
		role, err := domain.ParseMemberRole(m.Role)
		if err != nil {
			return domain.RoomView{}, err
		}
		status, err := domain.ParseMemberStatus(m.Status)
		if err != nil {
			return domain.RoomView{}, err
		}
		if m.UserID == f.OwnerID && role == domain.MemberRoleTeacher {
			ownerIsTeacher = true
		}
		view.Members = append(view.Members, domain.Member{
			ID: m.ID, RoomID: f.ID, UserID: m.UserID, Name: m.Name, Role: role,
			Status: status, Approved: true, CreatedAt: created, UpdatedAt: created,
		})
	}
	if !ownerIsTeacher {
		return domain.RoomView{}, fmt.Errorf("owner %q must be a teacher member", f.OwnerID)
	}
	for _, r := range f.JoinRequests {
		role, err := domain.ParseMemberRole(r.Role)
		if err != nil {
			return domain.RoomView{}, err
		}
		view.PendingRequests = append(view.PendingRequests, domain.JoinRequest{
			ID: r.ID, RoomID: f.ID, UserID: r.UserID, UserName: r.UserName, Role: role,
			Status: domain.RequestStatusPending, RequestedAt: touch(r.RequestedAt),
		})
	}
	for _, m := range f.Messages {
		role, err := domain.ParseAuthorRole(m.AuthorRole)
		if err != nil {
			return domain.RoomView{}, err
		}
		body, err := domain.RequireText("body", m.Body, domain.MaxMessageBodyRunes)
		if err != nil {
			return domain.RoomView{}, err
		}
		view.Messages = append(view.Messages, domain.Message{
			ID: m.ID, RoomID: f.ID, AuthorID: m.AuthorID, AuthorName: m.AuthorName,
			AuthorRole: role, Body: body, CreatedAt: touch(m.CreatedAt),
		})
	}
	for _, s := range f.Shares {
		kind, err := domain.ParseShareKind(s.Kind)
		if err != nil {
			return domain.RoomView{}, err
		}
		target, err := domain.NormalizeShareURL(s.URL)
		if err != nil {
			return domain.RoomView{}, err
		}
		view.Shares = append(view.Shares, domain.ScreenShare{
			ID: s.ID, RoomID: f.ID, OwnerID: s.OwnerID, OwnerName: s.OwnerName, Kind: kind,
			Title: s.Title, URL: target, Active: s.Active, CreatedAt: touch(s.CreatedAt),
		})
	}
	for _, g := range f.Groups {
		participants, err := domain.NormalizeParticipants(g.Participants)
		if err != nil {
			return domain.RoomView{}, err
		}
		at := touch(g.CreatedAt)
		view.Groups = append(view.Groups, domain.BreakoutGroup{
			ID: g.ID, RoomID: f.ID, Name: g.Name, Participants: participants,
			Active: g.Active, VoiceChannel: g.VoiceChannel, CreatedAt: at, UpdatedAt: at,
		})
	}

	room.UpdatedAt = updated
	view.Room = room
	return view, nil
}
