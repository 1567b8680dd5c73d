package seed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	roomsqlite "github.com/louisbranch/classroom.space/internal/services/rooms/storage/sqlite"
)

func openTempStore(t *testing.T) *roomsqlite.Store {
	t.Helper()
	store, err := roomsqlite.Open(filepath.Join(t.TempDir(), "rooms.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestLoadFixtures(t *testing.T) {
	t.Parallel()

	views, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("rooms = %d, want 2", len(views))
	}
	lab := views[0]
	if lab.Room.ID != "room-photosynthesis" {
		t.Fatalf("first room = %q, want %q", lab.Room.ID, "room-photosynthesis")
	}
	if len(lab.Room.Notes) != 2 || lab.Room.Notes[0].ID != "room-photosynthesis-note-1" {
		t.Fatalf("notes = %+v", lab.Room.Notes)
	}
	if len(lab.PendingRequests) != 1 || lab.PendingRequests[0].Status != domain.RequestStatusPending {
		t.Fatalf("pending = %+v", lab.PendingRequests)
	}
	wantUpdated := time.Date(2026, time.January, 12, 14, 7, 0, 0, time.UTC)
	if !lab.Room.UpdatedAt.Equal(wantUpdated) {
		t.Fatalf("updated_at = %v, want %v", lab.Room.UpdatedAt, wantUpdated)
	}

	closed := views[1]
	if closed.Room.Active || !closed.Room.StartedAt.IsZero() {
		t.Fatalf("closed room = %+v, want inactive without start", closed.Room)
	}
	if !closed.Room.UpdatedAt.Equal(closed.Room.CreatedAt) {
		t.Fatalf("updated_at = %v, want created_at %v", closed.Room.UpdatedAt, closed.Room.CreatedAt)
	}
}

func TestLoadFixturesRejectsBadFiles(t *testing.T) {
	t.Parallel()

	valid := `{"rooms":[{"id":"r1","title":"T","owner_id":"t1","created_at":"2026-01-01T00:00:00Z",` +
		`"members":[{"id":"m1","user_id":"t1","role":"teacher","status":"online"}]}]}`
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "unknown field",
			files: map[string]string{"a.json": `{"rooms":[{"id":"r1","colour":"red"}]}`},
			want:  "colour",
		},
		{
			name: "owner not a teacher",
			files: map[string]string{"a.json": `{"rooms":[{"id":"r1","title":"T","owner_id":"t1","created_at":"2026-01-01T00:00:00Z",` +
				`"members":[{"id":"m1","user_id":"t1","role":"student","status":"online"}]}]}`},
			want: "must be a teacher member",
		},
		{
			name: "bad share kind",
			files: map[string]string{"a.json": `{"rooms":[{"id":"r1","title":"T","owner_id":"t1","created_at":"2026-01-01T00:00:00Z",` +
				`"members":[{"id":"m1","user_id":"t1","role":"teacher","status":"online"}],` +
				`"shares":[{"id":"s1","kind":"video","title":"x","url":"https://example.com"}]}]}`},
			want: "kind",
		},
		{
			name:  "duplicate room across files",
			files: map[string]string{"a.json": valid, "b.json": valid},
			want:  "duplicate room r1",
		},
		{
			name:  "missing created_at",
			files: map[string]string{"a.json": `{"rooms":[{"id":"r1","title":"T"}]}`},
			want:  "created_at is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fsys := fstest.MapFS{}
			for name, body := range tt.files {
				fsys["fixtures/"+name] = &fstest.MapFile{Data: []byte(body)}
			}
			_, err := loadFixtures(fsys, "fixtures")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestSeederWritesFixturesOnce(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	seeder, err := New(store, fixtures)
	if err != nil {
		t.Fatalf("new seeder: %v", err)
	}
	ctx := context.Background()

	seeded, err := seeder.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("expected fixtures to be written")
	}
	seeded, err = seeder.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if seeded {
		t.Fatal("expected second seed to be a no-op")
	}

	messages, err := store.ListMessages(ctx, "room-photosynthesis", 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 || messages[2].AuthorRole != domain.AuthorRoleAssistant {
		t.Fatalf("messages = %+v", messages)
	}
}

func TestSeederSkipsPopulatedStore(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	room := domain.Room{ID: "existing", Title: "Existing", OwnerID: "t1", Active: true, StartedAt: at, CreatedAt: at, UpdatedAt: at}
	owner := domain.Member{
		ID: "existing-owner", RoomID: "existing", UserID: "t1", Role: domain.MemberRoleTeacher,
		Status: domain.MemberStatusInSim, Approved: true, CreatedAt: at, UpdatedAt: at,
	}
	if err := store.CreateRoomWithOwner(ctx, room, owner); err != nil {
		t.Fatalf("create room: %v", err)
	}
	fixtures, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	seeder, err := New(store, fixtures)
	if err != nil {
		t.Fatalf("new seeder: %v", err)
	}

	seeded, err := seeder.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Fatal("seeder should not write into a populated store")
	}
	count, err := store.CountRooms(ctx)
	if err != nil {
		t.Fatalf("count rooms: %v", err)
	}
	if count != 1 {
		t.Fatalf("rooms = %d, want 1", count)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected missing store error")
	}
}
