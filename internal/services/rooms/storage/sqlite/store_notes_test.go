package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

func noteTexts(t *testing.T, store *Store, roomID string) string {
	t.Helper()
	room, err := store.GetRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	return strings.Join(room.NoteTexts(), ",")
}

func TestAddAndRemoveNotesPositionally(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedRoom(t, store, "room-1", "teacher-1")

	for i, text := range []string{"a", "b", "c"} {
		note := domain.Note{ID: fmt.Sprintf("note-%d", i), Text: text, CreatedAt: baseTime.Add(time.Duration(i) * time.Second)}
		if err := store.AddNote(ctx, "room-1", note); err != nil {
			t.Fatalf("add note %q: %v", text, err)
		}
	}
	if got := noteTexts(t, store, "room-1"); got != "a,b,c" {
		t.Fatalf("notes = %q, want %q", got, "a,b,c")
	}

	if err := store.RemoveNoteAt(ctx, "room-1", 1, baseTime.Add(time.Minute)); err != nil {
		t.Fatalf("remove note at 1: %v", err)
	}
	if got := noteTexts(t, store, "room-1"); got != "a,c" {
		t.Fatalf("notes = %q, want %q", got, "a,c")
	}
	if err := store.RemoveNoteAt(ctx, "room-1", 2, baseTime.Add(time.Minute)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("out of range error = %v, want %v", err, storage.ErrNotFound)
	}

	// Positions keep growing after deletes so new notes stay last.
	if err := store.AddNote(ctx, "room-1", domain.Note{ID: "note-d", Text: "d", CreatedAt: baseTime.Add(time.Hour)}); err != nil {
		t.Fatalf("add note d: %v", err)
	}
	if got := noteTexts(t, store, "room-1"); got != "a,c,d" {
		t.Fatalf("notes = %q, want %q", got, "a,c,d")
	}

	if err := store.RemoveNote(ctx, "room-1", "note-0", baseTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("remove note by id: %v", err)
	}
	if got := noteTexts(t, store, "room-1"); got != "c,d" {
		t.Fatalf("notes = %q, want %q", got, "c,d")
	}
	if err := store.RemoveNote(ctx, "room-1", "note-0", baseTime.Add(2*time.Hour)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second remove error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestAddNoteMissingRoom(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.AddNote(context.Background(), "missing", domain.Note{ID: "n", Text: "x", CreatedAt: baseTime})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestConcurrentNoteWritersDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedRoom(t, store, "room-1", "teacher-1")

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.AddNote(context.Background(), "room-1", domain.Note{
				ID:        fmt.Sprintf("note-%02d", i),
				Text:      fmt.Sprintf("n%02d", i),
				CreatedAt: baseTime,
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("add note: %v", err)
		}
	}

	room, err := store.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if len(room.Notes) != writers {
		t.Fatalf("notes = %d, want %d", len(room.Notes), writers)
	}
}
