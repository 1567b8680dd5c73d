package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

func TestPostMessageOrdering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)
	f.joinApproved(t, room, student1)

	for _, body := range []string{"A", "B"} {
		if _, err := f.svc.Messages.PostMessage(ctx, teacher, room.ID, body); err != nil {
			t.Fatalf("post %s: %v", body, err)
		}
	}
	if _, err := f.svc.Messages.PostMessage(ctx, student1, room.ID, "M"); err != nil {
		t.Fatalf("post M: %v", err)
	}

	messages, err := f.svc.Messages.ListMessages(ctx, student1, room.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	var bodies []string
	for _, message := range messages {
		bodies = append(bodies, message.Body)
	}
	if got := strings.Join(bodies, ","); got != "A,B,M" {
		t.Fatalf("bodies = %q, want %q", got, "A,B,M")
	}
	if messages[0].AuthorRole != domain.AuthorRoleTeacher {
		t.Fatalf("teacher author role = %q", messages[0].AuthorRole)
	}

	latest, err := f.svc.Messages.ListMessages(ctx, student1, room.ID, 2)
	if err != nil {
		t.Fatalf("list latest: %v", err)
	}
	if len(latest) != 2 || latest[0].Body != "B" || latest[1].Body != "M" {
		t.Fatalf("latest = %+v, want B then M", latest)
	}
}

func TestPostedMessageMatchesStoredCopy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	svc, err := New(f.store, WithClock(func() time.Time {
		return time.Date(2026, time.March, 2, 10, 0, 0, 123456789, time.UTC)
	}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	posted, err := svc.Messages.PostMessage(ctx, teacher, room.ID, "Welcome")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	want := time.Date(2026, time.March, 2, 10, 0, 0, 123000000, time.UTC)
	if !posted.CreatedAt.Equal(want) {
		t.Fatalf("created at = %s, want %s", posted.CreatedAt, want)
	}

	messages, err := svc.Messages.ListMessages(ctx, teacher, room.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 || !messages[0].CreatedAt.Equal(posted.CreatedAt) || messages[0].ID != posted.ID {
		t.Fatalf("messages = %+v, want the posted message %+v", messages, posted)
	}
}

func TestPostMessageRequiresMembership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	_, err := f.svc.Messages.PostMessage(ctx, outsider, room.ID, "hi")
	assertCode(t, err, apperrors.CodeMembershipRequired)

	if _, err := f.svc.Membership.RequestJoin(ctx, student1, room.ID, "", ""); err != nil {
		t.Fatalf("request join: %v", err)
	}
	_, err = f.svc.Messages.PostMessage(ctx, student1, room.ID, "hi")
	assertCode(t, err, apperrors.CodeMembershipRequired)

	messages, err := f.store.ListMessages(ctx, room.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("messages = %d, want 0", len(messages))
	}
}

func TestAssistantPostsWithoutMembership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	room := f.createRoom(t, teacher)

	message, err := f.svc.Messages.PostMessage(context.Background(), assistant, room.ID, "Try balancing the equation first.")
	if err != nil {
		t.Fatalf("assistant post: %v", err)
	}
	if message.AuthorRole != domain.AuthorRoleAssistant || message.AuthorName != assistant.Name {
		t.Fatalf("message = %+v, want assistant author", message)
	}
}

func TestPostMessageValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	_, err := f.svc.Messages.PostMessage(ctx, teacher, room.ID, "   ")
	assertCode(t, err, apperrors.CodeValidationRequired)
	_, err = f.svc.Messages.PostMessage(ctx, teacher, room.ID, strings.Repeat("a", domain.MaxMessageBodyRunes+1))
	assertCode(t, err, apperrors.CodeValidationTooLong)
	_, err = f.svc.Messages.PostMessage(ctx, teacher, "missing", "hi")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestPostMessageInactiveRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)
	if err := f.svc.Rooms.SetRoomActive(ctx, teacher, room.ID, false); err != nil {
		t.Fatalf("close room: %v", err)
	}

	_, err := f.svc.Messages.PostMessage(ctx, teacher, room.ID, "anyone?")
	assertCode(t, err, apperrors.CodeRoomInactive)

	// Joins stay open while a room is closed.
	result, err := f.svc.Membership.RequestJoin(ctx, student1, room.ID, "", "")
	if err != nil {
		t.Fatalf("request join: %v", err)
	}
	if result.Outcome != domain.JoinOutcomeRequestCreated {
		t.Fatalf("outcome = %q, want %q", result.Outcome, domain.JoinOutcomeRequestCreated)
	}
}

func TestGroupLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	group, err := f.svc.Breakouts.CreateGroup(ctx, teacher, room.ID, GroupInput{
		Name:         "Table 1",
		Participants: []string{" Ana ", "Ben", "Ana"},
		VoiceChannel: true,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if !group.Active || strings.Join(group.Participants, ",") != "Ana,Ben" {
		t.Fatalf("group = %+v, want active with Ana,Ben", group)
	}

	name := "Table 1A"
	inactive := false
	updated, err := f.svc.Breakouts.UpdateGroup(ctx, teacher, group.ID, GroupPatch{Name: &name, Active: &inactive})
	if err != nil {
		t.Fatalf("update group: %v", err)
	}
	if updated.Name != name || updated.Active || !updated.VoiceChannel || len(updated.Participants) != 2 {
		t.Fatalf("updated = %+v, want renamed inactive group with kept fields", updated)
	}
	if !updated.UpdatedAt.After(group.UpdatedAt) {
		t.Fatalf("updated_at %v not after %v", updated.UpdatedAt, group.UpdatedAt)
	}

	groups, err := f.svc.Breakouts.ListGroups(ctx, student1, room.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != name {
		t.Fatalf("groups = %+v", groups)
	}

	if err := f.svc.Breakouts.DeleteGroup(ctx, teacher, group.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	err = f.svc.Breakouts.DeleteGroup(ctx, teacher, group.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.svc.Breakouts.UpdateGroup(ctx, teacher, group.ID, GroupPatch{Name: &name})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGroupValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	_, err := f.svc.Breakouts.CreateGroup(ctx, teacher, room.ID, GroupInput{Name: "", Participants: []string{"Ana"}})
	assertCode(t, err, apperrors.CodeValidationRequired)
	_, err = f.svc.Breakouts.CreateGroup(ctx, teacher, room.ID, GroupInput{Name: "Empty", Participants: []string{" "}})
	assertCode(t, err, apperrors.CodeValidationRequired)
}

func TestGroupChangesRequireManager(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)
	group, err := f.svc.Breakouts.CreateGroup(ctx, teacher, room.ID, GroupInput{Name: "Table 2", Participants: []string{"Ana"}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	_, err = f.svc.Breakouts.CreateGroup(ctx, student1, room.ID, GroupInput{Name: "Mine", Participants: []string{"Ana"}})
	assertCode(t, err, apperrors.CodeForbidden)
	name := "Hijacked"
	_, err = f.svc.Breakouts.UpdateGroup(ctx, student1, group.ID, GroupPatch{Name: &name})
	assertCode(t, err, apperrors.CodeForbidden)
	err = f.svc.Breakouts.DeleteGroup(ctx, student1, group.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	groups, err := f.store.ListGroups(ctx, room.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Table 2" {
		t.Fatalf("groups = %+v, want untouched Table 2", groups)
	}
}

// interleavedStore runs between once, right after the first group read, so
// another writer can commit while a patch is still in flight.
type interleavedStore struct {
	storage.Store
	once    sync.Once
	between func()
}

func (s *interleavedStore) GetGroup(ctx context.Context, groupID string) (domain.BreakoutGroup, error) {
	group, err := s.Store.GetGroup(ctx, groupID)
	s.once.Do(s.between)
	return group, err
}

func TestInterleavedGroupPatchesKeepBothFields(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)
	group, err := f.svc.Breakouts.CreateGroup(ctx, teacher, room.ID, GroupInput{Name: "Table 1", Participants: []string{"Ana"}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	inactive := false
	interleaved := &interleavedStore{Store: f.store}
	interleaved.between = func() {
		if _, err := f.svc.Breakouts.UpdateGroup(ctx, teacher, group.ID, GroupPatch{Active: &inactive}); err != nil {
			t.Errorf("deactivate group: %v", err)
		}
	}
	svc, err := New(interleaved)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	name := "Table 1A"
	updated, err := svc.Breakouts.UpdateGroup(ctx, teacher, group.ID, GroupPatch{Name: &name})
	if err != nil {
		t.Fatalf("rename group: %v", err)
	}
	if updated.Name != name || updated.Active {
		t.Fatalf("updated = %+v, want renamed and inactive", updated)
	}
	stored, err := f.store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stored.Name != name || stored.Active {
		t.Fatalf("stored = %+v, want renamed and inactive", stored)
	}
}

func TestShareLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	share, err := f.svc.Shares.CreateShare(ctx, student1, room.ID, ShareInput{Kind: "simulation", Title: "My lab", URL: "https://example.com/lab"})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	if !share.Active || share.OwnerID != student1.ID {
		t.Fatalf("share = %+v, want active share owned by student", share)
	}
	second, err := f.svc.Shares.CreateShare(ctx, student2, room.ID, ShareInput{Kind: "simulation", Title: "Ben's lab", URL: "https://example.com/ben"})
	if err != nil {
		t.Fatalf("create second share: %v", err)
	}

	_, err = f.svc.Shares.DeactivateShare(ctx, student2, share.ID)
	assertCode(t, err, apperrors.CodeForbidden)
	stopped, err := f.svc.Shares.DeactivateShare(ctx, student1, share.ID)
	if err != nil {
		t.Fatalf("owner deactivate: %v", err)
	}
	if stopped.Active {
		t.Fatal("share should be inactive")
	}
	if _, err := f.svc.Shares.DeactivateShare(ctx, teacher, second.ID); err != nil {
		t.Fatalf("room owner deactivate: %v", err)
	}
	_, err = f.svc.Shares.DeactivateShare(ctx, teacher, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestShareValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	_, err := f.svc.Shares.CreateShare(ctx, student1, room.ID, ShareInput{Kind: "hologram", Title: "x", URL: "https://example.com"})
	assertCode(t, err, apperrors.CodeValidationInvalidEnum)
	_, err = f.svc.Shares.CreateShare(ctx, student1, room.ID, ShareInput{Kind: "simulation", Title: "x", URL: "javascript:alert(1)"})
	assertCode(t, err, apperrors.CodeValidationInvalidURL)
	_, err = f.svc.Shares.CreateShare(ctx, student1, room.ID, ShareInput{Kind: "simulation", Title: " ", URL: "https://example.com"})
	assertCode(t, err, apperrors.CodeValidationRequired)
}

func TestSnapshotShowsOnlyPendingRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	room := f.createRoom(t, teacher)

	approved, err := f.svc.Membership.RequestJoin(ctx, student1, room.ID, "", "")
	if err != nil {
		t.Fatalf("join student1: %v", err)
	}
	if _, _, err := f.svc.Membership.ApproveJoinRequest(ctx, teacher, room.ID, approved.RequestID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	waiting, err := f.svc.Membership.RequestJoin(ctx, student2, room.ID, "", "")
	if err != nil {
		t.Fatalf("join student2: %v", err)
	}
	if _, err := f.svc.Messages.PostMessage(ctx, student1, room.ID, "hello"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := f.svc.Shares.CreateShare(ctx, student1, room.ID, ShareInput{Kind: "simulation", Title: "lab", URL: "https://example.com"}); err != nil {
		t.Fatalf("share: %v", err)
	}

	views, err := f.svc.Rooms.ListRooms(ctx, outsider)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("rooms = %d, want 1", len(views))
	}
	view := views[0]
	if len(view.PendingRequests) != 1 || view.PendingRequests[0].ID != waiting.RequestID {
		t.Fatalf("pending = %+v, want only %s", view.PendingRequests, waiting.RequestID)
	}
	if len(view.Members) != 2 || len(view.Messages) != 1 || len(view.Shares) != 1 {
		t.Fatalf("view = %d members, %d messages, %d shares", len(view.Members), len(view.Messages), len(view.Shares))
	}
	if !view.Room.UpdatedAt.After(room.UpdatedAt) {
		t.Fatalf("room updated_at %v not after %v", view.Room.UpdatedAt, room.UpdatedAt)
	}
}
