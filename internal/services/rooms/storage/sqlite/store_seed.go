package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

// SeedIfEmpty writes fixture rooms with their children when the rooms table
// is empty. The count and the inserts share one write transaction so
// concurrent cold starts seed at most once.
func (s *Store) SeedIfEmpty(ctx context.Context, fixtures []domain.RoomView) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	if len(fixtures) == 0 {
		return false, nil
	}

	seeded := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
			return fmt.Errorf("count rooms: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, fixture := range fixtures {
			if err := insertFixture(ctx, tx, fixture); err != nil {
				return fmt.Errorf("seed room %s: %w", fixture.Room.ID, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, translateWriteErr("seed rooms", err)
	}
	return seeded, nil
}

func insertFixture(ctx context.Context, tx *sql.Tx, fixture domain.RoomView) error {
	if err := insertRoom(ctx, tx, fixture.Room); err != nil {
		return err
	}
	for _, member := range fixture.Members {
		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}
	}
	for _, request := range fixture.PendingRequests {
		if err := insertJoinRequest(ctx, tx, request); err != nil {
			return err
		}
	}
	for _, message := range fixture.Messages {
		if err := insertMessage(ctx, tx, message); err != nil {
			return err
		}
	}
	for _, share := range fixture.Shares {
		if err := insertShare(ctx, tx, share); err != nil {
			return err
		}
	}
	for _, group := range fixture.Groups {
		if err := insertGroup(ctx, tx, group); err != nil {
			return err
		}
	}
	return nil
}
