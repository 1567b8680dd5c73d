package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

const roomColumns = `id, title, experience_id, owner_id, owner_name, active, started_at, created_at, updated_at`

// CreateRoomWithOwner inserts a room and its owner member atomically.
func (s *Store) CreateRoomWithOwner(ctx context.Context, room domain.Room, owner domain.Member) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := requireID("room id", room.ID); err != nil {
		return err
	}
	if strings.TrimSpace(room.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(room.OwnerID) == "" || owner.UserID != room.OwnerID {
		return fmt.Errorf("owner member must match room owner")
	}
	if owner.RoomID != room.ID {
		return fmt.Errorf("owner member must belong to room")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRoom(ctx, tx, room); err != nil {
			return err
		}
		return insertMember(ctx, tx, owner)
	})
	return translateWriteErr("create room", err)
}

func insertRoom(ctx context.Context, tx *sql.Tx, room domain.Room) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Title,
		room.ExperienceID,
		room.OwnerID,
		room.OwnerName,
		boolToInt(room.Active),
		toMillis(room.StartedAt),
		toMillis(room.CreatedAt),
		toMillis(room.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	for i, note := range room.Notes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_notes (id, room_id, position, body, created_at) VALUES (?, ?, ?, ?, ?)`,
			note.ID, room.ID, i+1, note.Text, toMillis(note.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert room note: %w", err)
		}
	}
	return nil
}

// GetRoom returns one room with its notes.
func (s *Store) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Room{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.Room{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, roomID)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, storage.ErrNotFound
		}
		return domain.Room{}, fmt.Errorf("get room: %w", err)
	}
	notes, err := s.listNotes(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	room.Notes = notes
	return room, nil
}

// ListRooms returns every room with its notes, newest first.
func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rooms: %w", err)
	}

	for i := range rooms {
		notes, err := s.listNotes(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Notes = notes
	}
	return rooms, nil
}

// CountRooms returns the number of stored rooms.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return count, nil
}

// SetRoomActive opens or closes a room.
func (s *Store) SetRoomActive(ctx context.Context, roomID string, active bool, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE rooms
		    SET active = ?,
		        started_at = CASE WHEN ? = 1 AND active = 0 THEN ? ELSE started_at END,
		        updated_at = ?
		  WHERE id = ?`,
		boolToInt(active), boolToInt(active), toMillis(updatedAt), toMillis(updatedAt), roomID,
	)
	if err != nil {
		return fmt.Errorf("set room active: %w", err)
	}
	return requireAffected(result)
}

// AddNote appends a note after the current last position.
func (s *Store) AddNote(ctx context.Context, roomID string, note domain.Note) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return err
	}
	if _, err := requireID("note id", note.ID); err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchRoom(ctx, tx, roomID, note.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_notes (id, room_id, position, body, created_at)
			 SELECT ?, ?, COALESCE(MAX(position), 0) + 1, ?, ?
			   FROM room_notes
			  WHERE room_id = ?`,
			note.ID, roomID, note.Text, toMillis(note.CreatedAt), roomID,
		)
		return err
	})
	return translateWriteErr("add note", err)
}

// RemoveNoteAt deletes the note at a zero-based index.
func (s *Store) RemoveNoteAt(ctx context.Context, roomID string, index int, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return err
	}
	if index < 0 {
		return storage.ErrNotFound
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM room_notes
			  WHERE id = (
			    SELECT id FROM room_notes
			     WHERE room_id = ?
			     ORDER BY position ASC
			     LIMIT 1 OFFSET ?
			  )`,
			roomID, index,
		)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return touchRoom(ctx, tx, roomID, updatedAt)
	})
	return translateWriteErr("remove note", err)
}

// RemoveNote deletes a note by its stable id.
func (s *Store) RemoveNote(ctx context.Context, roomID, noteID string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return err
	}
	noteID, err = requireID("note id", noteID)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM room_notes WHERE room_id = ? AND id = ?`, roomID, noteID,
		)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return touchRoom(ctx, tx, roomID, updatedAt)
	})
	return translateWriteErr("remove note", err)
}

func (s *Store) listNotes(ctx context.Context, roomID string) ([]domain.Note, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, body, created_at FROM room_notes WHERE room_id = ? ORDER BY position ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list room notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var note domain.Note
		var createdAt int64
		if err := rows.Scan(&note.ID, &note.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan room note: %w", err)
		}
		note.CreatedAt = fromMillis(createdAt)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room notes: %w", err)
	}
	return notes, nil
}

func scanRoom(row rowScanner) (domain.Room, error) {
	var room domain.Room
	var active int
	var startedAt, createdAt, updatedAt int64
	if err := row.Scan(
		&room.ID,
		&room.Title,
		&room.ExperienceID,
		&room.OwnerID,
		&room.OwnerName,
		&active,
		&startedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Room{}, err
	}
	room.Active = active == 1
	room.StartedAt = fromMillis(startedAt)
	room.CreatedAt = fromMillis(createdAt)
	room.UpdatedAt = fromMillis(updatedAt)
	return room, nil
}
