package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

const groupColumns = `id, room_id, name, participants_json, active, voice_channel, created_at, updated_at`

// InsertGroup stores a breakout group.
func (s *Store) InsertGroup(ctx context.Context, group domain.BreakoutGroup) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := requireID("group id", group.ID); err != nil {
		return err
	}
	if _, err := requireID("room id", group.RoomID); err != nil {
		return err
	}
	if len(group.Participants) == 0 {
		return fmt.Errorf("participants are required")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertGroup(ctx, tx, group); err != nil {
			return err
		}
		return touchRoom(ctx, tx, group.RoomID, group.UpdatedAt)
	})
	return translateWriteErr("insert group", err)
}

func insertGroup(ctx context.Context, tx *sql.Tx, group domain.BreakoutGroup) error {
	participants, err := json.Marshal(group.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO breakout_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID,
		group.RoomID,
		group.Name,
		string(participants),
		boolToInt(group.Active),
		boolToInt(group.VoiceChannel),
		toMillis(group.CreatedAt),
		toMillis(group.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetGroup returns one group by id.
func (s *Store) GetGroup(ctx context.Context, groupID string) (domain.BreakoutGroup, error) {
	if err := s.ready(ctx); err != nil {
		return domain.BreakoutGroup{}, err
	}
	groupID, err := requireID("group id", groupID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}

	group, err := scanGroup(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM breakout_groups WHERE id = ?`, groupID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BreakoutGroup{}, storage.ErrNotFound
		}
		return domain.BreakoutGroup{}, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ListGroups returns room groups in creation order.
func (s *Store) ListGroups(ctx context.Context, roomID string) ([]domain.BreakoutGroup, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM breakout_groups WHERE room_id = ? ORDER BY created_at ASC, rowid ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.BreakoutGroup, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup writes only the fields set in patch, in one statement, and
// returns the stored group. Concurrent patches to different fields both
// survive.
func (s *Store) UpdateGroup(ctx context.Context, groupID string, patch storage.GroupPatch) (domain.BreakoutGroup, error) {
	if err := s.ready(ctx); err != nil {
		return domain.BreakoutGroup{}, err
	}
	groupID, err := requireID("group id", groupID)
	if err != nil {
		return domain.BreakoutGroup{}, err
	}

	var name, participants, active, voice any
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Participants != nil {
		if len(patch.Participants) == 0 {
			return domain.BreakoutGroup{}, fmt.Errorf("participants are required")
		}
		encoded, err := json.Marshal(patch.Participants)
		if err != nil {
			return domain.BreakoutGroup{}, fmt.Errorf("encode participants: %w", err)
		}
		participants = string(encoded)
	}
	if patch.Active != nil {
		active = boolToInt(*patch.Active)
	}
	if patch.VoiceChannel != nil {
		voice = boolToInt(*patch.VoiceChannel)
	}

	var group domain.BreakoutGroup
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`UPDATE breakout_groups
			    SET name = COALESCE(?, name),
			        participants_json = COALESCE(?, participants_json),
			        active = COALESCE(?, active),
			        voice_channel = COALESCE(?, voice_channel),
			        updated_at = MAX(updated_at, ?)
			  WHERE id = ?
			RETURNING `+groupColumns,
			name, participants, active, voice, toMillis(patch.UpdatedAt), groupID,
		)
		var err error
		group, err = scanGroup(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return touchRoom(ctx, tx, group.RoomID, patch.UpdatedAt)
	})
	if err != nil {
		return domain.BreakoutGroup{}, translateWriteErr("update group", err)
	}
	return group, nil
}

// DeleteGroup removes a group, returning storage.ErrNotFound when nothing
// was removed.
func (s *Store) DeleteGroup(ctx context.Context, groupID string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	groupID, err := requireID("group id", groupID)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var roomID string
		err := tx.QueryRowContext(ctx,
			`DELETE FROM breakout_groups WHERE id = ? RETURNING room_id`, groupID,
		).Scan(&roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return touchRoom(ctx, tx, roomID, updatedAt)
	})
	return translateWriteErr("delete group", err)
}

func scanGroup(row rowScanner) (domain.BreakoutGroup, error) {
	var group domain.BreakoutGroup
	var participants string
	var active, voice int
	var createdAt, updatedAt int64
	if err := row.Scan(
		&group.ID,
		&group.RoomID,
		&group.Name,
		&participants,
		&active,
		&voice,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.BreakoutGroup{}, err
	}
	if err := json.Unmarshal([]byte(participants), &group.Participants); err != nil {
		return domain.BreakoutGroup{}, fmt.Errorf("decode participants: %w", err)
	}
	group.Active = active == 1
	group.VoiceChannel = voice == 1
	group.CreatedAt = fromMillis(createdAt)
	group.UpdatedAt = fromMillis(updatedAt)
	return group, nil
}
