package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
)

// AppendMessage appends one chat entry and bumps the room updated_at.
func (s *Store) AppendMessage(ctx context.Context, message domain.Message) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := requireID("message id", message.ID); err != nil {
		return err
	}
	if _, err := requireID("room id", message.RoomID); err != nil {
		return err
	}
	if strings.TrimSpace(message.Body) == "" {
		return fmt.Errorf("message body is required")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, message); err != nil {
			return err
		}
		return touchRoom(ctx, tx, message.RoomID, message.CreatedAt)
	})
	return translateWriteErr("append message", err)
}

func insertMessage(ctx context.Context, tx *sql.Tx, message domain.Message) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, author_id, author_name, author_role, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.ID,
		message.RoomID,
		message.AuthorID,
		message.AuthorName,
		string(message.AuthorRole),
		message.Body,
		toMillis(message.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns the most recent limit messages, oldest first. Equal
// timestamps keep insertion order.
func (s *Store) ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, room_id, author_id, author_name, author_role, body, created_at
		   FROM (
		     SELECT seq, id, room_id, author_id, author_name, author_role, body, created_at
		       FROM messages
		      WHERE room_id = ?
		      ORDER BY created_at DESC, seq DESC
		      LIMIT ?
		   )
		  ORDER BY created_at ASC, seq ASC`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var message domain.Message
		var role string
		var createdAt int64
		if err := rows.Scan(
			&message.ID,
			&message.RoomID,
			&message.AuthorID,
			&message.AuthorName,
			&role,
			&message.Body,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		message.AuthorRole = domain.AuthorRole(role)
		message.CreatedAt = fromMillis(createdAt)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
