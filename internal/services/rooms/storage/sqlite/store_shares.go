package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

const shareColumns = `id, room_id, owner_id, owner_name, kind, title, url, active, created_at`

// InsertShare registers a screen share. Shares have no uniqueness beyond id.
func (s *Store) InsertShare(ctx context.Context, share domain.ScreenShare) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := requireID("share id", share.ID); err != nil {
		return err
	}
	if _, err := requireID("room id", share.RoomID); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertShare(ctx, tx, share); err != nil {
			return err
		}
		return touchRoom(ctx, tx, share.RoomID, share.CreatedAt)
	})
	return translateWriteErr("insert share", err)
}

func insertShare(ctx context.Context, tx *sql.Tx, share domain.ScreenShare) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO screen_shares (`+shareColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		share.ID,
		share.RoomID,
		share.OwnerID,
		share.OwnerName,
		string(share.Kind),
		share.Title,
		share.URL,
		boolToInt(share.Active),
		toMillis(share.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

// GetShare returns one share by id.
func (s *Store) GetShare(ctx context.Context, shareID string) (domain.ScreenShare, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ScreenShare{}, err
	}
	shareID, err := requireID("share id", shareID)
	if err != nil {
		return domain.ScreenShare{}, err
	}
	return getShare(ctx, s.sqlDB, shareID)
}

func getShare(ctx context.Context, db queryRower, shareID string) (domain.ScreenShare, error) {
	share, err := scanShare(db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM screen_shares WHERE id = ?`, shareID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScreenShare{}, storage.ErrNotFound
		}
		return domain.ScreenShare{}, fmt.Errorf("get share: %w", err)
	}
	return share, nil
}

// ListShares returns room shares in registration order.
func (s *Store) ListShares(ctx context.Context, roomID string) ([]domain.ScreenShare, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM screen_shares WHERE room_id = ? ORDER BY created_at ASC, rowid ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := make([]domain.ScreenShare, 0)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return shares, nil
}

// DeactivateShare clears the active flag. Deactivating twice is a no-op.
func (s *Store) DeactivateShare(ctx context.Context, shareID string) (domain.ScreenShare, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ScreenShare{}, err
	}
	shareID, err := requireID("share id", shareID)
	if err != nil {
		return domain.ScreenShare{}, err
	}

	var share domain.ScreenShare
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE screen_shares SET active = 0 WHERE id = ?`, shareID)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		share, err = getShare(ctx, tx, shareID)
		return err
	})
	if err != nil {
		return domain.ScreenShare{}, translateWriteErr("deactivate share", err)
	}
	return share, nil
}

func scanShare(row rowScanner) (domain.ScreenShare, error) {
	var share domain.ScreenShare
	var kind string
	var active int
	var createdAt int64
	if err := row.Scan(
		&share.ID,
		&share.RoomID,
		&share.OwnerID,
		&share.OwnerName,
		&kind,
		&share.Title,
		&share.URL,
		&active,
		&createdAt,
	); err != nil {
		return domain.ScreenShare{}, err
	}
	share.Kind = domain.ShareKind(kind)
	share.Active = active == 1
	share.CreatedAt = fromMillis(createdAt)
	return share, nil
}
