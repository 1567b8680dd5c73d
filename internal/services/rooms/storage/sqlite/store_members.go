package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
)

const memberColumns = `id, room_id, user_id, name, role, status, approved, created_at, updated_at`

// lastTeacherGuard is true for the only approved teacher row of a room. It
// is evaluated inside the same statement as the write it guards.
const lastTeacherGuard = `role = 'teacher' AND approved = 1 AND (
	SELECT COUNT(*) FROM room_members peers
	 WHERE peers.room_id = room_members.room_id
	   AND peers.role = 'teacher'
	   AND peers.approved = 1
) <= 1`

// EnsureApprovedMember inserts an approved member or upgrades an existing
// unapproved row in place. Rows already approved are left untouched. A
// pending join request from the same user is approved in the same
// transaction, reviewed by the user.
func (s *Store) EnsureApprovedMember(ctx context.Context, member domain.Member) (domain.Member, bool, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Member{}, false, err
	}
	if _, err := requireID("member id", member.ID); err != nil {
		return domain.Member{}, false, err
	}
	if _, err := requireID("room id", member.RoomID); err != nil {
		return domain.Member{}, false, err
	}
	if _, err := requireID("user id", member.UserID); err != nil {
		return domain.Member{}, false, err
	}

	var changed bool
	var stored domain.Member
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		member.Approved = true
		affected, err := upsertApprovedMember(ctx, tx, member)
		if err != nil {
			return err
		}
		resolved, err := approvePendingForUser(ctx, tx, member.RoomID, member.UserID, member.UpdatedAt)
		if err != nil {
			return err
		}
		changed = affected > 0
		if changed || resolved > 0 {
			if err := touchRoom(ctx, tx, member.RoomID, member.UpdatedAt); err != nil {
				return err
			}
		}
		stored, err = scanMember(tx.QueryRowContext(ctx,
			`SELECT `+memberColumns+` FROM room_members WHERE room_id = ? AND user_id = ?`,
			member.RoomID, member.UserID,
		))
		return err
	})
	if err != nil {
		return domain.Member{}, false, translateWriteErr("ensure member", err)
	}
	return stored, changed, nil
}

// approvePendingForUser closes any pending request left by a user who joined
// without review.
func approvePendingForUser(ctx context.Context, tx *sql.Tx, roomID, userID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE join_requests
		    SET status = ?, reviewed_at = ?, reviewed_by = ?
		  WHERE room_id = ? AND user_id = ? AND status = 'pending'`,
		string(domain.RequestStatusApproved), toMillis(at), userID, roomID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("approve pending request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// upsertApprovedMember returns the number of rows inserted or upgraded.
func upsertApprovedMember(ctx context.Context, tx *sql.Tx, member domain.Member) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(room_id, user_id) DO UPDATE SET
		   approved = 1,
		   role = excluded.role,
		   status = excluded.status,
		   name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE room_members.name END,
		   updated_at = excluded.updated_at
		 WHERE room_members.approved = 0`,
		member.ID,
		member.RoomID,
		member.UserID,
		member.Name,
		string(member.Role),
		string(member.Status),
		toMillis(member.CreatedAt),
		toMillis(member.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, member domain.Member) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.RoomID,
		member.UserID,
		member.Name,
		string(member.Role),
		string(member.Status),
		boolToInt(member.Approved),
		toMillis(member.CreatedAt),
		toMillis(member.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMember returns one member by id within a room.
func (s *Store) GetMember(ctx context.Context, roomID, memberID string) (domain.Member, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Member{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.Member{}, err
	}
	memberID, err = requireID("member id", memberID)
	if err != nil {
		return domain.Member{}, err
	}
	return s.getMember(ctx, `SELECT `+memberColumns+` FROM room_members WHERE room_id = ? AND id = ?`, roomID, memberID)
}

// GetMemberByUser returns the member row of a user within a room.
func (s *Store) GetMemberByUser(ctx context.Context, roomID, userID string) (domain.Member, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Member{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.Member{}, err
	}
	userID, err = requireID("user id", userID)
	if err != nil {
		return domain.Member{}, err
	}
	return s.getMember(ctx, `SELECT `+memberColumns+` FROM room_members WHERE room_id = ? AND user_id = ?`, roomID, userID)
}

func (s *Store) getMember(ctx context.Context, query string, args ...any) (domain.Member, error) {
	member, err := scanMember(s.sqlDB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Member{}, storage.ErrNotFound
		}
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// ListMembers returns room members in join order.
func (s *Store) ListMembers(ctx context.Context, roomID string) ([]domain.Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM room_members WHERE room_id = ? ORDER BY created_at ASC, rowid ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// DeleteMember removes a member unless it is the last approved teacher.
func (s *Store) DeleteMember(ctx context.Context, roomID, memberID string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return err
	}
	memberID, err = requireID("member id", memberID)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM room_members
			  WHERE room_id = ? AND id = ?
			    AND NOT (`+lastTeacherGuard+`)`,
			roomID, memberID,
		)
		if err != nil {
			return err
		}
		if err := guardedWriteResult(ctx, tx, result, roomID, memberID); err != nil {
			return err
		}
		return touchRoom(ctx, tx, roomID, updatedAt)
	})
	return translateWriteErr("delete member", err)
}

// UpdateMemberRole changes a member role unless it demotes the last approved
// teacher.
func (s *Store) UpdateMemberRole(ctx context.Context, roomID, memberID string, role domain.MemberRole, updatedAt time.Time) (domain.Member, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Member{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.Member{}, err
	}
	memberID, err = requireID("member id", memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if role != domain.MemberRoleTeacher && role != domain.MemberRoleStudent {
		return domain.Member{}, fmt.Errorf("member role %q is invalid", role)
	}

	var updated domain.Member
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE room_members
			    SET role = ?, updated_at = ?
			  WHERE room_id = ? AND id = ?
			    AND (? = 'teacher' OR NOT (`+lastTeacherGuard+`))`,
			string(role), toMillis(updatedAt), roomID, memberID, string(role),
		)
		if err != nil {
			return err
		}
		if err := guardedWriteResult(ctx, tx, result, roomID, memberID); err != nil {
			return err
		}
		if err := touchRoom(ctx, tx, roomID, updatedAt); err != nil {
			return err
		}
		updated, err = scanMember(tx.QueryRowContext(ctx,
			`SELECT `+memberColumns+` FROM room_members WHERE room_id = ? AND id = ?`, roomID, memberID,
		))
		return err
	})
	if err != nil {
		return domain.Member{}, translateWriteErr("update member role", err)
	}
	return updated, nil
}

// guardedWriteResult tells a missing member apart from a write refused by
// the last-teacher guard.
func guardedWriteResult(ctx context.Context, tx *sql.Tx, result sql.Result, roomID, memberID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var found int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM room_members WHERE room_id = ? AND id = ?`, roomID, memberID,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check member: %w", err)
	}
	return storage.ErrLastTeacher
}

func scanMember(row rowScanner) (domain.Member, error) {
	var member domain.Member
	var role, status string
	var approved int
	var createdAt, updatedAt int64
	if err := row.Scan(
		&member.ID,
		&member.RoomID,
		&member.UserID,
		&member.Name,
		&role,
		&status,
		&approved,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Member{}, err
	}
	member.Role = domain.MemberRole(role)
	member.Status = domain.MemberStatus(status)
	member.Approved = approved == 1
	member.CreatedAt = fromMillis(createdAt)
	member.UpdatedAt = fromMillis(updatedAt)
	return member, nil
}
