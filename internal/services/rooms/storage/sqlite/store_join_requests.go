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

const joinRequestColumns = `id, room_id, user_id, user_name, role, status, requested_at, reviewed_at, reviewed_by`

// InsertJoinRequest stores a new request. A second pending request for the
// same user and room violates the partial unique index and returns
// storage.ErrAlreadyExists.
func (s *Store) InsertJoinRequest(ctx context.Context, request domain.JoinRequest) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := requireID("request id", request.ID); err != nil {
		return err
	}
	if _, err := requireID("room id", request.RoomID); err != nil {
		return err
	}
	if _, err := requireID("user id", request.UserID); err != nil {
		return err
	}
	if request.Status == "" {
		request.Status = domain.RequestStatusPending
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertJoinRequest(ctx, tx, request); err != nil {
			return err
		}
		return touchRoom(ctx, tx, request.RoomID, request.RequestedAt)
	})
	return translateWriteErr("insert join request", err)
}

func insertJoinRequest(ctx context.Context, tx *sql.Tx, request domain.JoinRequest) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO join_requests (`+joinRequestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.RoomID,
		request.UserID,
		request.UserName,
		string(request.Role),
		string(request.Status),
		toMillis(request.RequestedAt),
		toMillis(request.ReviewedAt),
		request.ReviewedBy,
	); err != nil {
		return fmt.Errorf("insert join request: %w", err)
	}
	return nil
}

// GetJoinRequest returns one request by id within a room.
func (s *Store) GetJoinRequest(ctx context.Context, roomID, requestID string) (domain.JoinRequest, error) {
	if err := s.ready(ctx); err != nil {
		return domain.JoinRequest{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	requestID, err = requireID("request id", requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	return getJoinRequest(ctx, s.sqlDB,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE room_id = ? AND id = ?`,
		roomID, requestID,
	)
}

// FindPendingJoinRequest returns the pending request of a user, if any.
func (s *Store) FindPendingJoinRequest(ctx context.Context, roomID, userID string) (domain.JoinRequest, error) {
	if err := s.ready(ctx); err != nil {
		return domain.JoinRequest{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	userID, err = requireID("user id", userID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	return getJoinRequest(ctx, s.sqlDB,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE room_id = ? AND user_id = ? AND status = 'pending'`,
		roomID, userID,
	)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getJoinRequest(ctx context.Context, db queryRower, query string, args ...any) (domain.JoinRequest, error) {
	request, err := scanJoinRequest(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.JoinRequest{}, storage.ErrNotFound
		}
		return domain.JoinRequest{}, fmt.Errorf("get join request: %w", err)
	}
	return request, nil
}

// ListPendingJoinRequests returns only pending requests, oldest first.
func (s *Store) ListPendingJoinRequests(ctx context.Context, roomID string) ([]domain.JoinRequest, error) {
	return s.listJoinRequests(ctx, roomID, true)
}

// ListJoinRequests returns every request of a room, oldest first.
func (s *Store) ListJoinRequests(ctx context.Context, roomID string) ([]domain.JoinRequest, error) {
	return s.listJoinRequests(ctx, roomID, false)
}

func (s *Store) listJoinRequests(ctx context.Context, roomID string, pendingOnly bool) ([]domain.JoinRequest, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE room_id = ?`
	if pendingOnly {
		query += ` AND status = 'pending'`
	}
	query += ` ORDER BY requested_at ASC, rowid ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()

	requests := make([]domain.JoinRequest, 0)
	for rows.Next() {
		request, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join requests: %w", err)
	}
	return requests, nil
}

// ApproveJoinRequest resolves a pending request and upserts the member row
// in one transaction. Only one of two racing approvals can move the request
// out of pending; the other observes storage.ErrAlreadyResolved.
func (s *Store) ApproveJoinRequest(ctx context.Context, roomID, requestID, reviewerID, newMemberID string, reviewedAt time.Time) (domain.JoinRequest, domain.Member, error) {
	if err := s.ready(ctx); err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}
	requestID, err = requireID("request id", requestID)
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}
	if _, err := requireID("member id", newMemberID); err != nil {
		return domain.JoinRequest{}, domain.Member{}, err
	}

	var request domain.JoinRequest
	var member domain.Member
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		resolved, err := resolveJoinRequest(ctx, tx, roomID, requestID, reviewerID, domain.RequestStatusApproved, reviewedAt)
		if err != nil {
			return err
		}
		request = resolved
		if _, err := upsertApprovedMember(ctx, tx, domain.Member{
			ID:        newMemberID,
			RoomID:    roomID,
			UserID:    request.UserID,
			Name:      request.UserName,
			Role:      request.Role,
			Status:    domain.MemberStatusOnline,
			Approved:  true,
			CreatedAt: reviewedAt,
			UpdatedAt: reviewedAt,
		}); err != nil {
			return err
		}
		if err := touchRoom(ctx, tx, roomID, reviewedAt); err != nil {
			return err
		}
		member, err = scanMember(tx.QueryRowContext(ctx,
			`SELECT `+memberColumns+` FROM room_members WHERE room_id = ? AND user_id = ?`,
			roomID, request.UserID,
		))
		return err
	})
	if err != nil {
		return domain.JoinRequest{}, domain.Member{}, translateWriteErr("approve join request", err)
	}
	return request, member, nil
}

// RejectJoinRequest resolves a pending request without touching members.
func (s *Store) RejectJoinRequest(ctx context.Context, roomID, requestID, reviewerID string, reviewedAt time.Time) (domain.JoinRequest, error) {
	if err := s.ready(ctx); err != nil {
		return domain.JoinRequest{}, err
	}
	roomID, err := requireID("room id", roomID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	requestID, err = requireID("request id", requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	var request domain.JoinRequest
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		resolved, err := resolveJoinRequest(ctx, tx, roomID, requestID, reviewerID, domain.RequestStatusRejected, reviewedAt)
		if err != nil {
			return err
		}
		request = resolved
		return touchRoom(ctx, tx, roomID, reviewedAt)
	})
	if err != nil {
		return domain.JoinRequest{}, translateWriteErr("reject join request", err)
	}
	return request, nil
}

// resolveJoinRequest moves a request out of pending with a compare-and-swap
// update and returns the resolved row.
func resolveJoinRequest(ctx context.Context, tx *sql.Tx, roomID, requestID, reviewerID string, status domain.RequestStatus, reviewedAt time.Time) (domain.JoinRequest, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE join_requests
		    SET status = ?, reviewed_at = ?, reviewed_by = ?
		  WHERE room_id = ? AND id = ? AND status = 'pending'`,
		string(status), toMillis(reviewedAt), reviewerID, roomID, requestID,
	)
	if err != nil {
		return domain.JoinRequest{}, fmt.Errorf("resolve join request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.JoinRequest{}, fmt.Errorf("rows affected: %w", err)
	}

	request, err := getJoinRequest(ctx, tx,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE room_id = ? AND id = ?`,
		roomID, requestID,
	)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if affected == 0 {
		return domain.JoinRequest{}, storage.ErrAlreadyResolved
	}
	return request, nil
}

func scanJoinRequest(row rowScanner) (domain.JoinRequest, error) {
	var request domain.JoinRequest
	var role, status string
	var requestedAt, reviewedAt int64
	if err := row.Scan(
		&request.ID,
		&request.RoomID,
		&request.UserID,
		&request.UserName,
		&role,
		&status,
		&requestedAt,
		&reviewedAt,
		&request.ReviewedBy,
	); err != nil {
		return domain.JoinRequest{}, err
	}
	request.Role = domain.MemberRole(role)
	request.Status = domain.RequestStatus(status)
	request.RequestedAt = fromMillis(requestedAt)
	request.ReviewedAt = fromMillis(reviewedAt)
	return request, nil
}
