package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tunetally/internal/models"
)

var (
	// ErrInvalidFriendRequest indicates a malformed request, such as befriending yourself.
	ErrInvalidFriendRequest = errors.New("invalid friend request")
	// ErrFriendRequestNotFound signals no matching pending request.
	ErrFriendRequestNotFound = errors.New("friend request not found")
	// ErrFriendRequestExists is returned when a pending request already joins the pair.
	ErrFriendRequestExists = errors.New("friend request already pending")
	// ErrAlreadyFriends is returned when the pair is already connected.
	ErrAlreadyFriends = errors.New("already friends")
)

// CreateFriendRequest records a pending request from senderID to receiverID.
// A pending request in either direction, or an existing friendship, rejects it.
func (s *Store) CreateFriendRequest(ctx context.Context, senderID, receiverID string) (models.FriendRequest, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	switch {
	case senderID == "" || receiverID == "":
		return models.FriendRequest{}, fmt.Errorf("%w: sender and receiver are required", ErrInvalidFriendRequest)
	case senderID == receiverID:
		return models.FriendRequest{}, fmt.Errorf("%w: cannot befriend yourself", ErrInvalidFriendRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var receiverExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, receiverID).Scan(&receiverExists); err != nil {
		return models.FriendRequest{}, fmt.Errorf("check receiver: %w", err)
	}
	if !receiverExists {
		return models.FriendRequest{}, ErrUserNotFound
	}

	friends, err := areFriends(ctx, tx, senderID, receiverID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if friends {
		return models.FriendRequest{}, ErrAlreadyFriends
	}

	var pendingFrom string
	err = tx.QueryRowContext(ctx, `
		SELECT sender_id
		FROM friend_requests
		WHERE status = 'pending'
			AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		LIMIT 1
	`, senderID, receiverID).Scan(&pendingFrom)
	switch {
	case err == nil:
		if pendingFrom == receiverID {
			return models.FriendRequest{}, fmt.Errorf("%w: %s already sent you a request", ErrFriendRequestExists, receiverID)
		}
		return models.FriendRequest{}, ErrFriendRequestExists
	case !errors.Is(err, sql.ErrNoRows):
		return models.FriendRequest{}, fmt.Errorf("check pending request: %w", err)
	}

	now := time.Now().UTC()
	req := models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO friend_requests (sender_id, receiver_id, status, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $3)
		RETURNING id
	`, senderID, receiverID, now).Scan(&req.ID); err != nil {
		switch {
		case isUniqueViolation(err):
			return models.FriendRequest{}, ErrFriendRequestExists
		case isForeignKeyViolation(err):
			return models.FriendRequest{}, ErrUserNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("insert friend request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.FriendRequest{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return req, nil
}

// AcceptFriendRequest marks the pending request from senderID to receiverID as
// accepted and creates the friendship if it does not exist yet.
func (s *Store) AcceptFriendRequest(ctx context.Context, senderID, receiverID string) (models.Friendship, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var requestID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE friend_requests
		SET status = 'accepted', updated_at = $3
		WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'
		RETURNING id
	`, senderID, receiverID, now).Scan(&requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Friendship{}, ErrFriendRequestNotFound
		}
		return models.Friendship{}, fmt.Errorf("accept friend request: %w", err)
	}

	var f models.Friendship
	err = tx.QueryRowContext(ctx, `
		INSERT INTO friendships (user_id, friend_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING id, user_id, friend_id, created_at
	`, senderID, receiverID, now).Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			SELECT id, user_id, friend_id, created_at
			FROM friendships
			WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
		`, senderID, receiverID).Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt)
	}
	if err != nil {
		return models.Friendship{}, fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Friendship{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return f, nil
}

// DeclineFriendRequest marks the request as declined.
func (s *Store) DeclineFriendRequest(ctx context.Context, id int64) (models.FriendRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE friend_requests
		SET status = 'declined', updated_at = $2
		WHERE id = $1
		RETURNING id, sender_id, receiver_id, status, created_at, updated_at
	`, id, time.Now().UTC())

	req, err := scanFriendRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FriendRequest{}, ErrFriendRequestNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("decline friend request: %w", err)
	}
	return req, nil
}

// FriendRequestByID fetches a request in any status.
func (s *Store) FriendRequestByID(ctx context.Context, id int64) (models.FriendRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM friend_requests
		WHERE id = $1
	`, id)

	req, err := scanFriendRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FriendRequest{}, ErrFriendRequestNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("get friend request: %w", err)
	}
	return req, nil
}

// FriendsOf lists the user's friendships from either side, newest first.
func (s *Store) FriendsOf(ctx context.Context, userID string) ([]models.FriendView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.friend_id, f.created_at, u.id, u.name, u.image
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
		WHERE f.user_id = $1 OR f.friend_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	friends := make([]models.FriendView, 0)
	for rows.Next() {
		var fv models.FriendView
		if err := rows.Scan(
			&fv.ID,
			&fv.UserID,
			&fv.FriendID,
			&fv.CreatedAt,
			&fv.Friend.ID,
			&fv.Friend.Name,
			&fv.Friend.Image,
		); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return friends, nil
}

// IncomingRequests lists pending requests addressed to userID with their senders.
func (s *Store) IncomingRequests(ctx context.Context, userID string) ([]models.PendingRequest, error) {
	return s.pendingRequests(ctx, `
		SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at, r.updated_at, u.id, u.name, u.image
		FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.receiver_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC, r.id DESC
	`, userID)
}

// OutgoingRequests lists pending requests sent by userID with their receivers.
func (s *Store) OutgoingRequests(ctx context.Context, userID string) ([]models.PendingRequest, error) {
	return s.pendingRequests(ctx, `
		SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at, r.updated_at, u.id, u.name, u.image
		FROM friend_requests r
		JOIN users u ON u.id = r.receiver_id
		WHERE r.sender_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC, r.id DESC
	`, userID)
}

// AreFriends reports whether a friendship joins a and b in either direction.
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return areFriends(ctx, s.db, a, b)
}

// FriendIDs returns the ids of everyone befriended with userID.
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END
		FROM friendships
		WHERE user_id = $1 OR friend_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend ids: %w", err)
	}

	return ids, nil
}

func (s *Store) pendingRequests(ctx context.Context, query, userID string) ([]models.PendingRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.PendingRequest, 0)
	for rows.Next() {
		var pr models.PendingRequest
		if err := rows.Scan(
			&pr.ID,
			&pr.SenderID,
			&pr.ReceiverID,
			&pr.Status,
			&pr.CreatedAt,
			&pr.UpdatedAt,
			&pr.Other.ID,
			&pr.Other.Name,
			&pr.Other.Image,
		); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return requests, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func areFriends(ctx context.Context, q queryRower, a, b string) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
		)
	`, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}

func scanFriendRequest(scanner rowScanner) (models.FriendRequest, error) {
	var r models.FriendRequest
	err := scanner.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
