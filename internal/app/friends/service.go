package friends

import (
	"context"
	"fmt"
	"strings"

	"tunetally/internal/lock"
	"tunetally/internal/models"
	"tunetally/internal/store"
)

// Store defines the persistence hooks for the friendship workflows.
type Store interface {
	CreateFriendRequest(ctx context.Context, senderID, receiverID string) (models.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, senderID, receiverID string) (models.Friendship, error)
	DeclineFriendRequest(ctx context.Context, id int64) (models.FriendRequest, error)
	FriendRequestByID(ctx context.Context, id int64) (models.FriendRequest, error)
	FriendsOf(ctx context.Context, userID string) ([]models.FriendView, error)
	IncomingRequests(ctx context.Context, userID string) ([]models.PendingRequest, error)
	OutgoingRequests(ctx context.Context, userID string) ([]models.PendingRequest, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Service manages friend requests and the friendships they create.
type Service interface {
	SendRequest(ctx context.Context, senderID, receiverID string) (models.FriendRequest, error)
	Accept(ctx context.Context, senderID, receiverID string) (models.Friendship, error)
	Decline(ctx context.Context, requestID int64) (models.FriendRequest, error)
	DeclineAsReceiver(ctx context.Context, requestID int64, receiverID string) (models.FriendRequest, error)
	Friends(ctx context.Context, userID string) ([]models.FriendView, error)
	Incoming(ctx context.Context, userID string) ([]models.PendingRequest, error)
	Outgoing(ctx context.Context, userID string) ([]models.PendingRequest, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

type service struct {
	store  Store
	locker lock.Locker
}

// New constructs a friendship Service. Requests and acceptances for the same
// unordered pair of users are serialized through locker.
func New(store Store, locker lock.Locker) Service {
	return &service{store: store, locker: locker}
}

func (s *service) SendRequest(ctx context.Context, senderID, receiverID string) (models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.FriendRequest{}, err
	}

	senderID, receiverID, err := normalizePair(senderID, receiverID)
	if err != nil {
		return models.FriendRequest{}, err
	}

	unlock, err := s.locker.Lock(ctx, pairKey(senderID, receiverID))
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("lock pair: %w", err)
	}
	defer unlock()

	return s.store.CreateFriendRequest(ctx, senderID, receiverID)
}

func (s *service) Accept(ctx context.Context, senderID, receiverID string) (models.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return models.Friendship{}, err
	}

	senderID, receiverID, err := normalizePair(senderID, receiverID)
	if err != nil {
		return models.Friendship{}, err
	}

	unlock, err := s.locker.Lock(ctx, pairKey(senderID, receiverID))
	if err != nil {
		return models.Friendship{}, fmt.Errorf("lock pair: %w", err)
	}
	defer unlock()

	return s.store.AcceptFriendRequest(ctx, senderID, receiverID)
}

// Decline marks the request declined whatever its current status.
func (s *service) Decline(ctx context.Context, requestID int64) (models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.FriendRequest{}, err
	}
	if requestID <= 0 {
		return models.FriendRequest{}, store.ErrFriendRequestNotFound
	}
	return s.store.DeclineFriendRequest(ctx, requestID)
}

// DeclineAsReceiver declines the request only if receiverID is the one it was sent to.
func (s *service) DeclineAsReceiver(ctx context.Context, requestID int64, receiverID string) (models.FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.FriendRequest{}, err
	}
	if requestID <= 0 {
		return models.FriendRequest{}, store.ErrFriendRequestNotFound
	}

	req, err := s.store.FriendRequestByID(ctx, requestID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if req.ReceiverID != receiverID {
		return models.FriendRequest{}, fmt.Errorf("%w: only the receiver can decline a request", store.ErrForbidden)
	}

	return s.store.DeclineFriendRequest(ctx, requestID)
}

func (s *service) Friends(ctx context.Context, userID string) ([]models.FriendView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.FriendsOf(ctx, userID)
}

func (s *service) Incoming(ctx context.Context, userID string) ([]models.PendingRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.IncomingRequests(ctx, userID)
}

func (s *service) Outgoing(ctx context.Context, userID string) ([]models.PendingRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.OutgoingRequests(ctx, userID)
}

func (s *service) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if a == b {
		return false, nil
	}
	return s.store.AreFriends(ctx, a, b)
}

func (s *service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.FriendIDs(ctx, userID)
}

func normalizePair(senderID, receiverID string) (string, string, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	switch {
	case senderID == "":
		return "", "", fmt.Errorf("%w: senderId is required", store.ErrInvalidFriendRequest)
	case receiverID == "":
		return "", "", fmt.Errorf("%w: receiverId is required", store.ErrInvalidFriendRequest)
	case senderID == receiverID:
		return "", "", fmt.Errorf("%w: cannot befriend yourself", store.ErrInvalidFriendRequest)
	}
	return senderID, receiverID, nil
}

// pairKey is the same for (a, b) and (b, a).
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "friends:" + a + ":" + b
}
