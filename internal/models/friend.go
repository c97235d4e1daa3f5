package models

import "time"

// FriendRequestStatus tracks where a friend request is in its lifecycle.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is a proposal from Sender to Receiver to become friends.
type FriendRequest struct {
	ID         int64               `json:"id" db:"id"`
	SenderID   string              `json:"senderId" db:"sender_id"`
	ReceiverID string              `json:"receiverId" db:"receiver_id"`
	Status     FriendRequestStatus `json:"status" db:"status"`
	CreatedAt  time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time           `json:"updatedAt" db:"updated_at"`
}

// PendingRequest is a pending request together with the user on the other end.
type PendingRequest struct {
	FriendRequest
	Other UserSummary `json:"user"`
}

// Friendship is stored directionally (UserID sent the request, FriendID accepted it)
// but means the same thing from both sides.
type Friendship struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	FriendID  string    `json:"friendId" db:"friend_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// OtherSide returns the id on the opposite end of the friendship from userID.
func (f Friendship) OtherSide(userID string) string {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}

// FriendView is a friendship seen from one user, with the friend's identity filled in.
type FriendView struct {
	Friendship
	Friend UserSummary `json:"friend"`
}
