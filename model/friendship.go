package model

import "time"

// Friendship statuses. A row is created pending by the requester and may
// only move to accepted or rejected by the addressee. Blocked rows are
// owned by the requester (the blocker).
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
	FriendshipBlocked  = "blocked"
)

// Friendship is the social edge between two profiles. At most one
// non-rejected row exists per unordered pair; the service layer enforces
// this by checking both directions before insert.
type Friendship struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64      `gorm:"index:idx_friendship_req;not null" json:"requester_id"`
	AddresseeID int64      `gorm:"index:idx_friendship_addr;not null" json:"addressee_id"`
	Status      string     `gorm:"size:16;default:pending" json:"status"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
