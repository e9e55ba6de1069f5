package model

import "time"

// Reaction is a like on a night. One row per (night, profile); the
// uniqueIndex makes concurrent duplicate likes a constraint violation
// rather than a lost update.
type Reaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID   int64     `gorm:"uniqueIndex:idx_reaction_pair;not null" json:"night_id"`
	ProfileID int64     `gorm:"uniqueIndex:idx_reaction_pair;not null" json:"profile_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
