package model

import "time"

// Profile represents a user profile row.
// Aggregate counters are derived server-side when a night completes;
// clients treat them as read-only.
type Profile struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username      string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email         string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash  string     `gorm:"size:64;not null" json:"-"`
	DisplayName   string     `gorm:"size:64" json:"display_name"`
	Bio           string     `gorm:"size:512" json:"bio"`
	AvatarPath    string     `gorm:"size:256" json:"avatar_path"`
	TotalNights   int        `gorm:"default:0" json:"total_nights"`
	TotalSeconds  int64      `gorm:"default:0" json:"total_seconds"`
	TotalMeters   float64    `gorm:"default:0" json:"total_meters"`
	TotalDrinks   int        `gorm:"default:0" json:"total_drinks"`
	TotalPhotos   int        `gorm:"default:0" json:"total_photos"`
	CurrentStreak int        `gorm:"default:0" json:"current_streak"`
	LongestStreak int        `gorm:"default:0" json:"longest_streak"`
	LastNightAt   *time.Time `json:"last_night_at"`
	Status        int        `gorm:"default:1" json:"status"` // 0=banned 1=normal
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
