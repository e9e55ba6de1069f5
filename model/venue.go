package model

import "time"

// Venue is a check-in within a night. A nil DepartedAt means the user is
// still there; at most one venue per night has a nil DepartedAt.
type Venue struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID    int64      `gorm:"index:idx_venue_night;not null" json:"night_id"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	ArrivedAt  time.Time  `gorm:"not null" json:"arrived_at"`
	DepartedAt *time.Time `json:"departed_at"`
}
