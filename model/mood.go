package model

import "time"

// MoodEntry records how the night is going. Level is clamped to [1,5]
// at the service boundary.
type MoodEntry struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID  int64     `gorm:"index:idx_mood_night;not null" json:"night_id"`
	Level    int       `gorm:"not null" json:"level"`
	LoggedAt time.Time `gorm:"not null" json:"logged_at"`
}
