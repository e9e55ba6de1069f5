package model

import "time"

// Song is a track logged during a night.
type Song struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID  int64     `gorm:"index:idx_song_night;not null" json:"night_id"`
	Title    string    `gorm:"size:128;not null" json:"title"`
	Artist   string    `gorm:"size:128" json:"artist"`
	PlayedAt time.Time `gorm:"not null" json:"played_at"`
}
