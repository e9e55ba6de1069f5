package model

import "time"

// LocationPoint is one append-only GPS sample of a night's route.
// Never mutated after insert.
type LocationPoint struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID    int64     `gorm:"index:idx_location_night;not null" json:"night_id"`
	Lat        float64   `gorm:"not null" json:"lat"`
	Lon        float64   `gorm:"not null" json:"lon"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}
