package model

import (
	"time"

	"gorm.io/datatypes"
)

// LiveUpdate kinds.
const (
	LiveKindDrink    = "drink"
	LiveKindVenue    = "venue"
	LiveKindMood     = "mood"
	LiveKindPhoto    = "photo"
	LiveKindSong     = "song"
	LiveKindLocation = "location"
)

// LiveUpdate is a friend-visible event emitted while a night is active.
// Payload holds the kind-specific snapshot as JSON.
type LiveUpdate struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID   int64          `gorm:"index:idx_live_night;not null" json:"night_id"`
	ProfileID int64          `gorm:"index;not null" json:"profile_id"`
	Kind      string         `gorm:"size:16;not null" json:"kind"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
