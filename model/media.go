package model

import "time"

// Media types.
const (
	MediaPhoto = "photo"
	MediaVideo = "video"
)

// ValidMediaType reports whether t is a known media type.
func ValidMediaType(t string) bool { return t == MediaPhoto || t == MediaVideo }

// Media is a photo or video attached to a night. StoragePath keys into the
// object storage boundary; URLs are resolved on read.
type Media struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID     int64     `gorm:"index:idx_media_night;not null" json:"night_id"`
	Type        string    `gorm:"size:8;not null" json:"type"`
	StoragePath string    `gorm:"size:256;not null" json:"storage_path"`
	ThumbPath   string    `gorm:"size:256" json:"thumb_path"`
	Caption     string    `gorm:"size:256" json:"caption"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	CapturedAt  time.Time `gorm:"not null" json:"captured_at"`
}
