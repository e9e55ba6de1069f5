package model

import "time"

// Visibility controls who may see a night in the feed.
const (
	VisibilityPublic  = "public"
	VisibilityFriends = "friends"
	VisibilityPrivate = "private"
)

// LiveVisibility controls who may see live updates while a night is active.
const (
	LiveEveryone = "everyone"
	LiveFriends  = "friends"
	LiveNobody   = "nobody"
)

// Night represents one tracked outing from start to end.
// Invariants: IsActive implies EndedAt is nil; an ended night has
// DurationS == EndedAt - StartedAt; at most one active night per profile.
type Night struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID      int64      `gorm:"index:idx_night_profile;not null" json:"profile_id"`
	Title          string     `gorm:"size:128" json:"title"`
	Caption        string     `gorm:"size:512" json:"caption"`
	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	DurationS      int64      `gorm:"default:0" json:"duration_s"`
	IsActive       bool       `gorm:"index:idx_night_profile;default:false" json:"is_active"`
	Visibility     string     `gorm:"size:16;default:friends" json:"visibility"`
	LiveVisibility string     `gorm:"size:16;default:friends" json:"live_visibility"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	DistanceM      float64    `gorm:"default:0" json:"distance_m"`
	LikeCount      int        `gorm:"default:0" json:"like_count"`
	Hidden         bool       `gorm:"default:false" json:"hidden"` // set by moderation
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidVisibility reports whether v is a known feed visibility value.
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityFriends || v == VisibilityPrivate
}

// ValidLiveVisibility reports whether v is a known live visibility value.
func ValidLiveVisibility(v string) bool {
	return v == LiveEveryone || v == LiveFriends || v == LiveNobody
}
