package model

import "time"

// Comment is a comment on a night.
type Comment struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID   int64      `gorm:"index:idx_comment_night;not null" json:"night_id"`
	AuthorID  int64      `gorm:"index;not null" json:"author_id"`
	Text      string     `gorm:"size:1024;not null" json:"text"`
	EditedAt  *time.Time `json:"edited_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
