package model

import (
	"time"

	"gorm.io/datatypes"
)

// Reportable entity kinds.
const (
	ReportNight   = "night"
	ReportComment = "comment"
	ReportProfile = "profile"
)

// Report is a moderation report against a night, comment or profile.
type Report struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReporterID int64          `gorm:"index;not null" json:"reporter_id"`
	EntityKind string         `gorm:"size:16;not null" json:"entity_kind"`
	EntityID   int64          `gorm:"index:idx_report_entity;not null" json:"entity_id"`
	Reason     string         `gorm:"size:64;not null" json:"reason"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
