package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one authenticated write action for the audit trail.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"size:36;index" json:"trace_id"`
	ProfileID  *int64         `gorm:"index" json:"profile_id"`
	Action     string         `gorm:"size:64;index;not null" json:"action"`
	Request    datatypes.JSON `json:"request"`
	Response   datatypes.JSON `json:"response"`
	Error      string         `gorm:"size:512" json:"error"`
	IP         string         `gorm:"size:45" json:"ip"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
