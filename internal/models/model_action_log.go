package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActionLog is the append-only audit trail. Rows are never updated or deleted.
type ActionLog struct {
	ID         string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Actor      string            `gorm:"column:actor;type:varchar(128);not null" json:"actor"`
	Action     string            `gorm:"column:action;type:varchar(64);not null;index:idx_action_logs_subject,priority:3" json:"action"`
	EntityType string            `gorm:"column:entity_type;type:varchar(64);not null;index:idx_action_logs_subject,priority:1" json:"entity_type"`
	EntityID   string            `gorm:"column:entity_id;type:varchar(255);not null;index:idx_action_logs_subject,priority:2" json:"entity_id"`
	TraceID    string            `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"column:created_at;index:idx_action_logs_created_at" json:"created_at"`
}

func (ActionLog) TableName() string { return "action_logs" }
