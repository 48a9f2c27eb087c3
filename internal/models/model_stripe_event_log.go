package models

import (
	"time"

	"gorm.io/datatypes"
)

type StripeEventLogStatus string

const (
	StripeEventLogStatusReceived     StripeEventLogStatus = "received"
	StripeEventLogStatusHandled      StripeEventLogStatus = "handled"
	StripeEventLogStatusHandleFailed StripeEventLogStatus = "handle_failed"
)

// StripeEventLog journals every verified inbound processor event and its outcome.
type StripeEventLog struct {
	ID          string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventID     string               `gorm:"column:event_id;type:varchar(255);not null;index:idx_stripe_event_logs_event_id" json:"event_id"`
	EventType   string               `gorm:"column:event_type;type:varchar(128);not null" json:"event_type"`
	Environment string               `gorm:"column:environment;type:varchar(32)" json:"environment"`
	TraceID     string               `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data        datatypes.JSON       `gorm:"column:data;type:jsonb" json:"data"`
	Result      *datatypes.JSON      `gorm:"column:result;type:jsonb" json:"result"`
	Status      StripeEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (StripeEventLog) TableName() string { return "stripe_event_logs" }
