package models

import "time"

type PaymentSessionStatus string

const (
	PaymentSessionStatusPending   PaymentSessionStatus = "pending"
	PaymentSessionStatusCompleted PaymentSessionStatus = "completed"
	PaymentSessionStatusExpired   PaymentSessionStatus = "expired"
	PaymentSessionStatusFailed    PaymentSessionStatus = "failed"
)

// PaymentSession mirrors one processor checkout session.
type PaymentSession struct {
	ID              string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SessionID       string               `gorm:"column:session_id;type:varchar(255);not null;uniqueIndex:uniq_payment_sessions_session_id" json:"session_id"`
	DocumentID      string               `gorm:"column:document_id;type:uuid;not null;index:idx_payment_sessions_document_id" json:"document_id"`
	PaymentIntentID *string              `gorm:"column:payment_intent_id;type:varchar(255);index:idx_payment_sessions_payment_intent_id" json:"payment_intent_id"`
	PaymentStatus   PaymentSessionStatus `gorm:"column:payment_status;type:varchar(32);not null;index:idx_payment_sessions_status_updated_at,priority:1" json:"payment_status"`
	CreatedAt       time.Time            `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;index:idx_payment_sessions_status_updated_at,priority:2" json:"updated_at"`
}

func (PaymentSession) TableName() string { return "payment_sessions" }
