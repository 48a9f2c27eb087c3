package models

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Payment is the settled record of a completed checkout. Amounts are in minor units.
type Payment struct {
	ID         string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	DocumentID string `gorm:"column:document_id;type:uuid;not null;uniqueIndex:uniq_payments_document_id" json:"document_id"`
	UserID     string `gorm:"column:user_id;type:varchar(64);not null;index:idx_payments_user_id" json:"user_id"`
	SessionID  string `gorm:"column:session_id;type:varchar(255);not null" json:"session_id"`
	// Amount is net revenue: GrossAmount minus FeeAmount.
	Amount      int64         `gorm:"column:amount;type:bigint;not null" json:"amount"`
	GrossAmount int64         `gorm:"column:gross_amount;type:bigint;not null" json:"gross_amount"`
	FeeAmount   int64         `gorm:"column:fee_amount;type:bigint;not null" json:"fee_amount"`
	Currency    string        `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status      PaymentStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	PaymentDate time.Time     `gorm:"column:payment_date;not null" json:"payment_date"`
	CreatedAt   time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
