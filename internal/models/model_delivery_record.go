package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSending DeliveryStatus = "sending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// DeliveryRecord is the durable claim on notifying the automation service about one
// (user_id, filename). A send may proceed only after inserting the row or moving a
// claim older than the dedup window.
type DeliveryRecord struct {
	ID           string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID       string         `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uniq_delivery_records_user_file,priority:1" json:"user_id"`
	Filename     string         `gorm:"column:filename;type:varchar(255);not null;uniqueIndex:uniq_delivery_records_user_file,priority:2" json:"filename"`
	DocumentID   string         `gorm:"column:document_id;type:uuid;not null" json:"document_id"`
	Source       string         `gorm:"column:source;type:varchar(64)" json:"source"`
	Status       DeliveryStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Sends        int            `gorm:"column:sends;not null;default:1" json:"sends"`
	ResponseCode int            `gorm:"column:response_code" json:"response_code"`
	Error        string         `gorm:"column:error;type:text" json:"error"`
	ClaimedAt    time.Time      `gorm:"column:claimed_at;not null" json:"claimed_at"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (DeliveryRecord) TableName() string { return "delivery_records" }
