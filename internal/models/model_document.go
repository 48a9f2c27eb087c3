package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "draft"
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
	DocumentStatusDeleted    DocumentStatus = "deleted"
)

// Document is one customer submission and its place in the payment/delivery lifecycle.
type Document struct {
	ID               string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID           string         `gorm:"column:user_id;type:varchar(64);not null;index:idx_documents_user_id" json:"user_id"`
	ClientName       string         `gorm:"column:client_name;type:varchar(255)" json:"client_name"`
	Filename         string         `gorm:"column:filename;type:varchar(255);not null" json:"filename"`
	OriginalFilename string         `gorm:"column:original_filename;type:varchar(255);not null" json:"original_filename"`
	DocumentType     string         `gorm:"column:document_type;type:varchar(32);not null" json:"document_type"`
	Status           DocumentStatus `gorm:"column:status;type:varchar(32);not null;index:idx_documents_status_created_at,priority:1" json:"status"`
	// FileURL is either a bucket object key or a fully resolved URL.
	FileURL *string `gorm:"column:file_url;type:text" json:"file_url"`
	// Pages is the page count the customer paid for.
	Pages            int             `gorm:"column:pages;not null" json:"pages"`
	UploadFailedAt   *time.Time      `gorm:"column:upload_failed_at" json:"upload_failed_at"`
	UploadRetryCount int             `gorm:"column:upload_retry_count;not null;default:0" json:"upload_retry_count"`
	TotalCost        decimal.Decimal `gorm:"column:total_cost;type:decimal(12,2);not null" json:"total_cost"`
	SourceLanguage   string          `gorm:"column:source_language;type:varchar(16)" json:"source_language"`
	TargetLanguage   string          `gorm:"column:target_language;type:varchar(16)" json:"target_language"`
	SourceCurrency   string          `gorm:"column:source_currency;type:varchar(8)" json:"source_currency"`
	TargetCurrency   string          `gorm:"column:target_currency;type:varchar(8)" json:"target_currency"`
	// StagedPath is the local copy kept by the submission path until the file lands in storage.
	StagedPath string    `gorm:"column:staged_path;type:text" json:"-"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_documents_status_created_at,priority:2" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

// MissingFile reports the canonical "paid but fileless" condition.
func (d *Document) MissingFile() bool {
	return d != nil && d.UploadFailedAt != nil && d.FileURL == nil
}
