package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EmailStatus string

const (
	StatusPending EmailStatus = "pending"
	StatusSent    EmailStatus = "sent"
	StatusFailed  EmailStatus = "failed"
)

// Email template identifiers
const (
	TemplateSigningRequest    = "signing_request"
	TemplateSigningReminder   = "signing_reminder"
	TemplateDocumentCompleted = "document_completed"
)

// SentEmail records every outbound workflow email for auditing.
type SentEmail struct {
	ID             uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DocumentID     uuid.UUID      `json:"document_id" gorm:"type:uuid;not null;index"`
	RecipientEmail string         `json:"recipient_email" gorm:"not null"`
	Template       string         `json:"template" gorm:"not null"`
	Subject        string         `json:"subject" gorm:"not null"`
	Status         EmailStatus    `json:"status" gorm:"not null;default:'pending'"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Metadata       datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
}
