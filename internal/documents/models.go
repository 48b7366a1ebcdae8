package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusPending   DocumentStatus = "PENDING"
	StatusCompleted DocumentStatus = "COMPLETED"
	StatusCancelled DocumentStatus = "CANCELLED"
)

type RecipientRole string

const (
	RoleSigner   RecipientRole = "SIGNER"
	RoleViewer   RecipientRole = "VIEWER"
	RoleApprover RecipientRole = "APPROVER"
)

// HasSigningObligation reports whether the role blocks document completion
// until its fields are done. Viewers only acknowledge.
func (r RecipientRole) HasSigningObligation() bool {
	return r == RoleSigner || r == RoleApprover
}

// Valid reports whether r is a known role.
func (r RecipientRole) Valid() bool {
	switch r {
	case RoleSigner, RoleViewer, RoleApprover:
		return true
	}
	return false
}

type SigningStatus string

const (
	SigningStatusNotSigned SigningStatus = "NOT_SIGNED"
	SigningStatusSigned    SigningStatus = "SIGNED"
)

type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldEmail     FieldType = "EMAIL"
	FieldName      FieldType = "NAME"
	FieldDate      FieldType = "DATE"
	FieldText      FieldType = "TEXT"
)

// AuthRequirement gates document access or signing actions. The recipient
// level override wins over the document level setting.
type AuthRequirement string

const (
	AuthNone         AuthRequirement = ""
	AuthAccount      AuthRequirement = "ACCOUNT"
	AuthAccountEmail AuthRequirement = "ACCOUNT_EMAIL"
	AuthSecondFactor AuthRequirement = "SECOND_FACTOR"
)

var (
	ErrNotFound            = errors.New("document not found")
	ErrInvalidDocumentFile = errors.New("invalid document file")
	ErrNoRecipients        = errors.New("document has no recipients")
	ErrInvalidState        = errors.New("document is not in the required state for this action")
	ErrNotOwner            = errors.New("document does not belong to the user")
	ErrInvalidRole         = errors.New("unknown recipient role")
)

type Document struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	TeamID      *uuid.UUID      `json:"team_id,omitempty" db:"team_id"`
	Title       string          `json:"title" db:"title"`
	Status      DocumentStatus  `json:"status" db:"status"`
	S3Key       string          `json:"s3_key" db:"s3_key"`
	S3Bucket    string          `json:"s3_bucket" db:"s3_bucket"`
	FileSize    int64           `json:"file_size" db:"file_size"`
	AccessAuth  AuthRequirement `json:"access_auth" db:"access_auth"`
	ActionAuth  AuthRequirement `json:"action_auth" db:"action_auth"`
	Timezone    string          `json:"timezone" db:"timezone"`
	DateFormat  string          `json:"date_format" db:"date_format"`
	RedirectURL string          `json:"redirect_url" db:"redirect_url"`
	Subject     string          `json:"subject" db:"subject"`
	Message     string          `json:"message" db:"message"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Recipient struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	DocumentID    uuid.UUID       `json:"document_id" db:"document_id"`
	Email         string          `json:"email" db:"email"`
	Name          string          `json:"name" db:"name"`
	Role          RecipientRole   `json:"role" db:"role"`
	Token         string          `json:"-" db:"token"`
	ActionAuth    AuthRequirement `json:"action_auth" db:"action_auth"`
	SigningStatus SigningStatus   `json:"signing_status" db:"signing_status"`
	SignedAt      *time.Time      `json:"signed_at,omitempty" db:"signed_at"`
}

type Field struct {
	ID          uuid.UUID `json:"id" db:"id"`
	DocumentID  uuid.UUID `json:"document_id" db:"document_id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Type        FieldType `json:"type" db:"type"`
	Page        int       `json:"page" db:"page"`
	PosX        float64   `json:"pos_x" db:"pos_x"`
	PosY        float64   `json:"pos_y" db:"pos_y"`
	Width       float64   `json:"width" db:"width"`
	Height      float64   `json:"height" db:"height"`
	Inserted    bool      `json:"inserted" db:"inserted"`
	Value       string    `json:"value" db:"value"`
}

// Signature is the artifact produced when a signer completes a signature
// field. Exactly one of DrawnSignature / TypedSignature is set.
type Signature struct {
	ID             uuid.UUID `json:"id" db:"id"`
	DocumentID     uuid.UUID `json:"document_id" db:"document_id"`
	RecipientID    uuid.UUID `json:"recipient_id" db:"recipient_id"`
	FieldID        uuid.UUID `json:"field_id" db:"field_id"`
	DrawnSignature []byte    `json:"drawn_signature,omitempty" db:"drawn_signature"`
	TypedSignature string    `json:"typed_signature,omitempty" db:"typed_signature"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type AccessLog struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	DocumentID  uuid.UUID  `json:"document_id" db:"document_id"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty" db:"recipient_id"`
	Action      string     `json:"action" db:"action"` // 'VIEW', 'SIGN_FIELD', 'COMPLETE', 'SEND', 'CANCEL'
	IPAddress   string     `json:"ip_address" db:"ip_address"`
	UserAgent   string     `json:"user_agent" db:"user_agent"`
	PerformedAt time.Time  `json:"performed_at" db:"performed_at"`
}

// DocumentWithDetails is the edit-flow payload: the document plus its
// recipients and fields.
type DocumentWithDetails struct {
	Document   Document    `json:"document"`
	Recipients []Recipient `json:"recipients"`
	Fields     []Field     `json:"fields"`
}
