package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quill-sign/signing-portal/signing-portal-backend/pkg/pdf"
	"quill-sign/signing-portal/signing-portal-backend/pkg/tokens"
	"quill-sign/signing-portal/signing-portal-backend/pkg/workflows"
)

// Notifier dispatches workflow emails. Implementations must treat failures as
// their own problem: the caller never rolls back a transition because an
// email bounced.
type Notifier interface {
	SendSigningRequest(ctx context.Context, doc *Document, recipient *Recipient) error
	SendDocumentCompleted(ctx context.Context, doc *Document, recipients []Recipient) error
	SendSigningReminder(ctx context.Context, doc *Document, recipient *Recipient) error
}

type Service interface {
	UploadDocument(ctx context.Context, req UploadRequest) (*Document, error)
	GetDocument(ctx context.Context, userID, id uuid.UUID) (*Document, error)
	GetDocumentWithDetails(ctx context.Context, userID, id uuid.UUID) (*DocumentWithDetails, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error)
	DownloadDocument(ctx context.Context, userID, id uuid.UUID) (io.ReadCloser, error)
	CancelDocument(ctx context.Context, userID, id uuid.UUID) error

	UpdateSettings(ctx context.Context, userID, id uuid.UUID, req SettingsRequest) (*Document, error)
	SetRecipients(ctx context.Context, userID, id uuid.UUID, inputs []RecipientInput) ([]Recipient, error)
	SetFields(ctx context.Context, userID, id uuid.UUID, inputs []FieldInput) ([]Field, error)
	SendDocument(ctx context.Context, userID, id uuid.UUID, req SendRequest) (*Document, error)
}

type UploadRequest struct {
	UserID      uuid.UUID
	TeamID      *uuid.UUID
	Title       string
	FileSize    int64
	FileContent io.Reader
}

type SettingsRequest struct {
	Title       string          `json:"title" binding:"required"`
	AccessAuth  AuthRequirement `json:"access_auth"`
	ActionAuth  AuthRequirement `json:"action_auth"`
	Timezone    string          `json:"timezone"`
	DateFormat  string          `json:"date_format"`
	RedirectURL string          `json:"redirect_url"`
}

type RecipientInput struct {
	Email      string          `json:"email" binding:"required,email"`
	Name       string          `json:"name" binding:"required"`
	Role       RecipientRole   `json:"role" binding:"required,oneof=SIGNER VIEWER APPROVER"`
	ActionAuth AuthRequirement `json:"action_auth"`
}

type FieldInput struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Type        FieldType `json:"type" binding:"required"`
	Page        int       `json:"page" binding:"required,min=1"`
	PosX        float64   `json:"pos_x"`
	PosY        float64   `json:"pos_y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
}

type SendRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type documentService struct {
	repo     Repository
	storage  *StorageProvider
	notifier Notifier
	sm       *workflows.StateMachine
	logger   *zap.Logger
}

func NewService(repo Repository, storage *StorageProvider, notifier Notifier, logger *zap.Logger) Service {
	return &documentService{
		repo:     repo,
		storage:  storage,
		notifier: notifier,
		sm:       workflows.NewDocumentStateMachine(),
		logger:   logger,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, req UploadRequest) (*Document, error) {
	content, err := io.ReadAll(req.FileContent)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	// Encrypted or non-PDF uploads are rejected before any record exists.
	if err := pdf.Inspect(content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocumentFile, err)
	}

	docID := uuid.New()
	s3Key := s.storage.DocumentKey(req.UserID.String(), docID.String(), req.Title)

	if err := s.storage.Upload(ctx, s3Key, bytes.NewReader(content)); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &Document{
		ID:        docID,
		UserID:    req.UserID,
		TeamID:    req.TeamID,
		Title:     req.Title,
		Status:    StatusDraft,
		S3Key:     s3Key,
		S3Bucket:  s.storage.Bucket(),
		FileSize:  int64(len(content)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ownedDocument loads a live document and verifies ownership. Soft-deleted
// documents read as not found.
func (s *documentService) ownedDocument(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return checkOwnership(doc, userID)
}

// lockedOwnedDocument is the write-path variant: it takes the document's row
// lock so the state checked is the state written against. Must run inside
// WithinTx.
func lockedOwnedDocument(ctx context.Context, tx Repository, userID, id uuid.UUID) (*Document, error) {
	doc, err := tx.GetDocumentForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	return checkOwnership(doc, userID)
}

func checkOwnership(doc *Document, userID uuid.UUID) (*Document, error) {
	if doc == nil || doc.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if doc.UserID != userID {
		return nil, ErrNotOwner
	}
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	return s.ownedDocument(ctx, userID, id)
}

func (s *documentService) GetDocumentWithDetails(ctx context.Context, userID, id uuid.UUID) (*DocumentWithDetails, error) {
	doc, err := s.ownedDocument(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	recipients, err := s.repo.ListRecipients(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := s.repo.ListFields(ctx, id)
	if err != nil {
		return nil, err
	}

	return &DocumentWithDetails{
		Document:   *doc,
		Recipients: recipients,
		Fields:     fields,
	}, nil
}

func (s *documentService) ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocumentsByOwner(ctx, userID)
}

func (s *documentService) DownloadDocument(ctx context.Context, userID, id uuid.UUID) (io.ReadCloser, error) {
	doc, err := s.ownedDocument(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.storage.Download(ctx, doc.S3Key)
}

func (s *documentService) CancelDocument(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.WithinTx(ctx, func(tx Repository) error {
		doc, err := lockedOwnedDocument(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if err := s.sm.Transition(string(doc.Status), string(StatusCancelled)); err != nil {
			return fmt.Errorf("%w: cannot cancel a %s document", ErrInvalidState, doc.Status)
		}

		return tx.SoftDeleteDocument(ctx, id)
	})
}

// UpdateSettings holds the document's row lock for the read-modify-write so a
// recipient completing concurrently cannot have its status change overwritten
// by the stale read.
func (s *documentService) UpdateSettings(ctx context.Context, userID, id uuid.UUID, req SettingsRequest) (*Document, error) {
	var doc *Document
	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		var err error
		doc, err = lockedOwnedDocument(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusDraft && doc.Status != StatusPending {
			return fmt.Errorf("%w: settings cannot change once the document is %s", ErrInvalidState, doc.Status)
		}

		doc.Title = req.Title
		doc.AccessAuth = req.AccessAuth
		doc.ActionAuth = req.ActionAuth
		doc.Timezone = req.Timezone
		doc.DateFormat = req.DateFormat
		doc.RedirectURL = req.RedirectURL

		return tx.UpdateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) SetRecipients(ctx context.Context, userID, id uuid.UUID, inputs []RecipientInput) ([]Recipient, error) {
	recipients := make([]Recipient, 0, len(inputs))
	for _, input := range inputs {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, input.Role)
		}
		token, err := tokens.NewRecipientToken()
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, Recipient{
			ID:            uuid.New(),
			DocumentID:    id,
			Email:         input.Email,
			Name:          input.Name,
			Role:          input.Role,
			Token:         token,
			ActionAuth:    input.ActionAuth,
			SigningStatus: SigningStatusNotSigned,
		})
	}

	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		doc, err := lockedOwnedDocument(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusDraft {
			return fmt.Errorf("%w: signers can only change while the document is a draft", ErrInvalidState)
		}
		return tx.ReplaceRecipients(ctx, id, recipients)
	})
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func (s *documentService) SetFields(ctx context.Context, userID, id uuid.UUID, inputs []FieldInput) ([]Field, error) {
	var fields []Field
	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		doc, err := lockedOwnedDocument(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusDraft {
			return fmt.Errorf("%w: fields can only change while the document is a draft", ErrInvalidState)
		}

		recipients, err := tx.ListRecipients(ctx, id)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return ErrNoRecipients
		}

		known := make(map[uuid.UUID]bool, len(recipients))
		for _, r := range recipients {
			known[r.ID] = true
		}

		fields = make([]Field, 0, len(inputs))
		for _, input := range inputs {
			if !known[input.RecipientID] {
				return fmt.Errorf("recipient %s does not belong to document %s", input.RecipientID, id)
			}
			fields = append(fields, Field{
				ID:          uuid.New(),
				DocumentID:  id,
				RecipientID: input.RecipientID,
				Type:        input.Type,
				Page:        input.Page,
				PosX:        input.PosX,
				PosY:        input.PosY,
				Width:       input.Width,
				Height:      input.Height,
			})
		}

		return tx.ReplaceFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *documentService) SendDocument(ctx context.Context, userID, id uuid.UUID, req SendRequest) (*Document, error) {
	var doc *Document
	var recipients []Recipient
	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		var err error
		doc, err = lockedOwnedDocument(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if err := s.sm.Transition(string(doc.Status), string(StatusPending)); err != nil {
			return fmt.Errorf("%w: cannot send a %s document", ErrInvalidState, doc.Status)
		}

		recipients, err = tx.ListRecipients(ctx, id)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return ErrNoRecipients
		}

		doc.Subject = req.Subject
		doc.Message = req.Message
		doc.Status = StatusPending
		return tx.UpdateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.logAccess(ctx, id, nil, "SEND")

	// Notification failures never undo the send.
	for i := range recipients {
		recipient := recipients[i]
		go func() {
			if err := s.notifier.SendSigningRequest(context.Background(), doc, &recipient); err != nil {
				s.logger.Warn("failed to send signing request email",
					zap.String("document_id", id.String()),
					zap.String("recipient_email", recipient.Email),
					zap.Error(err))
			}
		}()
	}

	return doc, nil
}

func (s *documentService) logAccess(ctx context.Context, documentID uuid.UUID, recipientID *uuid.UUID, action string) {
	entry := &AccessLog{
		ID:          uuid.New(),
		DocumentID:  documentID,
		RecipientID: recipientID,
		Action:      action,
		PerformedAt: time.Now(),
	}
	if err := s.repo.LogAccess(ctx, entry); err != nil {
		s.logger.Warn("failed to write access log", zap.String("document_id", documentID.String()), zap.Error(err))
	}
}
