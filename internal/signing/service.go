package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
	"quill-sign/signing-portal/signing-portal-backend/pkg/pdf"
)

var (
	// ErrActionAuthRequired means the recipient's action auth rule is unmet
	ErrActionAuthRequired = errors.New("authentication required to perform this action")
	// ErrFieldsIncomplete means the recipient tried to complete with
	// required fields still empty
	ErrFieldsIncomplete = errors.New("required fields are not completed")
	// ErrFieldAlreadySigned means the field already carries a value; one
	// field yields at most one signature artifact
	ErrFieldAlreadySigned = errors.New("field has already been signed")
	// ErrSignatureValueMissing means a signature field was submitted with
	// neither a drawn nor a typed signature
	ErrSignatureValueMissing = errors.New("a drawn or typed signature is required")
)

const defaultDateFormat = "2006-01-02"

// Session is the state behind a /sign/{token} link. When Challenge is set
// the access auth rule was unmet and the caller should present an
// authentication challenge instead of the document.
type Session struct {
	Challenge      bool                  `json:"challenge"`
	RecipientEmail string                `json:"recipient_email"`
	Document       *documents.Document   `json:"document,omitempty"`
	Recipient      *documents.Recipient  `json:"recipient,omitempty"`
	Fields         []documents.Field     `json:"fields,omitempty"`
}

type CompleteResult struct {
	DocumentCompleted bool   `json:"document_completed"`
	RedirectURL       string `json:"redirect_url"`
}

type CompletedSummary struct {
	Challenge      bool                   `json:"challenge"`
	RecipientEmail string                 `json:"recipient_email"`
	Document       *documents.Document    `json:"document,omitempty"`
	Recipient      *documents.Recipient   `json:"recipient,omitempty"`
	Signatures     []documents.Signature  `json:"signatures,omitempty"`
}

type SignFieldRequest struct {
	Value          string `json:"value"`
	DrawnSignature []byte `json:"drawn_signature"`
	TypedSignature string `json:"typed_signature"`
}

type Service interface {
	GetSession(ctx context.Context, token string, actor *auth.Actor) (*Session, error)
	SignField(ctx context.Context, token string, fieldID uuid.UUID, req SignFieldRequest, actor *auth.Actor) (*documents.Field, error)
	Complete(ctx context.Context, token string, actor *auth.Actor) (*CompleteResult, error)
	GetCompletedSummary(ctx context.Context, token string, actor *auth.Actor) (*CompletedSummary, error)
}

type signingService struct {
	repo       documents.Repository
	aggregator *Aggregator
	notifier   documents.Notifier
	storage    *documents.StorageProvider
	certifier  *pdf.Generator
	logger     *zap.Logger
}

func NewService(repo documents.Repository, aggregator *Aggregator, notifier documents.Notifier, storage *documents.StorageProvider, certifier *pdf.Generator, logger *zap.Logger) Service {
	return &signingService{
		repo:       repo,
		aggregator: aggregator,
		notifier:   notifier,
		storage:    storage,
		certifier:  certifier,
		logger:     logger,
	}
}

// resolveToken looks up the recipient and its live document. Unknown tokens
// and cancelled documents are indistinguishable to the caller.
func (s *signingService) resolveToken(ctx context.Context, token string) (*documents.Document, *documents.Recipient, error) {
	recipient, err := s.repo.GetRecipientByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if recipient == nil {
		return nil, nil, documents.ErrNotFound
	}

	doc, err := s.repo.GetDocumentByID(ctx, recipient.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil || doc.DeletedAt != nil || doc.Status == documents.StatusCancelled {
		return nil, nil, documents.ErrNotFound
	}
	return doc, recipient, nil
}

func (s *signingService) GetSession(ctx context.Context, token string, actor *auth.Actor) (*Session, error) {
	doc, recipient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if doc.Status == documents.StatusDraft {
		return nil, fmt.Errorf("%w: document has not been sent yet", documents.ErrInvalidState)
	}

	if !IsRecipientAuthorized(KindAccess, doc, recipient, actor) {
		return &Session{Challenge: true, RecipientEmail: recipient.Email}, nil
	}

	fields, err := s.repo.ListFieldsForRecipient(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}

	s.logAccess(ctx, doc.ID, recipient.ID, "VIEW")

	return &Session{
		RecipientEmail: recipient.Email,
		Document:       doc,
		Recipient:      recipient,
		Fields:         fields,
	}, nil
}

func (s *signingService) SignField(ctx context.Context, token string, fieldID uuid.UUID, req SignFieldRequest, actor *auth.Actor) (*documents.Field, error) {
	doc, recipient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if doc.Status != documents.StatusPending {
		return nil, fmt.Errorf("%w: document is %s", documents.ErrInvalidState, doc.Status)
	}
	if !IsRecipientAuthorized(KindAction, doc, recipient, actor) {
		return nil, ErrActionAuthRequired
	}

	field, err := s.repo.GetFieldByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil || field.RecipientID != recipient.ID {
		return nil, documents.ErrNotFound
	}
	if field.Inserted {
		return nil, ErrFieldAlreadySigned
	}

	value, err := s.fieldValue(doc, recipient, field, req)
	if err != nil {
		return nil, err
	}

	if field.Type == documents.FieldSignature {
		sig := &documents.Signature{
			ID:             uuid.New(),
			DocumentID:     doc.ID,
			RecipientID:    recipient.ID,
			FieldID:        field.ID,
			DrawnSignature: req.DrawnSignature,
			TypedSignature: req.TypedSignature,
			CreatedAt:      time.Now(),
		}
		if err := s.repo.CreateSignature(ctx, sig); err != nil {
			return nil, err
		}
	}

	if err := s.repo.InsertFieldValue(ctx, field.ID, value); err != nil {
		return nil, err
	}

	s.logAccess(ctx, doc.ID, recipient.ID, "SIGN_FIELD")

	field.Inserted = true
	field.Value = value
	return field, nil
}

// fieldValue derives the stored value for a field. Name, email and date
// fields auto-fill from the recipient and document settings.
func (s *signingService) fieldValue(doc *documents.Document, recipient *documents.Recipient, field *documents.Field, req SignFieldRequest) (string, error) {
	switch field.Type {
	case documents.FieldSignature:
		if len(req.DrawnSignature) == 0 && req.TypedSignature == "" {
			return "", ErrSignatureValueMissing
		}
		if req.TypedSignature != "" {
			return req.TypedSignature, nil
		}
		return "[drawn signature]", nil
	case documents.FieldName:
		return recipient.Name, nil
	case documents.FieldEmail:
		return recipient.Email, nil
	case documents.FieldDate:
		format := doc.DateFormat
		if format == "" {
			format = defaultDateFormat
		}
		return time.Now().Format(format), nil
	default:
		if req.Value == "" {
			return "", fmt.Errorf("field value is required")
		}
		return req.Value, nil
	}
}

func (s *signingService) Complete(ctx context.Context, token string, actor *auth.Actor) (*CompleteResult, error) {
	doc, recipient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !IsRecipientAuthorized(KindAction, doc, recipient, actor) {
		return nil, ErrActionAuthRequired
	}

	if recipient.SigningStatus == documents.SigningStatusSigned {
		// Repeated completion is harmless
		return &CompleteResult{
			DocumentCompleted: doc.Status == documents.StatusCompleted,
			RedirectURL:       s.redirectURL(doc, token),
		}, nil
	}

	// Viewers acknowledge without fields; signers and approvers must have
	// inserted every assigned field first.
	if recipient.Role.HasSigningObligation() {
		fields, err := s.repo.ListFieldsForRecipient(ctx, recipient.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if !f.Inserted {
				return nil, ErrFieldsIncomplete
			}
		}
	}

	completed, err := s.aggregator.CompleteRecipient(ctx, doc.ID, recipient.ID)
	if err != nil {
		return nil, err
	}

	s.logAccess(ctx, doc.ID, recipient.ID, "COMPLETE")

	if completed {
		s.fanOutCompletion(doc)
	}

	return &CompleteResult{
		DocumentCompleted: completed,
		RedirectURL:       s.redirectURL(doc, token),
	}, nil
}

func (s *signingService) redirectURL(doc *documents.Document, token string) string {
	if doc.RedirectURL != "" {
		return doc.RedirectURL
	}
	return fmt.Sprintf("/sign/%s/complete", token)
}

// fanOutCompletion fires the post-completion side effects: notification
// emails to every party and the signing certificate. Both are best effort
// and never influence the committed transition.
func (s *signingService) fanOutCompletion(doc *documents.Document) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		recipients, err := s.repo.ListRecipients(ctx, doc.ID)
		if err != nil {
			s.logger.Warn("failed to load recipients for completion email", zap.String("document_id", doc.ID.String()), zap.Error(err))
			return
		}

		if err := s.notifier.SendDocumentCompleted(ctx, doc, recipients); err != nil {
			s.logger.Warn("failed to send completion emails", zap.String("document_id", doc.ID.String()), zap.Error(err))
		}

		entries := make([]pdf.CertificateEntry, 0, len(recipients))
		for _, r := range recipients {
			signedAt := time.Now()
			if r.SignedAt != nil {
				signedAt = *r.SignedAt
			}
			entries = append(entries, pdf.CertificateEntry{
				Name:     r.Name,
				Email:    r.Email,
				Role:     string(r.Role),
				SignedAt: signedAt,
			})
		}

		cert, err := s.certifier.GenerateCertificate(doc.Title, time.Now(), entries)
		if err != nil {
			s.logger.Warn("failed to generate signing certificate", zap.String("document_id", doc.ID.String()), zap.Error(err))
			return
		}

		key := s.storage.CertificateKey(doc.UserID.String(), doc.ID.String())
		if err := s.storage.Upload(ctx, key, cert); err != nil {
			s.logger.Warn("failed to store signing certificate", zap.String("document_id", doc.ID.String()), zap.Error(err))
		}
	}()
}

func (s *signingService) GetCompletedSummary(ctx context.Context, token string, actor *auth.Actor) (*CompletedSummary, error) {
	doc, recipient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !IsRecipientAuthorized(KindAccess, doc, recipient, actor) {
		return &CompletedSummary{Challenge: true, RecipientEmail: recipient.Email}, nil
	}

	signatures, err := s.repo.ListSignaturesForRecipient(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}

	return &CompletedSummary{
		RecipientEmail: recipient.Email,
		Document:       doc,
		Recipient:      recipient,
		Signatures:     signatures,
	}, nil
}

func (s *signingService) logAccess(ctx context.Context, documentID, recipientID uuid.UUID, action string) {
	entry := &documents.AccessLog{
		ID:          uuid.New(),
		DocumentID:  documentID,
		RecipientID: &recipientID,
		Action:      action,
		PerformedAt: time.Now(),
	}
	if err := s.repo.LogAccess(ctx, entry); err != nil {
		s.logger.Warn("failed to write access log", zap.String("document_id", documentID.String()), zap.Error(err))
	}
}
