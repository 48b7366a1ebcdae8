package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

// EmailChannel delivers a single rendered email.
type EmailChannel interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type sesChannel struct {
	client *sesv2.Client
	from   string
}

// NewSESChannel builds an SESv2-backed email channel.
func NewSESChannel(ctx context.Context, fromAddress string) (EmailChannel, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return &sesChannel{
		client: sesv2.NewFromConfig(cfg),
		from:   fromAddress,
	}, nil
}

func (c *sesChannel) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// Service sends workflow emails and logs every attempt. It implements
// documents.Notifier.
type Service struct {
	db      *gorm.DB
	channel EmailChannel
	baseURL string
	logger  *zap.Logger
}

func NewService(db *gorm.DB, channel EmailChannel, baseURL string, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&SentEmail{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Service{
		db:      db,
		channel: channel,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

func (s *Service) SendSigningRequest(ctx context.Context, doc *documents.Document, recipient *documents.Recipient) error {
	subject := doc.Subject
	if subject == "" {
		subject = fmt.Sprintf("Please sign: %s", doc.Title)
	}
	body := signingRequestBody(doc, recipient, s.signingLink(recipient.Token))
	return s.send(ctx, doc, recipient.Email, TemplateSigningRequest, subject, body)
}

func (s *Service) SendSigningReminder(ctx context.Context, doc *documents.Document, recipient *documents.Recipient) error {
	subject := fmt.Sprintf("Reminder: %s is waiting for your signature", doc.Title)
	body := signingReminderBody(doc, recipient, s.signingLink(recipient.Token))
	return s.send(ctx, doc, recipient.Email, TemplateSigningReminder, subject, body)
}

func (s *Service) SendDocumentCompleted(ctx context.Context, doc *documents.Document, recipients []documents.Recipient) error {
	subject := fmt.Sprintf("Completed: %s", doc.Title)

	var firstErr error
	for i := range recipients {
		recipient := &recipients[i]
		body := documentCompletedBody(doc, recipient, s.signingLink(recipient.Token)+"/completed")
		if err := s.send(ctx, doc, recipient.Email, TemplateDocumentCompleted, subject, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) signingLink(token string) string {
	return fmt.Sprintf("%s/sign/%s", s.baseURL, token)
}

func (s *Service) send(ctx context.Context, doc *documents.Document, to, template, subject, body string) error {
	metadata, _ := json.Marshal(map[string]string{
		"document_title": doc.Title,
		"status":         string(doc.Status),
	})

	record := &SentEmail{
		DocumentID:     doc.ID,
		RecipientEmail: to,
		Template:       template,
		Subject:        subject,
		Status:         StatusPending,
		Metadata:       datatypes.JSON(metadata),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logger.Warn("failed to record outbound email", zap.String("to", to), zap.Error(err))
	}

	if err := s.channel.Send(ctx, to, subject, body); err != nil {
		record.Status = StatusFailed
		record.ErrorMessage = err.Error()
		s.db.WithContext(ctx).Save(record)
		return err
	}

	now := time.Now()
	record.Status = StatusSent
	record.SentAt = &now
	s.db.WithContext(ctx).Save(record)
	return nil
}
