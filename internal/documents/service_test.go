package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(m)
}

func (m *MockRepository) CreateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) GetDocumentForUpdate(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) ListDocumentsByOwner(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) ListPendingDocumentsBefore(ctx context.Context, cutoff time.Time) ([]Document, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) SoftDeleteDocument(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ReplaceRecipients(ctx context.Context, documentID uuid.UUID, recipients []Recipient) error {
	args := m.Called(ctx, documentID, recipients)
	return args.Error(0)
}

func (m *MockRepository) ListRecipients(ctx context.Context, documentID uuid.UUID) ([]Recipient, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]Recipient), args.Error(1)
}

func (m *MockRepository) GetRecipientByToken(ctx context.Context, token string) (*Recipient, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Recipient), args.Error(1)
}

func (m *MockRepository) MarkRecipientSigned(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ReplaceFields(ctx context.Context, documentID uuid.UUID, fields []Field) error {
	args := m.Called(ctx, documentID, fields)
	return args.Error(0)
}

func (m *MockRepository) ListFields(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]Field), args.Error(1)
}

func (m *MockRepository) ListFieldsForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Field, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).([]Field), args.Error(1)
}

func (m *MockRepository) GetFieldByID(ctx context.Context, id uuid.UUID) (*Field, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Field), args.Error(1)
}

func (m *MockRepository) InsertFieldValue(ctx context.Context, id uuid.UUID, value string) error {
	args := m.Called(ctx, id, value)
	return args.Error(0)
}

func (m *MockRepository) CreateSignature(ctx context.Context, sig *Signature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockRepository) ListSignaturesForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Signature, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).([]Signature), args.Error(1)
}

func (m *MockRepository) LogAccess(ctx context.Context, log *AccessLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// fakeS3 satisfies storage.S3Client without touching AWS
type fakeS3 struct{}

func (fakeS3) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	return nil
}

func (fakeS3) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (fakeS3) Delete(ctx context.Context, bucket, key string) error { return nil }

func (fakeS3) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

// countingNotifier counts dispatched emails
type countingNotifier struct {
	signingRequests int64
	completions     int64
	reminders       int64
}

func (n *countingNotifier) SendSigningRequest(ctx context.Context, doc *Document, recipient *Recipient) error {
	atomic.AddInt64(&n.signingRequests, 1)
	return nil
}

func (n *countingNotifier) SendDocumentCompleted(ctx context.Context, doc *Document, recipients []Recipient) error {
	atomic.AddInt64(&n.completions, 1)
	return nil
}

func (n *countingNotifier) SendSigningReminder(ctx context.Context, doc *Document, recipient *Recipient) error {
	atomic.AddInt64(&n.reminders, 1)
	return nil
}

func newTestService(repo Repository, notifier Notifier) Service {
	provider := NewStorageProvider(fakeS3{}, "test-bucket")
	return NewService(repo, provider, notifier, zap.NewNop())
}

func validPDF() string {
	return "%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"
}

func encryptedPDF() string {
	return "%PDF-1.7\ntrailer\n<< /Root 1 0 R /Encrypt 2 0 R >>\n%%EOF\n"
}

func TestUploadDocument(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	mockRepo.On("CreateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	doc, err := service.UploadDocument(ctx, UploadRequest{
		UserID:      uuid.New(),
		Title:       "contract.pdf",
		FileContent: strings.NewReader(validPDF()),
	})

	assert.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, "contract.pdf", doc.Title)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, "test-bucket", doc.S3Bucket)

	mockRepo.AssertExpectations(t)
}

func TestUploadDocumentRejectsEncryptedPDF(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	doc, err := service.UploadDocument(context.Background(), UploadRequest{
		UserID:      uuid.New(),
		Title:       "secret.pdf",
		FileContent: strings.NewReader(encryptedPDF()),
	})

	assert.ErrorIs(t, err, ErrInvalidDocumentFile)
	assert.Nil(t, doc)
	// No record may exist for a rejected upload
	mockRepo.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything)
}

func TestUploadDocumentRejectsNonPDF(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	_, err := service.UploadDocument(context.Background(), UploadRequest{
		UserID:      uuid.New(),
		Title:       "notes.txt",
		FileContent: strings.NewReader("just some text"),
	})

	assert.ErrorIs(t, err, ErrInvalidDocumentFile)
	mockRepo.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything)
}

func TestSendDocument(t *testing.T) {
	mockRepo := new(MockRepository)
	notifier := &countingNotifier{}
	service := newTestService(mockRepo, notifier)

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft}
	recipients := []Recipient{
		{ID: uuid.New(), DocumentID: docID, Email: "a@example.com", Role: RoleSigner},
		{ID: uuid.New(), DocumentID: docID, Email: "b@example.com", Role: RoleSigner},
	}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("ListRecipients", ctx, docID).Return(recipients, nil)
	mockRepo.On("UpdateDocument", ctx, doc).Return(nil)
	mockRepo.On("LogAccess", ctx, mock.AnythingOfType("*documents.AccessLog")).Return(nil)

	sent, err := service.SendDocument(ctx, userID, docID, SendRequest{Subject: "Please sign"})

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, sent.Status)
	assert.Equal(t, "Please sign", sent.Subject)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&notifier.signingRequests) == 2
	}, time.Second, 10*time.Millisecond, "every recipient gets a signing request email")

	mockRepo.AssertExpectations(t)
}

func TestSendDocumentRequiresRecipients(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("ListRecipients", ctx, docID).Return([]Recipient{}, nil)

	_, err := service.SendDocument(ctx, userID, docID, SendRequest{})
	assert.ErrorIs(t, err, ErrNoRecipients)
	mockRepo.AssertNotCalled(t, "UpdateDocument", mock.Anything, mock.Anything)
}

func TestSendDocumentRejectsNonDraft(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)

	for _, status := range []DocumentStatus{StatusPending, StatusCompleted} {
		docID := uuid.New()
		doc := &Document{ID: docID, UserID: userID, Status: status}
		mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)

		_, err := service.SendDocument(ctx, userID, docID, SendRequest{})
		assert.ErrorIs(t, err, ErrInvalidState, "status %s", status)
	}
}

func TestSetFieldsRequiresRecipients(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("ListRecipients", ctx, docID).Return([]Recipient{}, nil)

	_, err := service.SetFields(ctx, userID, docID, []FieldInput{
		{RecipientID: uuid.New(), Type: FieldSignature, Page: 1},
	})
	assert.ErrorIs(t, err, ErrNoRecipients)
	mockRepo.AssertNotCalled(t, "ReplaceFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetRecipientsMintsTokens(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("ReplaceRecipients", ctx, docID, mock.AnythingOfType("[]documents.Recipient")).Return(nil)

	recipients, err := service.SetRecipients(ctx, userID, docID, []RecipientInput{
		{Email: "a@example.com", Name: "Alice", Role: RoleSigner},
		{Email: "b@example.com", Name: "Bob", Role: RoleViewer},
	})

	assert.NoError(t, err)
	assert.Len(t, recipients, 2)
	assert.NotEmpty(t, recipients[0].Token)
	assert.NotEmpty(t, recipients[1].Token)
	assert.NotEqual(t, recipients[0].Token, recipients[1].Token)
	assert.Equal(t, SigningStatusNotSigned, recipients[0].SigningStatus)
}

func TestSetRecipientsRejectsUnknownRole(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	_, err := service.SetRecipients(context.Background(), uuid.New(), uuid.New(), []RecipientInput{
		{Email: "a@example.com", Name: "Alice", Role: RecipientRole("WITNESS")},
	})

	assert.ErrorIs(t, err, ErrInvalidRole)
	mockRepo.AssertNotCalled(t, "ReplaceRecipients", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetRecipientsReplaceFailureInsideTx(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft}
	replaceErr := errors.New("insert failed")

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("ReplaceRecipients", ctx, docID, mock.AnythingOfType("[]documents.Recipient")).Return(replaceErr)

	_, err := service.SetRecipients(ctx, userID, docID, []RecipientInput{
		{Email: "a@example.com", Name: "Alice", Role: RoleSigner},
	})

	// The error surfaces from inside the transaction, so the swap rolls back
	assert.ErrorIs(t, err, replaceErr)
	mockRepo.AssertCalled(t, "WithinTx", ctx, mock.Anything)
}

func TestUpdateSettings(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusDraft, Title: "old"}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)
	mockRepo.On("UpdateDocument", ctx, doc).Return(nil)

	updated, err := service.UpdateSettings(ctx, userID, docID, SettingsRequest{
		Title:       "Service Agreement",
		RedirectURL: "https://example.com/thanks",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Service Agreement", updated.Title)
	assert.Equal(t, "https://example.com/thanks", updated.RedirectURL)
	assert.Equal(t, StatusDraft, updated.Status)
	mockRepo.AssertExpectations(t)
}

func TestUpdateSettingsRefusesCompletedDocument(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	// The locked read sees the status a concurrent signer just committed,
	// so a stale editor cannot write the document back to PENDING.
	doc := &Document{ID: docID, UserID: userID, Status: StatusCompleted}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)

	_, err := service.UpdateSettings(ctx, userID, docID, SettingsRequest{Title: "edit"})

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StatusCompleted, doc.Status)
	mockRepo.AssertNotCalled(t, "UpdateDocument", mock.Anything, mock.Anything)
}

func TestCancelCompletedDocument(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: userID, Status: StatusCompleted}

	mockRepo.On("WithinTx", ctx, mock.Anything).Return(nil)
	mockRepo.On("GetDocumentForUpdate", ctx, docID).Return(doc, nil)

	err := service.CancelDocument(ctx, userID, docID)
	assert.ErrorIs(t, err, ErrInvalidState)
	mockRepo.AssertNotCalled(t, "SoftDeleteDocument", mock.Anything, mock.Anything)
}

func TestGetDocumentOwnership(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	docID := uuid.New()
	doc := &Document{ID: docID, UserID: uuid.New(), Status: StatusDraft}

	mockRepo.On("GetDocumentByID", ctx, docID).Return(doc, nil)

	_, err := service.GetDocument(ctx, uuid.New(), docID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestGetDocumentSoftDeleted(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &countingNotifier{})

	ctx := context.Background()
	userID := uuid.New()
	docID := uuid.New()
	deletedAt := time.Now()
	doc := &Document{ID: docID, UserID: userID, Status: StatusCancelled, DeletedAt: &deletedAt}

	mockRepo.On("GetDocumentByID", ctx, docID).Return(doc, nil)

	_, err := service.GetDocument(ctx, userID, docID)
	assert.ErrorIs(t, err, ErrNotFound)
}
