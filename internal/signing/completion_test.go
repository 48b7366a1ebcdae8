package signing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

// memoryRepo backs the aggregator tests with in-memory state. Only the
// methods the aggregator touches are implemented; the embedded interface
// catches anything else.
type memoryRepo struct {
	documents.Repository

	doc        *documents.Document
	recipients []documents.Recipient
}

func (r *memoryRepo) WithinTx(ctx context.Context, fn func(tx documents.Repository) error) error {
	return fn(r)
}

func (r *memoryRepo) GetDocumentForUpdate(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return r.doc, nil
}

func (r *memoryRepo) MarkRecipientSigned(ctx context.Context, id uuid.UUID) error {
	for i := range r.recipients {
		if r.recipients[i].ID == id {
			now := time.Now()
			r.recipients[i].SigningStatus = documents.SigningStatusSigned
			r.recipients[i].SignedAt = &now
		}
	}
	return nil
}

func (r *memoryRepo) ListRecipients(ctx context.Context, documentID uuid.UUID) ([]documents.Recipient, error) {
	return r.recipients, nil
}

func (r *memoryRepo) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status documents.DocumentStatus) error {
	r.doc.Status = status
	return nil
}

func newPendingRepo(recipients ...documents.Recipient) *memoryRepo {
	return &memoryRepo{
		doc: &documents.Document{
			ID:     uuid.New(),
			Status: documents.StatusPending,
		},
		recipients: recipients,
	}
}

func signer() documents.Recipient {
	return documents.Recipient{ID: uuid.New(), Role: documents.RoleSigner, SigningStatus: documents.SigningStatusNotSigned}
}

func TestAllSigningObligationsMet(t *testing.T) {
	signed := documents.Recipient{Role: documents.RoleSigner, SigningStatus: documents.SigningStatusSigned}
	unsigned := documents.Recipient{Role: documents.RoleSigner, SigningStatus: documents.SigningStatusNotSigned}
	approver := documents.Recipient{Role: documents.RoleApprover, SigningStatus: documents.SigningStatusNotSigned}
	viewer := documents.Recipient{Role: documents.RoleViewer, SigningStatus: documents.SigningStatusNotSigned}

	assert.True(t, AllSigningObligationsMet(nil))
	assert.True(t, AllSigningObligationsMet([]documents.Recipient{signed}))
	assert.False(t, AllSigningObligationsMet([]documents.Recipient{signed, unsigned}))
	assert.False(t, AllSigningObligationsMet([]documents.Recipient{signed, approver}))
	assert.True(t, AllSigningObligationsMet([]documents.Recipient{signed, viewer}))
}

func TestCompleteRecipientSingleSigner(t *testing.T) {
	only := signer()
	repo := newPendingRepo(only)
	aggregator := NewAggregator(repo)

	completed, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, only.ID)

	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, documents.StatusCompleted, repo.doc.Status)
	assert.Equal(t, documents.SigningStatusSigned, repo.recipients[0].SigningStatus)
}

func TestCompleteRecipientWaitsForAllSigners(t *testing.T) {
	first := signer()
	second := signer()

	// The document only completes once the last signer finishes,
	// whichever order they arrive in.
	orders := [][]documents.Recipient{{first, second}, {second, first}}
	for _, order := range orders {
		repo := newPendingRepo(first, second)
		aggregator := NewAggregator(repo)

		completed, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, order[0].ID)
		require.NoError(t, err)
		assert.False(t, completed)
		assert.Equal(t, documents.StatusPending, repo.doc.Status)

		completed, err = aggregator.CompleteRecipient(context.Background(), repo.doc.ID, order[1].ID)
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Equal(t, documents.StatusCompleted, repo.doc.Status)
	}
}

func TestCompleteRecipientViewerNeverBlocks(t *testing.T) {
	alice := signer()
	viewer := documents.Recipient{ID: uuid.New(), Role: documents.RoleViewer, SigningStatus: documents.SigningStatusNotSigned}
	repo := newPendingRepo(alice, viewer)
	aggregator := NewAggregator(repo)

	completed, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, alice.ID)

	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, documents.StatusCompleted, repo.doc.Status)
	assert.Equal(t, documents.SigningStatusNotSigned, repo.recipients[1].SigningStatus)
}

func TestCompleteRecipientIdempotentAfterCompletion(t *testing.T) {
	alice := signer()
	repo := newPendingRepo(alice)
	repo.doc.Status = documents.StatusCompleted
	repo.recipients[0].SigningStatus = documents.SigningStatusSigned
	aggregator := NewAggregator(repo)

	completed, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, alice.ID)

	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, documents.StatusCompleted, repo.doc.Status)
}

func TestCompleteRecipientRejectsDraft(t *testing.T) {
	alice := signer()
	repo := newPendingRepo(alice)
	repo.doc.Status = documents.StatusDraft
	aggregator := NewAggregator(repo)

	completed, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, alice.ID)

	assert.ErrorIs(t, err, documents.ErrInvalidState)
	assert.False(t, completed)
	assert.Equal(t, documents.SigningStatusNotSigned, repo.recipients[0].SigningStatus)
}

func TestCompleteRecipientDeletedDocument(t *testing.T) {
	alice := signer()
	repo := newPendingRepo(alice)
	deletedAt := time.Now()
	repo.doc.DeletedAt = &deletedAt
	aggregator := NewAggregator(repo)

	_, err := aggregator.CompleteRecipient(context.Background(), repo.doc.ID, alice.ID)
	assert.ErrorIs(t, err, documents.ErrNotFound)
}
