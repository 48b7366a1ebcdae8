package signing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
	"quill-sign/signing-portal/signing-portal-backend/pkg/workflows"
)

// AllSigningObligationsMet reports whether every recipient that blocks
// completion (signers and approvers) has signed. Viewers never block.
func AllSigningObligationsMet(recipients []documents.Recipient) bool {
	for _, r := range recipients {
		if !r.Role.HasSigningObligation() {
			continue
		}
		if r.SigningStatus != documents.SigningStatusSigned {
			return false
		}
	}
	return true
}

// Aggregator decides whether a recipient action completed the whole
// document.
type Aggregator struct {
	repo documents.Repository
	sm   *workflows.StateMachine
}

func NewAggregator(repo documents.Repository) *Aggregator {
	return &Aggregator{
		repo: repo,
		sm:   workflows.NewDocumentStateMachine(),
	}
}

// CompleteRecipient marks the recipient as signed and re-evaluates the
// document, all inside one transaction holding a row lock on the document.
// Two recipients finishing at the same moment therefore serialize, and
// exactly one of them observes the all-done state. Running against an
// already completed document is a no-op.
func (a *Aggregator) CompleteRecipient(ctx context.Context, documentID, recipientID uuid.UUID) (completed bool, err error) {
	err = a.repo.WithinTx(ctx, func(tx documents.Repository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if doc == nil || doc.DeletedAt != nil {
			return documents.ErrNotFound
		}
		if doc.Status == documents.StatusCompleted {
			// Idempotent: re-running after completion changes nothing
			return nil
		}
		if doc.Status != documents.StatusPending {
			return fmt.Errorf("%w: cannot sign a %s document", documents.ErrInvalidState, doc.Status)
		}

		if err := tx.MarkRecipientSigned(ctx, recipientID); err != nil {
			return err
		}

		recipients, err := tx.ListRecipients(ctx, documentID)
		if err != nil {
			return err
		}
		if !AllSigningObligationsMet(recipients) {
			return nil
		}

		if err := a.sm.Transition(string(doc.Status), string(documents.StatusCompleted)); err != nil {
			return err
		}
		if err := tx.UpdateDocumentStatus(ctx, documentID, documents.StatusCompleted); err != nil {
			return err
		}
		completed = true
		return nil
	})
	return completed, err
}
