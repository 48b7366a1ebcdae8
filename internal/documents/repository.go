package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// WithinTx runs fn against a transaction-bound repository. The
	// completion check relies on this so that two recipients finishing at
	// the same moment serialize on the document row.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetDocumentForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocumentsByOwner(ctx context.Context, userID uuid.UUID) ([]Document, error)
	ListPendingDocumentsBefore(ctx context.Context, cutoff time.Time) ([]Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error
	SoftDeleteDocument(ctx context.Context, id uuid.UUID) error

	ReplaceRecipients(ctx context.Context, documentID uuid.UUID, recipients []Recipient) error
	ListRecipients(ctx context.Context, documentID uuid.UUID) ([]Recipient, error)
	GetRecipientByToken(ctx context.Context, token string) (*Recipient, error)
	MarkRecipientSigned(ctx context.Context, id uuid.UUID) error

	ReplaceFields(ctx context.Context, documentID uuid.UUID, fields []Field) error
	ListFields(ctx context.Context, documentID uuid.UUID) ([]Field, error)
	ListFieldsForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Field, error)
	GetFieldByID(ctx context.Context, id uuid.UUID) (*Field, error)
	InsertFieldValue(ctx context.Context, id uuid.UUID, value string) error

	CreateSignature(ctx context.Context, sig *Signature) error
	ListSignaturesForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Signature, error)

	LogAccess(ctx context.Context, log *AccessLog) error
}

type postgresRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db, ext: db}
}

func (r *postgresRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if _, ok := r.ext.(*sqlx.Tx); ok {
		// Already transaction-bound, reuse it
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &postgresRepository{db: r.db, ext: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, user_id, team_id, title, status, s3_key, s3_bucket, file_size,
			access_auth, action_auth, timezone, date_format, redirect_url,
			subject, message, created_at, updated_at
		) VALUES (
			:id, :user_id, :team_id, :title, :status, :s3_key, :s3_bucket, :file_size,
			:access_auth, :action_auth, :timezone, :date_format, :redirect_url,
			:subject, :message, :created_at, :updated_at
		)`
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := sqlx.GetContext(ctx, r.ext, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &doc, err
}

func (r *postgresRepository) GetDocumentForUpdate(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := sqlx.GetContext(ctx, r.ext, &doc, "SELECT * FROM documents WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &doc, err
}

func (r *postgresRepository) ListDocumentsByOwner(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	var docs []Document
	err := sqlx.SelectContext(ctx, r.ext, &docs,
		"SELECT * FROM documents WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC", userID)
	return docs, err
}

func (r *postgresRepository) ListPendingDocumentsBefore(ctx context.Context, cutoff time.Time) ([]Document, error) {
	var docs []Document
	err := sqlx.SelectContext(ctx, r.ext, &docs,
		"SELECT * FROM documents WHERE status = $1 AND deleted_at IS NULL AND updated_at < $2", StatusPending, cutoff)
	return docs, err
}

func (r *postgresRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	doc.UpdatedAt = time.Now()
	query := `
		UPDATE documents SET
			title = :title,
			status = :status,
			access_auth = :access_auth,
			action_auth = :action_auth,
			timezone = :timezone,
			date_format = :date_format,
			redirect_url = :redirect_url,
			subject = :subject,
			message = :message,
			updated_at = :updated_at
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, doc)
	return err
}

func (r *postgresRepository) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	_, err := r.ext.ExecContext(ctx,
		"UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3", status, time.Now(), id)
	return err
}

func (r *postgresRepository) SoftDeleteDocument(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.ext.ExecContext(ctx,
		"UPDATE documents SET status = $1, deleted_at = $2, updated_at = $2 WHERE id = $3",
		StatusCancelled, now, id)
	return err
}

// ReplaceRecipients swaps the full recipient set. The delete and the inserts
// commit together; a failed insert leaves the previous set intact.
func (r *postgresRepository) ReplaceRecipients(ctx context.Context, documentID uuid.UUID, recipients []Recipient) error {
	return r.WithinTx(ctx, func(repo Repository) error {
		tx := repo.(*postgresRepository)
		if _, err := tx.ext.ExecContext(ctx, "DELETE FROM recipients WHERE document_id = $1", documentID); err != nil {
			return err
		}
		query := `
			INSERT INTO recipients (
				id, document_id, email, name, role, token, action_auth, signing_status
			) VALUES (
				:id, :document_id, :email, :name, :role, :token, :action_auth, :signing_status
			)`
		for i := range recipients {
			if _, err := sqlx.NamedExecContext(ctx, tx.ext, query, &recipients[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresRepository) ListRecipients(ctx context.Context, documentID uuid.UUID) ([]Recipient, error) {
	var recipients []Recipient
	err := sqlx.SelectContext(ctx, r.ext, &recipients,
		"SELECT * FROM recipients WHERE document_id = $1 ORDER BY email", documentID)
	return recipients, err
}

func (r *postgresRepository) GetRecipientByToken(ctx context.Context, token string) (*Recipient, error) {
	var recipient Recipient
	err := sqlx.GetContext(ctx, r.ext, &recipient, "SELECT * FROM recipients WHERE token = $1", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &recipient, err
}

func (r *postgresRepository) MarkRecipientSigned(ctx context.Context, id uuid.UUID) error {
	_, err := r.ext.ExecContext(ctx,
		"UPDATE recipients SET signing_status = $1, signed_at = $2 WHERE id = $3",
		SigningStatusSigned, time.Now(), id)
	return err
}

// ReplaceFields swaps the full field set with the same all-or-nothing
// guarantee as ReplaceRecipients.
func (r *postgresRepository) ReplaceFields(ctx context.Context, documentID uuid.UUID, fields []Field) error {
	return r.WithinTx(ctx, func(repo Repository) error {
		tx := repo.(*postgresRepository)
		if _, err := tx.ext.ExecContext(ctx, "DELETE FROM fields WHERE document_id = $1", documentID); err != nil {
			return err
		}
		query := `
			INSERT INTO fields (
				id, document_id, recipient_id, type, page, pos_x, pos_y, width, height, inserted, value
			) VALUES (
				:id, :document_id, :recipient_id, :type, :page, :pos_x, :pos_y, :width, :height, :inserted, :value
			)`
		for i := range fields {
			if _, err := sqlx.NamedExecContext(ctx, tx.ext, query, &fields[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresRepository) ListFields(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	var fields []Field
	err := sqlx.SelectContext(ctx, r.ext, &fields,
		"SELECT * FROM fields WHERE document_id = $1 ORDER BY page, pos_y, pos_x", documentID)
	return fields, err
}

func (r *postgresRepository) ListFieldsForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Field, error) {
	var fields []Field
	err := sqlx.SelectContext(ctx, r.ext, &fields,
		"SELECT * FROM fields WHERE recipient_id = $1 ORDER BY page, pos_y, pos_x", recipientID)
	return fields, err
}

func (r *postgresRepository) GetFieldByID(ctx context.Context, id uuid.UUID) (*Field, error) {
	var field Field
	err := sqlx.GetContext(ctx, r.ext, &field, "SELECT * FROM fields WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &field, err
}

func (r *postgresRepository) InsertFieldValue(ctx context.Context, id uuid.UUID, value string) error {
	_, err := r.ext.ExecContext(ctx,
		"UPDATE fields SET inserted = TRUE, value = $1 WHERE id = $2", value, id)
	return err
}

func (r *postgresRepository) CreateSignature(ctx context.Context, sig *Signature) error {
	query := `
		INSERT INTO signatures (
			id, document_id, recipient_id, field_id, drawn_signature, typed_signature, created_at
		) VALUES (
			:id, :document_id, :recipient_id, :field_id, :drawn_signature, :typed_signature, :created_at
		)`
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, sig)
	return err
}

func (r *postgresRepository) ListSignaturesForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Signature, error) {
	var signatures []Signature
	err := sqlx.SelectContext(ctx, r.ext, &signatures,
		"SELECT * FROM signatures WHERE recipient_id = $1 ORDER BY created_at DESC", recipientID)
	return signatures, err
}

func (r *postgresRepository) LogAccess(ctx context.Context, log *AccessLog) error {
	query := `
		INSERT INTO document_access_logs (
			id, document_id, recipient_id, action, ip_address, user_agent, performed_at
		) VALUES (
			:id, :document_id, :recipient_id, :action, :ip_address, :user_agent, :performed_at
		)`
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, log)
	return err
}
