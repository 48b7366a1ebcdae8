package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile *UserProfile) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	var profile UserProfile
	err := r.db.GetContext(ctx, &profile, "SELECT * FROM user_profiles WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &profile, err
}

func (r *postgresRepository) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, display_name, profile_url, typed_signature, timezone, created_at, updated_at
		) VALUES (
			:user_id, :display_name, :profile_url, :typed_signature, :timezone, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			profile_url = EXCLUDED.profile_url,
			typed_signature = EXCLUDED.typed_signature,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`
	_, err := sqlx.NamedExecContext(ctx, r.db, query, profile)

	// The profile_url column carries a unique index across users
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrProfileURLTaken
	}
	return err
}
