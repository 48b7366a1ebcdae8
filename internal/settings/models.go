package settings

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProfileURLTaken means another user already claimed the public profile
// URL slug.
var ErrProfileURLTaken = errors.New("profile URL is already taken")

type UserProfile struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	ProfileURL     string    `json:"profile_url" db:"profile_url"`
	TypedSignature string    `json:"typed_signature" db:"typed_signature"`
	Timezone       string    `json:"timezone" db:"timezone"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
