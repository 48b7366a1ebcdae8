package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// First visit: hand back an empty profile rather than a 404
		return &UserProfile{UserID: userID, Timezone: "UTC"}, nil
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, profile *UserProfile) error {
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	return s.repo.UpsertProfile(ctx, profile)
}
