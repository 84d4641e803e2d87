package service

import (
	"context"
	"fmt"

	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

// UserService serves the signed-in user's profile, history and settings.
type UserService struct {
	users    repository.UserRepository
	records  repository.RecordRepository
	settings repository.SettingsRepository
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{users: store, records: store, settings: store}
}

// Profile returns the user with badges, full history and favorite category
// filled in.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading %s: %w", userID, err)
	}
	if user.Badges, err = s.records.ListBadges(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/user: loading badges: %w", err)
	}
	if user.RecyclingHistory, err = s.records.ListRecords(ctx, userID, repository.ListOptions{}); err != nil {
		return nil, fmt.Errorf("service/user: loading history: %w", err)
	}
	user.FavoriteCategory = FavoriteCategory(user.RecyclingHistory)
	return user, nil
}

// History returns a page of deposits, most recent first.
func (s *UserService) History(ctx context.Context, userID string, limit, offset int) ([]model.RecycleRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.records.ListRecords(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/user: listing history: %w", err)
	}
	return records, nil
}

func (s *UserService) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	badges, err := s.records.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing badges: %w", err)
	}
	return badges, nil
}

func (s *UserService) Settings(ctx context.Context, userID string) (model.Settings, error) {
	settings, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return settings, fmt.Errorf("service/user: loading settings: %w", err)
	}
	return settings, nil
}

func (s *UserService) SaveSettings(ctx context.Context, userID string, settings model.Settings) error {
	if err := s.settings.SaveSettings(ctx, userID, settings); err != nil {
		return fmt.Errorf("service/user: saving settings: %w", err)
	}
	return nil
}
