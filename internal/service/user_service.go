package service

import (
	"context"

	"github.com/hearthfin/hearth-backend/internal/domain"
)

// UserService handles user provisioning and bank access setup
type UserService struct {
	userRepo domain.UserRepository
	client   domain.BankDataClient
}

// NewUserService creates a new UserService
func NewUserService(userRepo domain.UserRepository, client domain.BankDataClient) *UserService {
	return &UserService{userRepo: userRepo, client: client}
}

// EnsureUser returns the user for the auth subject, creating it on first sight
func (s *UserService) EnsureUser(ctx context.Context, authID string) (*domain.User, error) {
	return s.userRepo.EnsureByAuthID(ctx, authID)
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, userID int32) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ClaimAccessURL exchanges a one-time setup token for a permanent bank access
// URL and stores it on the user
func (s *UserService) ClaimAccessURL(ctx context.Context, userID int32, setupToken string) (*domain.User, error) {
	accessURL, err := s.client.ClaimAccessURL(ctx, setupToken)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateAccessURL(ctx, userID, accessURL); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// HasAccessURL reports whether the user has bank sync configured
func (s *UserService) HasAccessURL(ctx context.Context, userID int32) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.AccessURL != nil && *user.AccessURL != "", nil
}
