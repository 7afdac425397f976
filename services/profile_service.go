package services

import (
	"alumni-chat/auth"
	"alumni-chat/domain"
	"alumni-chat/errors"
	"alumni-chat/repositories"
	"context"
	"log/slog"
)

type ProfileService struct {
	log   *slog.Logger
	users repositories.IUserRepository
}

func NewProfileService(log *slog.Logger, users repositories.IUserRepository) *ProfileService {
	return &ProfileService{log: log, users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (domain.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *ProfileService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update saves the profile of the signed-in user. Nobody can edit someone else's profile.
func (s *ProfileService) Update(ctx context.Context, session auth.Session, userID string, form auth.ProfileForm) (domain.User, error) {
	currentID, err := session.RequireUserID()
	if err != nil {
		return domain.User{}, err
	}
	if currentID != userID {
		return domain.User{}, errors.ErrForbidden
	}
	if err := auth.ValidateProfile(form); err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:             userID,
		Name:           form.Name,
		RegisterNumber: form.RegisterNumber,
		Email:          form.Email,
		Role:           domain.Role(form.Role),
		Gender:         form.Gender,
		Department:     form.Department,
		Batch:          form.Batch,
		Phone:          form.Phone,
	}
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	if err := s.users.Save(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("Profile updated", "user_id", userID)
	return user, nil
}
