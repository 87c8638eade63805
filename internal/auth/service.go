package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/user"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Service turns a bearer token into the acting user.
type Service struct {
	validator TokenValidator
	users     UserRepository
	logger    *slog.Logger
}

func NewService(validator TokenValidator, users UserRepository, logger *slog.Logger) *Service {
	return &Service{validator: validator, users: users, logger: logger}
}

func (s *Service) Authenticate(ctx context.Context, token string) (*internal.Actor, error) {
	if token == "" {
		return nil, internal.ErrInvalidToken
	}

	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Principal())
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.logger.Warn("token subject has no user record", "user_id", claims.Principal())
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !u.IsActiveUser() {
		return nil, internal.ErrUserInactive
	}

	actor := &internal.Actor{
		ID:              u.ID,
		Email:           u.Email,
		OrganizationID:  u.OrganizationID,
		PermissionLevel: int(u.PermissionLevel),
	}
	if actor.OrganizationID == "" {
		actor.OrganizationID = claims.OrganizationID
	}
	if actor.Email == "" {
		actor.Email = claims.Email
	}
	return actor, nil
}
