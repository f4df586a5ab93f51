package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// AuthService handles registration and login.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthService creates the service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, cfg config.AuthConfig) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg}
}

// LoginResult carries an issued token and its subject.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// RegisterRequester signs up a self-service requester account.
func (s *AuthService) RegisterRequester(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.register(ctx, name, email, password, domain.RoleRequester)
}

// CreateStaff provisions a technician or admin account. Admin only.
func (s *AuthService) CreateStaff(ctx context.Context, actor *domain.User, name, email, password string, role domain.Role) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if role != domain.RoleTechnician && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("role must be TECHNICIAN or ADMIN", map[string]any{"role": role})
	}
	return s.register(ctx, name, email, password, role)
}

func (s *AuthService) register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email is already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hashed, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
