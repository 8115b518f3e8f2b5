package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/nodeflow-go/internal/auth/ports"
	"github.com/nodeflow-go/internal/domain/user"
	"github.com/nodeflow-go/pkg/apperrors"
	"github.com/nodeflow-go/pkg/auth/jwt"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	authmw "github.com/nodeflow-go/pkg/middleware/auth"
	"github.com/nodeflow-go/pkg/repository"
)

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=1"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthService struct {
	tx         database.Transactor
	users      ports.UserRepository
	jwtManager *jwt.Manager
	redis      *redis.Client
	publisher  ports.EventPublisher
	logger     logger.Logger
}

func NewAuthService(
	tx database.Transactor,
	users ports.UserRepository,
	jwtManager *jwt.Manager,
	redis *redis.Client,
	publisher ports.EventPublisher,
	logger logger.Logger,
) *AuthService {
	return &AuthService{
		tx:         tx,
		users:      users,
		jwtManager: jwtManager,
		redis:      redis,
		publisher:  publisher,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, creds Credentials) (*user.User, error) {
	email := normalizeEmail(creds.Email)

	newUser, err := user.NewUser(email, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		_, err := s.users.GetBy(ctx, repository.Filters{"email": email})
		switch {
		case err == nil:
			return apperrors.ErrUserAlreadyExists
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if err := s.users.Create(ctx, newUser); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", newUser.ID)
	s.publisher.Publish(ctx, events.NewEventBuilder(events.UserRegistered).
		WithAggregate("user", newUser.ID).
		WithPayload("email", newUser.Email).
		Build())

	return newUser, nil
}

// Login exchanges valid credentials for a bearer access token. Unknown emails
// and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*Token, error) {
	u, err := s.users.GetBy(ctx, repository.Filters{"email": normalizeEmail(creds.Email)})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrAuthCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(creds.Password) {
		s.logger.Warn("Failed login attempt", "user_id", u.ID)
		return nil, apperrors.ErrAuthCredentials
	}

	accessToken, err := s.jwtManager.GenerateToken(u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &Token{AccessToken: accessToken, TokenType: "bearer"}, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return apperrors.ErrAuthCredentials
	}
	if err := authmw.Revoke(ctx, s.redis, token, claims.TTL()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// CurrentUser resolves a bearer token to its stored user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	revoked, err := authmw.IsRevoked(ctx, s.redis, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrAuthCredentials
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, apperrors.ErrAuthCredentials
	}
	return s.userByEmail(ctx, claims.Subject)
}

// ResolveUserID is the lookup used by the bearer token middleware.
func (s *AuthService) ResolveUserID(ctx context.Context, email string) (int64, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*user.User, error) {
	return repository.GetOr(ctx, s.users, repository.Filters{"email": email}, apperrors.ErrAuthCredentials)
}
