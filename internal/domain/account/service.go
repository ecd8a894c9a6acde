package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bhis/bhis/internal/platform/auth"
)

const (
	minPasswordLength = 8
	tokenType         = "Bearer"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (*auth.IssuedToken, error)
}

// Revoker invalidates a token before it expires.
type Revoker interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

type Service struct {
	repo    Repository
	tokens  TokenIssuer
	revoker Revoker
	logger  zerolog.Logger
	cost    int
}

func NewService(repo Repository, tokens TokenIssuer, revoker Revoker, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, revoker: revoker, logger: logger, cost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost.
func (s *Service) SetHashCost(cost int) {
	s.cost = cost
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// keep response time independent of whether the email exists
		_, _ = bcrypt.GenerateFromPassword([]byte(password), s.cost)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("email", email).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInactive
	}

	tok, err := s.tokens.Issue(auth.Identity{
		UserID: u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Roles:  []string{u.Role},
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &LoginResult{
		AccessToken: tok.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   tok.ExpiresAt,
		User:        u.Profile(),
	}, nil
}

// Current returns the signed-in user's profile.
func (s *Service) Current(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrInactive
	}
	return u, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if err := s.revoker.Revoke(ctx, jti, userID, expiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// CreateUser registers a staff account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, email, name, role, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, Name: name, Role: role, PasswordHash: hash, Active: true}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", role).Msg("user created")
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
