// Package service holds the business rules. Handlers call services; services
// call repositories through the interfaces in package repository and never
// see HTTP.
//
//	Handler (HTTP) → Service (rules) → repository.Store (SQLite)
//	                                 ↘ repository.LeaderboardCache (Redis)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/auth"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

// AuthService handles registration, login and token validation.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the sign-up form. ConfirmPassword is optional; when set
// it must equal Password.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates an email/password account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	switch {
	case name == "":
		return nil, apperror.ValidationFailed("name", "Name is required")
	case !emailPattern.MatchString(email):
		return nil, apperror.ValidationFailed("email", "Invalid email format")
	case len(in.Password) < minPasswordLen:
		return nil, apperror.ValidationFailed("password", "Password must be at least 6 characters")
	case in.ConfirmPassword != "" && in.ConfirmPassword != in.Password:
		return nil, apperror.ValidationFailed("confirmPassword", "Passwords do not match")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Name:             name,
		Email:            email,
		FavoriteCategory: model.DeviceSmartphone,
	}
	cred := &model.Credential{Email: email, PasswordHash: hash}

	if err := s.users.CreateUser(ctx, user, cred); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks an email/password pair. The two failure messages are
// distinct, matching what the sign-in form shows.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "Please fill in all fields")
	}

	cred, err := s.users.GetCredential(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("email", "Email not found")
		}
		return nil, fmt.Errorf("service/auth: reading credential: %w", err)
	}

	if err := s.passwords.Verify(cred.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("password", "Incorrect password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	user, err := s.users.GetUser(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %s: %w", cred.UserID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the OAuth callback: it finds or creates the
// account for the GitHub profile and issues a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	id := gh.ID
	email := strings.ToLower(gh.Email)
	if email == "" {
		// GitHub accounts can hide every address; keep the UNIQUE column happy
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
	}
	user := &model.User{
		Name:             gh.DisplayName(),
		Email:            email,
		GitHubID:         &id,
		FavoriteCategory: model.DeviceSmartphone,
	}

	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

// ValidateToken returns the user ID a JWT encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
