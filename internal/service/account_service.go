package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshedAccessTTL is the lifetime of access tokens minted from a refresh
// token.
const RefreshedAccessTTL = 15 * time.Minute

const minPasswordLength = 6

// AdminCredentials is the single configured administrator account.
type AdminCredentials struct {
	ID       string
	Email    string
	Password string
}

// LoginResult carries the issued tokens.
type LoginResult struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"-"`
	Admin        bool   `json:"admin"`
}

// AccountService registers shoppers and issues tokens.
type AccountService struct {
	users  store.UserStore
	tokens *auth.TokenManager
	admin  AdminCredentials
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users store.UserStore, tokens *auth.TokenManager, admin AdminCredentials) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		admin:  admin,
		logger: util.GetLogger(),
	}
}

// Register creates a user with a bcrypt password hash.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if s.admin.Email != "" && strings.EqualFold(email, s.admin.Email) {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrPersistence, err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and issues an access and a refresh token.
// The configured admin account is checked before the user store.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	var id auth.Identity
	if s.admin.Email != "" && strings.EqualFold(email, s.admin.Email) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) != 1 || s.admin.Password == "" {
			return nil, fmt.Errorf("%w: invalid admin credentials", ErrUnauthorized)
		}
		id = auth.Identity{UserID: s.admin.ID, Email: email, Admin: true}
	} else {
		user, err := s.users.GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
		}
		if !auth.CheckPassword(user.PasswordHash, password) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		id = auth.Identity{UserID: user.ID, Email: user.Email}
	}

	access, err := s.tokens.IssueAccess(id, s.tokens.AccessTTL())
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(id)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, Admin: id.Admin}, nil
}

// Refresh exchanges a refresh token for a short-lived access token.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token provided", ErrUnauthorized)
	}
	id, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	return s.tokens.IssueAccess(id, RefreshedAccessTTL)
}
