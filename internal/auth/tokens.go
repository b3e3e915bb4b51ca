package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// kind checks.
var ErrInvalidToken = errors.New("invalid token")

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims identify the caller. Admin is set only for the configured admin
// account.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin,omitempty"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string
	Email  string
	Admin  bool
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager signs tokens with secret using the given lifetimes.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of tokens issued at login.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess signs an access token valid for ttl.
func (m *TokenManager) IssueAccess(id Identity, ttl time.Duration) (string, error) {
	return m.sign(id, kindAccess, ttl)
}

// IssueRefresh signs a refresh token valid for the configured refresh TTL.
func (m *TokenManager) IssueRefresh(id Identity) (string, error) {
	return m.sign(id, kindRefresh, m.refreshTTL)
}

func (m *TokenManager) sign(id Identity, kind string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Admin:  id.Admin,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies an access token.
func (m *TokenManager) ParseAccess(raw string) (Identity, error) {
	return m.parse(raw, kindAccess)
}

// ParseRefresh verifies a refresh token.
func (m *TokenManager) ParseRefresh(raw string) (Identity, error) {
	return m.parse(raw, kindRefresh)
}

func (m *TokenManager) parse(raw, kind string) (Identity, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind || claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: unexpected token kind %q", ErrInvalidToken, claims.Kind)
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Admin: claims.Admin}, nil
}
