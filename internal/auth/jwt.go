// Package auth provides JWT issuing and validation, password hashing and the
// GitHub OAuth flow.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity roles carried in the token. Admin tokens are issued by the admin
// login endpoints only and are required by RequireAdmin.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	userTTL  time.Duration
	adminTTL time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret, issuer string, userTTL, adminTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		userTTL:  userTTL,
		adminTTL: adminTTL,
	}, nil
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateUser issues a token for a regular author account.
func (s *TokenService) GenerateUser(userID string) (string, error) {
	return s.generate(userID, RoleUser, s.userTTL)
}

// GenerateAdmin issues a token carrying the admin role. Admin tokens are
// shorter-lived than user tokens.
func (s *TokenService) GenerateAdmin(adminID string) (string, error) {
	return s.generate(adminID, RoleAdmin, s.adminTTL)
}

func (s *TokenService) generate(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the identity it
// carries. Pinning the algorithm to HS256 blocks algorithm-confusion tokens.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	role := c.Role
	if role == "" {
		role = RoleUser
	}

	return Identity{UserID: c.Subject, Role: role}, nil
}
