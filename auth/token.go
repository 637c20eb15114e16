package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenType = "bearer"

	issuer           = "todo-backend"
	revokedKeyPrefix = "revoked:"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager issues HS256 access tokens and tracks revoked ones in a
// fiber.Storage keyed by token id.
type TokenManager struct {
	secret     []byte
	expiration time.Duration
	revoked    fiber.Storage
	now        func() time.Time
}

func NewTokenManager(secret string, expiration time.Duration, revoked fiber.Storage) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expiration <= 0 {
		return nil, fmt.Errorf("jwt expiration must be positive, got %s", expiration)
	}

	return &TokenManager{
		secret:     []byte(secret),
		expiration: expiration,
		revoked:    revoked,
		now:        time.Now,
	}, nil
}

// GenerateSecret returns a random hex secret for processes started without
// JWT_SECRET. Tokens signed with it do not survive a restart.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (m *TokenManager) Issue(userID, email string) (token string, expiresAt time.Time, err error) {
	issuedAt := m.now()
	expiresAt = issuedAt.Add(m.expiration)

	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates the signature, expiry and revocation state of raw.
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.revoked != nil {
		value, err := m.revoked.Get(revokedKeyPrefix + claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if value != nil {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke blocks the token until its natural expiry.
func (m *TokenManager) Revoke(claims *Claims) error {
	if m.revoked == nil {
		return errors.New("token revocation storage not configured")
	}

	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revoked.Set(revokedKeyPrefix+claims.ID, []byte("1"), ttl)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, TokenType) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
