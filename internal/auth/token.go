package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims — доменные клеймы токена после проверки подписи.
type Claims struct {
	UserID    int64
	Username  string
	TokenType string
	ExpiresAt time.Time
}

type jwtClaims struct {
	Username  string `json:"username,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Manager выпускает и проверяет HS256 токены доступа и обновления.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccessToken выпускает короткоживущий токен доступа
// с клеймами {sub, username, exp, type="access"}.
func (m *Manager) IssueAccessToken(userID int64, username string) (string, error) {
	return m.sign(userID, username, TokenTypeAccess, m.accessTTL)
}

// IssueRefreshToken выпускает долгоживущий токен обновления {sub, exp, type="refresh"}.
func (m *Manager) IssueRefreshToken(userID int64) (string, error) {
	return m.sign(userID, "", TokenTypeRefresh, m.refreshTTL)
}

func (m *Manager) sign(userID int64, username, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	cl := jwtClaims{
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Decode проверяет подпись и срок действия. Любая проблема с токеном
// сворачивается в domain.ErrInvalidToken.
func (m *Manager) Decode(raw string) (Claims, error) {
	var out jwtClaims
	token, err := jwt.ParseWithClaims(raw, &out, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, domain.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(out.Subject, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad subject", domain.ErrInvalidToken)
	}

	claims := Claims{
		UserID:    userID,
		Username:  out.Username,
		TokenType: out.TokenType,
	}
	if out.ExpiresAt != nil {
		claims.ExpiresAt = out.ExpiresAt.Time
	}
	return claims, nil
}
