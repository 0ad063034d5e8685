package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndDecodeAccessToken(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 7*24*time.Hour)

	raw, err := m.IssueAccessToken(42, "alice")
	require.NoError(t, err)

	claims, err := m.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt, time.Minute)
}

func TestIssueAndDecodeRefreshToken(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 7*24*time.Hour)

	raw, err := m.IssueRefreshToken(42)
	require.NoError(t, err)

	claims, err := m.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Empty(t, claims.Username)
	require.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestDecodeExpiredToken(t *testing.T) {
	m := NewManager(testSecret, -time.Minute, 7*24*time.Hour)

	raw, err := m.IssueAccessToken(42, "alice")
	require.NoError(t, err)

	_, err = m.Decode(raw)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestDecodeWrongSecret(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 7*24*time.Hour)
	other := NewManager("fedcba9876543210fedcba9876543210", 30*time.Minute, 7*24*time.Hour)

	raw, err := m.IssueAccessToken(42, "alice")
	require.NoError(t, err)

	_, err = other.Decode(raw)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestDecodeGarbage(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 7*24*time.Hour)

	_, err := m.Decode("not.a.token")
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = m.Decode("")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
