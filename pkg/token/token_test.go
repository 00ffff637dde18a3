package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNumericDate(t time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(t)
}

// signClaims signs arbitrary claims with the issuer's secret, for building
// tokens Issue would refuse to produce
func signClaims(t *testing.T, issuer *Issuer, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	require.NoError(t, err)
	return signed
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer([]byte("test-secret"))
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.Error(t, err)

	_, err = NewIssuer([]byte{})
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("user-123", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(signed, ".")))

	userID, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerify_Expired(t *testing.T) {
	issuer := newTestIssuer(t)

	now := time.Now()
	claims := Claims{}
	claims.Subject = "user-123"
	claims.IssuedAt = newNumericDate(now.Add(-2 * time.Hour))
	claims.ExpiresAt = newNumericDate(now.Add(-time.Hour))
	signed := signClaims(t, issuer, claims)

	_, err := issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer([]byte("different-secret"))
	require.NoError(t, err)

	signed, err := other.Issue("user-123", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Tampered(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("user-123", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	// Swap the payload for another token's payload, keeping the signature
	otherSigned, err := issuer.Issue("user-456", time.Hour)
	require.NoError(t, err)
	otherParts := strings.Split(otherSigned, ".")
	tampered := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	issuer := newTestIssuer(t)

	signed := signClaims(t, issuer, Claims{})

	_, err := issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssue_DefaultTTL(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("user-123", 0)
	require.NoError(t, err)

	userID, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}
