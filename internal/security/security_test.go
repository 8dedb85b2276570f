package security

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogscreen-service/internal/domain"
)

const testKey = "iWVka3sDLtQbsxiiuXMzNmiyl5Iqugv6yLPvbOge/5E="

func TestFieldCipherRoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testKey)
	require.NoError(t, err)

	token, err := c.Encrypt([]byte("Q: What day is it?\nA: Tuesday"))
	require.NoError(t, err)
	assert.NotContains(t, token, "Tuesday")

	plain, err := c.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "Q: What day is it?\nA: Tuesday", string(plain))
}

func TestFieldCipherUsesFreshNonce(t *testing.T) {
	c, err := NewFieldCipher(testKey)
	require.NoError(t, err)
	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFieldCipherRejectsBadInput(t *testing.T) {
	_, err := NewFieldCipher("")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = NewFieldCipher("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrKeySize)

	c, err := NewFieldCipher(testKey)
	require.NoError(t, err)
	_, err = c.Decrypt("AAAA")
	assert.ErrorIs(t, err, ErrMalformedToken)

	other, err := NewFieldCipher("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	require.NoError(t, err)
	token, err := other.Encrypt([]byte("secret"))
	require.NoError(t, err)
	_, err = c.Decrypt(token)
	assert.Error(t, err)
}

func TestFieldCipherNonceFromReader(t *testing.T) {
	c, err := NewFieldCipher(testKey)
	require.NoError(t, err)
	c.rand = bytes.NewReader(make([]byte, nonceSize))
	_, err = c.Encrypt([]byte("x"))
	require.NoError(t, err)

	_, err = c.Encrypt([]byte("x"))
	assert.Error(t, err, "exhausted nonce reader must fail")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.User{ID: "u1", Role: domain.RoleDoctor, FullName: "Dr Who"})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, domain.RoleDoctor, claims.Role)
	assert.Equal(t, "Dr Who", claims.Name)
}

func TestTokenParseRejectsExpiredAndForeign(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issued := time.Now()
	issuer.now = func() time.Time { return issued }
	token, err := issuer.Issue(domain.User{ID: "u1", Role: domain.RolePatient})
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other := NewTokenIssuer("other", time.Minute)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
