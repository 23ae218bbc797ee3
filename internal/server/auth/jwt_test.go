package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateAndVerify_Valid(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, exp, err := GenerateToken("U1", "", secret, time.Hour, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), exp)

	v := Verify(tok, secret, testNow)
	require.True(t, v.Valid())
	assert.NoError(t, v.Err())
	assert.Equal(t, "U1", v.Claims.UserID)
	assert.Empty(t, v.Claims.Role)
	assert.True(t, exp.Equal(v.Claims.ExpiresAt.Time))
}

func TestVerify_ExpiredRegardlessOfSignature(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, _, err := GenerateToken("U1", "", secret, -time.Hour, testNow)
	require.NoError(t, err)

	v := Verify(tok, secret, testNow)
	assert.Equal(t, StatusExpired, v.Status)
	require.NotNil(t, v.Claims)
	assert.Equal(t, "U1", v.Claims.UserID)
	assert.ErrorIs(t, v.Err(), common.ErrInvalidToken)
}

func TestVerify_UsesSuppliedClock(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, exp, err := GenerateToken("U1", "", secret, time.Minute, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusValid, Verify(tok, secret, exp.Add(-time.Second)).Status)
	assert.Equal(t, StatusExpired, Verify(tok, secret, exp).Status)
	assert.Equal(t, StatusExpired, Verify(tok, secret, exp.Add(time.Second)).Status)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := GenerateToken("U2", "", []byte("right-secret"), time.Hour, testNow)
	require.NoError(t, err)

	v := Verify(tok, []byte("wrong-secret"), testNow)
	assert.Equal(t, StatusMalformed, v.Status)
	assert.Nil(t, v.Claims)
	assert.True(t, errors.Is(v.Err(), common.ErrInvalidToken))
}

func TestVerify_ExpiredAndMisSignedIsMalformed(t *testing.T) {
	t.Parallel()

	tok, _, err := GenerateToken("U2", "", []byte("right-secret"), -time.Hour, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, Verify(tok, []byte("wrong-secret"), testNow).Status)
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		assert.Equal(t, StatusMalformed, Verify(tok, []byte("k"), testNow).Status, tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           "U1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, Verify(s, secret, testNow).Status)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           "U1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	})
	s, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, Verify(s, secret, testNow).Status)
}

func TestVerify_RequiresExpiryAndUser(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "U1"}).SignedString(secret)
	require.NoError(t, err)
	assert.Equal(t, StatusMalformed, Verify(noExp, secret, testNow).Status)

	noUser, _, err := GenerateToken("", "", secret, time.Hour, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusMalformed, Verify(noUser, secret, testNow).Status)
}

func TestGenerateToken_CarriesRole(t *testing.T) {
	t.Parallel()

	secret := []byte("admin-secret")
	tok, _, err := GenerateToken("A1", common.AdminRole, secret, 2*time.Hour, testNow)
	require.NoError(t, err)

	v := Verify(tok, secret, testNow)
	require.True(t, v.Valid())
	assert.Equal(t, common.AdminRole, v.Claims.Role)
	assert.Equal(t, 3, len(strings.Split(tok, ".")))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "valid", StatusValid.String())
	assert.Equal(t, "expired", StatusExpired.String())
	assert.Equal(t, "malformed", StatusMalformed.String())
}
