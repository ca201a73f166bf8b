package security

import (
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func fastParams() Argon2Params {
	return Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPasswordWithParams("s3cret-pass", fastParams())
	require.NoError(t, err)
	require.Contains(t, string(hash), "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := VerifyPassword("s3cret-pass", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong-pass", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPasswordHashIsSalted(t *testing.T) {
	a, err := HashPasswordWithParams("same", fastParams())
	require.NoError(t, err)
	b, err := HashPasswordWithParams("same", fastParams())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=19$garbage$aa$bb"} {
		_, err := VerifyPassword("x", []byte(encoded))
		require.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	token, exp, err := GenerateAccessToken(testSecret, "user-1", issued, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, issued.Add(15*time.Minute), exp)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, issued.Unix(), claims.IssuedAtTime().Unix())
}

func TestAccessTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	token, _, err := GenerateAccessToken(testSecret, "user-1", issued, time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)

	fresh, _, err := GenerateAccessToken(testSecret, "user-1", time.Now(), time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(fresh, "other-secret")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken("not.a.jwt", testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenHonoursClock(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token, _, err := GenerateAccessToken(testSecret, "user-1", issued, time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret, jwt.WithTimeFunc(func() time.Time { return issued.Add(30 * time.Minute) }))
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret, jwt.WithTimeFunc(func() time.Time { return issued.Add(2 * time.Hour) }))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := AccessClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiryIgnoresSignature(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	token, exp, err := GenerateAccessToken(testSecret, "user-1", issued, time.Hour)
	require.NoError(t, err)

	got, ok := TokenExpiry(token)
	require.True(t, ok)
	require.Equal(t, exp.Unix(), got.Unix())

	_, ok = TokenExpiry("garbage")
	require.False(t, ok)
}

func TestGenerateRefreshToken(t *testing.T) {
	a, err := GenerateRefreshToken()
	require.NoError(t, err)
	require.Len(t, a, 64)
	_, err = hex.DecodeString(a)
	require.NoError(t, err)

	b, err := GenerateRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestResetCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}

	require.Equal(t, HashResetCode("123456"), HashResetCode("123456"))
	require.NotEqual(t, HashResetCode("123456"), HashResetCode("654321"))
	require.Len(t, HashResetCode("123456"), 64)
}
