package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIdentifierFormats(t *testing.T) {
	group := regexp.MustCompile(`^GRP-[0-9A-F]{6}$`)
	user := regexp.MustCompile(`^USER-[0-9A-F]{4}-[0-9A-F]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		g, u := NewGroupID(), NewUserID()
		assert.Regexp(t, group, g)
		assert.Regexp(t, user, u)
		seen[g] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("s", 9, "lead@fest.in", "ADMIN", 10)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(at.Token, claims, func(*jwt.Token) (interface{}, error) { return []byte("s"), nil })
	require.NoError(t, err)
	assert.Equal(t, "9", claims["sub"])
	assert.Equal(t, "lead@fest.in", claims["email"])
	assert.Equal(t, "ADMIN", claims["role"])
	assert.EqualValues(t, at.Exp.Unix(), claims["exp"])
}

func TestRefreshTokenHashing(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
	assert.NotEqual(t, rt.Raw, HashRefreshRaw(rt.Raw))
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("longenough", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "longenough"))
	assert.False(t, VerifyPassword(h, "longenougH"))

	_, err = HashPassword("cost-below-min", 1)
	assert.NoError(t, err)
}

func TestCheckPassword(t *testing.T) {
	assert.ErrorIs(t, CheckPassword("short"), ErrPasswordTooShort)
	assert.NoError(t, CheckPassword("exactly8"))
	assert.ErrorIs(t, CheckPassword(strings.Repeat("a", 73)), bcrypt.ErrPasswordTooLong)
}

func TestParseAccessToken(t *testing.T) {
	at, err := NewAccessToken("s", 9, "lead@fest.in", "ADMIN", 10)
	require.NoError(t, err)

	claims, err := ParseAccessToken("s", at.Token)
	require.NoError(t, err)
	assert.Equal(t, AccessClaims{Subject: "9", Email: "lead@fest.in", Role: "ADMIN"}, claims)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), uid)

	_, err = ParseAccessToken("other", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "9", "exp": at.Exp.Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("s", unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "9"}).SignedString([]byte("s"))
	require.NoError(t, err)
	_, err = ParseAccessToken("s", noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
