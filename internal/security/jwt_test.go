package security_test

import (
	"testing"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHS256RoundTrip(t *testing.T) {
	tok, err := security.MakeAccess("s3cret", "u1", "u@example.com", time.Minute)
	require.NoError(t, err)

	c, err := security.ParseAccess("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID())
	assert.Equal(t, "u@example.com", c.Email)
}

func TestParseRejects(t *testing.T) {
	tok, err := security.MakeAccess("s3cret", "u1", "", time.Minute)
	require.NoError(t, err)
	_, err = security.ParseAccess("other", tok)
	assert.Error(t, err, "wrong secret")

	expired, err := security.MakeAccess("s3cret", "u1", "", -time.Minute)
	require.NoError(t, err)
	_, err = security.ParseAccess("s3cret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": "u1"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = security.ParseAccess("s3cret", raw)
	assert.Error(t, err, "alg none")
}

func TestClaimsUserID(t *testing.T) {
	c := security.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: `ObjectID("65f0c0ffee")`}}
	assert.Equal(t, "65f0c0ffee", c.UserID())

	c = security.Claims{UID: " abc ", RegisteredClaims: jwt.RegisteredClaims{Subject: "zzz"}}
	assert.Equal(t, "abc", c.UserID())
}
