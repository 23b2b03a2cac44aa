package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmoreira/tesouraria/internal/auth"
)

func TestMintAndParse(t *testing.T) {
	secret := []byte("test-secret")

	token, err := auth.Mint(secret, "admin@apm.org", "admin@apm.org", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken(secret, token)
	require.NoError(t, err)

	assert.Equal(t, "admin@apm.org", claims.Email)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "tesouraria", claims.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.Mint([]byte("secret-a"), "x", "x@apm.org", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("secret-b"), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := auth.Mint(secret, "x", "x@apm.org", auth.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(secret, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := auth.ParseToken([]byte("test-secret"), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseUsers(t *testing.T) {
	users, err := auth.ParseUsers("admin@apm.org:s3cret:admin, sec@apm.org:outra:secretary")
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, auth.RoleAdmin, users[0].Role)
	assert.Equal(t, "sec@apm.org", users[1].Email)
	assert.Equal(t, auth.RoleSecretary, users[1].Role)
}

func TestParseUsers_Empty(t *testing.T) {
	users, err := auth.ParseUsers("  ")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestParseUsers_Malformed(t *testing.T) {
	_, err := auth.ParseUsers("admin@apm.org:s3cret")
	assert.Error(t, err)

	_, err = auth.ParseUsers("admin@apm.org:s3cret:king")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	users := []auth.User{
		{Email: "admin@apm.org", Password: "s3cret", Role: auth.RoleAdmin},
	}

	got, err := auth.Authenticate(users, "Admin@APM.org", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, got.Role)

	_, err = auth.Authenticate(users, "admin@apm.org", "wrong")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = auth.Authenticate(users, "nobody@apm.org", "s3cret")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}
