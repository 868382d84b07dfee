package token

import (
	"testing"
	"time"

	"github.com/startblog/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("")
	assert.Error(t, err)

	_, err = NewCodec("   ")
	assert.Error(t, err)

	codec, err := NewCodec("s3cret")
	require.NoError(t, err)
	assert.NotNil(t, codec)
}

func TestAccessTokenRoundtrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	signed, err := codec.IssueAccess("42", "alice", []types.Role{types.RoleAdmin, types.RoleEditor}, time.Minute)
	require.NoError(t, err)

	claims, err := codec.VerifyAccess(signed)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"admin", "editor"}, claims.Roles)
	assert.True(t, claims.HasRole(types.RoleAdmin))
	assert.True(t, claims.HasRole(types.RoleEditor))
	assert.False(t, claims.HasRole(types.RoleReader))
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	signed, issued, err := codec.IssueRefresh("42", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := codec.VerifyRefresh(signed)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestRefreshIDsAreUnique(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	_, first, err := codec.IssueRefresh("42", time.Hour)
	require.NoError(t, err)
	_, second, err := codec.IssueRefresh("42", time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestVerifyExpired(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	signed, err := codec.IssueAccess("42", "alice", nil, -time.Minute)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, err := NewCodec("secret-a")
	require.NoError(t, err)
	verifier, err := NewCodec("secret-b")
	require.NoError(t, err)

	signed, err := issuer.IssueAccess("42", "alice", nil, time.Minute)
	require.NoError(t, err)

	_, err = verifier.VerifyAccess(signed)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyMalformed(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	for _, input := range []string{"", "garbage", "a.b.c", "header.payload"} {
		_, err := codec.VerifyAccess(input)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", input)
	}
}

func TestAccessAndRefreshAreNotInterchangeable(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	// Access tokens carry no jti, so they must not pass refresh
	// verification.
	signed, err := codec.IssueAccess("42", "alice", nil, time.Minute)
	require.NoError(t, err)

	_, err = codec.VerifyRefresh(signed)
	assert.ErrorIs(t, err, ErrMalformed)
}
