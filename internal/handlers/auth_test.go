package handlers

import (
	"net/http"
	"testing"

	"github.com/startblog/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "admin-password", types.RoleAdmin)

	resp := env.login(t, "admin", "admin-password")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, types.RoleAdmin, resp.User.Role)

	claims, err := env.codec.VerifyAccess(resp.AccessToken)
	require.NoError(t, err)
	assert.Contains(t, claims.Roles, "admin")
}

func TestLoginEndpointRejections(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "admin-password", types.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown user gets the same response as a wrong password.
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "admin-password", types.RoleAdmin)
	resp := env.login(t, "admin", "admin-password")

	rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decodeJSON[map[string]string](t, rec)
	assert.NotEmpty(t, rotated["access_token"])
	assert.NotEqual(t, resp.RefreshToken, rotated["refresh_token"])

	// Replaying the consumed token is rejected.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "admin-password", types.RoleAdmin)
	resp := env.login(t, "admin", "admin-password")

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token can no longer refresh.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out twice is fine.
	rec = env.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "old-password", types.RoleAdmin)
	resp := env.login(t, "admin", "old-password")

	rec := env.do(t, http.MethodPost, "/api/auth/change-password", resp.AccessToken, map[string]string{
		"current_password": "old-password",
		"new_password":     "brand-new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Outstanding refresh tokens are dead.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Old password is out, new one works.
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "old-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.login(t, "admin", "brand-new-password")
}

func TestChangePasswordEndpointRejections(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "old-password", types.RoleAdmin)
	resp := env.login(t, "admin", "old-password")

	// No token at all.
	rec := env.do(t, http.MethodPost, "/api/auth/change-password", "", map[string]string{
		"current_password": "old-password",
		"new_password":     "brand-new-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/change-password", resp.AccessToken, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/change-password", resp.AccessToken, map[string]string{
		"current_password": "old-password",
		"new_password":     "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", "admin-password", types.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/auth/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJSON[StatusResponse](t, rec)
	assert.False(t, status.LoggedIn)
	assert.Nil(t, status.User)

	resp := env.login(t, "admin", "admin-password")
	rec = env.do(t, http.MethodGet, "/api/auth/status", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeJSON[StatusResponse](t, rec)
	assert.True(t, status.LoggedIn)
	require.NotNil(t, status.User)
	assert.Equal(t, "admin", status.User.Username)

	// An invalid token degrades to logged_in=false, not an error.
	rec = env.do(t, http.MethodGet, "/api/auth/status", "garbage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeJSON[StatusResponse](t, rec)
	assert.False(t, status.LoggedIn)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
