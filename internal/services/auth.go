package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/startblog/apiserver/internal/events"
	"github.com/startblog/apiserver/internal/revocation"
	"github.com/startblog/apiserver/internal/store"
	"github.com/startblog/apiserver/internal/token"
	"github.com/startblog/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers a failed login, a stale or reused
// refresh token, and a wrong current password. The message is the same
// for all of them so responses cannot be used for username enumeration
// or to probe which check failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrWeakPassword is returned when a new password violates policy.
var ErrWeakPassword = errors.New("password does not meet minimum length")

// dummyHash is compared against when the user does not exist, so a
// login attempt costs the same bcrypt work either way.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("startblog-timing-pad"), bcrypt.DefaultCost)
	return h
}()

// UserStore is the persistence surface the authenticator needs.
type UserStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// TokenPair is an access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService issues, refreshes and revokes credential pairs and owns
// the password lifecycle. Security-relevant actions are published on
// the event bus after they commit.
type AuthService struct {
	users             UserStore
	codec             *token.Codec
	revocations       revocation.Store
	bus               *events.Bus
	accessTTL         time.Duration
	refreshTTL        time.Duration
	minPasswordLength int
}

func NewAuthService(
	users UserStore,
	codec *token.Codec,
	revocations revocation.Store,
	bus *events.Bus,
	accessTTL, refreshTTL time.Duration,
	minPasswordLength int,
) *AuthService {
	return &AuthService{
		users:             users,
		codec:             codec,
		revocations:       revocations,
		bus:               bus,
		accessTTL:         accessTTL,
		refreshTTL:        refreshTTL,
		minPasswordLength: minPasswordLength,
	}
}

// Login verifies username/password and mints a token pair. The refresh
// token's identifier is recorded so it can be revoked later.
func (s *AuthService) Login(ctx context.Context, username, password string) (TokenPair, types.UserSummary, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return TokenPair{}, types.UserSummary{}, ErrInvalidCredentials
		}
		return TokenPair{}, types.UserSummary{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, types.UserSummary{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return TokenPair{}, types.UserSummary{}, err
	}

	s.bus.Publish(ctx, events.UserEvent(events.UserLogin, subjectOf(user.ID)))
	return pair, user.Summary(), nil
}

// Refresh exchanges a refresh token for a fresh pair, consuming the old
// token. Rotation is atomic: when two refreshes race on the same token,
// at most one succeeds and the loser gets ErrInvalidCredentials.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	newRefresh, newClaims, err := s.codec.IssueRefresh(claims.Subject, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.revocations.Rotate(ctx, claims.ID, newClaims.ID, claims.Subject, newClaims.ExpiresAt.Time)
	if err != nil {
		if errors.Is(err, revocation.ErrNotActive) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.codec.IssueAccess(claims.Subject, user.Username, []types.Role{user.Role}, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh token's identifier. It is idempotent:
// revoking an unknown, expired or already revoked token is not an
// error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.bus.Publish(ctx, events.UserEvent(events.UserLogout, claims.Subject))
	return nil
}

// ChangePassword re-hashes the password and revokes every outstanding
// refresh token for the user, forcing re-login on all devices. A wrong
// current password leaves the stored hash and the active set untouched.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if len(newPassword) < s.minPasswordLength {
		return ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	subject := subjectOf(user.ID)
	if err := s.revocations.RevokeAll(ctx, subject); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.bus.Publish(ctx, events.UserEvent(events.UserPasswordChanged, subject))
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user types.User) (TokenPair, error) {
	subject := subjectOf(user.ID)

	access, err := s.codec.IssueAccess(subject, user.Username, []types.Role{user.Role}, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, claims, err := s.codec.IssueRefresh(subject, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.revocations.Record(ctx, claims.ID, subject, claims.ExpiresAt.Time); err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func subjectOf(userID int) string {
	return strconv.Itoa(userID)
}
