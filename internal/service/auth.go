package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/internal/repo"
)

// IdentityProvider is the part of the external provider the sign-in flow needs.
type IdentityProvider interface {
	Exchange(ctx context.Context, code string) (identity.TokenSet, error)
	UserInfo(ctx context.Context, accessToken string) (identity.UserInfo, error)
	Revoke(ctx context.Context, token string) error
}

// TokenRevoker remembers logged-out tokens locally until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

type AuthService struct {
	users   repo.UserRepository
	idp     IdentityProvider
	revoker TokenRevoker
	logger  *zap.Logger
	signIns singleflight.Group
}

// signInTimeout bounds the shared first-login work once it is detached from the caller.
const signInTimeout = 10 * time.Second

func NewAuthService(users repo.UserRepository, idp IdentityProvider, revoker TokenRevoker, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		idp:     idp,
		revoker: revoker,
		logger:  logger,
	}
}

// SignIn exchanges an authorization code and makes sure the user exists locally.
func (s *AuthService) SignIn(ctx context.Context, code string) (identity.TokenSet, error) {
	if code == "" {
		return identity.TokenSet{}, fmt.Errorf("%w: code is required", ErrValidation)
	}

	tokens, err := s.idp.Exchange(ctx, code)
	if err != nil {
		return identity.TokenSet{}, err
	}

	info, err := s.idp.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return identity.TokenSet{}, err
	}

	if _, err := s.EnsureUser(ctx, info); err != nil {
		return identity.TokenSet{}, err
	}
	return tokens, nil
}

// EnsureUser returns the user matching the provider's username or email, creating it on first login.
// Concurrent first logins for the same username collapse into one insert in this process; a
// uniqueness conflict with another process is resolved by reading back the winner.
// The shared work runs detached from any single caller's context, so one caller giving up
// does not fail the others waiting on it.
func (s *AuthService) EnsureUser(ctx context.Context, info identity.UserInfo) (model.User, error) {
	username := info.Login()

	ch := s.signIns.DoChan(username, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signInTimeout)
		defer cancel()

		user, found, err := s.findExisting(ctx, username, info.Email)
		if err != nil || found {
			return user, err
		}

		user, err = s.users.Create(ctx, model.User{
			Username:   username,
			Email:      info.Email,
			GivenName:  info.GivenName,
			FamilyName: info.FamilyName,
		})
		if err == nil {
			s.logger.Info("user created on first sign-in",
				zap.String("username", username),
				zap.String("user_id", user.ID.String()),
			)
			return user, nil
		}
		if !errors.Is(err, repo.ErrorConflict) {
			return model.User{}, err
		}

		existing, found, lookupErr := s.findExisting(ctx, username, info.Email)
		if lookupErr == nil && found {
			return existing, nil
		}
		return model.User{}, err
	})

	select {
	case <-ctx.Done():
		return model.User{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.User{}, res.Err
		}
		return res.Val.(model.User), nil
	}
}

// Me returns the caller's user record.
func (s *AuthService) Me(ctx context.Context, username string) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return user, err
}

// Logout revokes the token at the provider, then locally until it expires.
func (s *AuthService) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	if err := s.idp.Revoke(ctx, token); err != nil {
		return err
	}
	return s.revoker.Revoke(ctx, token, expiresAt)
}

func (s *AuthService) findExisting(ctx context.Context, username, email string) (model.User, bool, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, false, err
	}

	user, err = s.users.FindByEmail(ctx, email)
	if err == nil {
		s.logger.Info("user matched by email",
			zap.String("username", username),
			zap.String("stored_username", user.Username),
		)
		return user, true, nil
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, false, err
	}
	return model.User{}, false, nil
}
